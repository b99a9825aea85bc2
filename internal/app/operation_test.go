package app

import "testing"

func TestNewOperation(t *testing.T) {
	op := NewOperation("Disburse")

	if op.Name != "Disburse" {
		t.Errorf("Name = %q, want %q", op.Name, "Disburse")
	}
	if op.Status != "success" {
		t.Errorf("Status = %q, want %q", op.Status, "success")
	}
	if op.Dirty {
		t.Error("Dirty = true, want false")
	}
}

func TestOperation_NeedsSnapshot(t *testing.T) {
	tests := []struct {
		name  string
		dirty bool
		fail  bool
		want  bool
	}{
		{name: "read-only", want: false},
		{name: "wrote", dirty: true, want: true},
		{name: "wrote then failed", dirty: true, fail: true, want: false},
		{name: "failed without writing", fail: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation("op")
			if tt.dirty {
				op.MarkDirty()
			}
			if tt.fail {
				op.Fail()
			}
			if got := op.NeedsSnapshot(); got != tt.want {
				t.Errorf("NeedsSnapshot() = %v, want %v", got, tt.want)
			}
		})
	}
}
