package agri_test

import (
	"testing"

	"github.com/google/uuid"

	"agri-sentinel/internal/agri"
)

func TestUUIDGenerator(t *testing.T) {
	var gen agri.UUIDGenerator
	seen := make(map[string]bool, 1000)
	for range 1000 {
		id := gen.New()
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("New() = %q, not a full UUID: %v", id, err)
		}
		if seen[id] {
			t.Fatalf("New() repeated %q", id)
		}
		seen[id] = true
	}
}
