package app

// Operation tracks the CLI command an App was opened for. Commands that write
// to the store mark it dirty; Close then snapshots the store to the vault so
// the off-device copy follows local writes.
type Operation struct {
	Name   string
	Dirty  bool
	Status string // "success" or "error"
}

// NewOperation creates an operation that has not written anything yet.
func NewOperation(name string) *Operation {
	return &Operation{Name: name, Status: "success"}
}

// MarkDirty records that the operation wrote to the store.
func (op *Operation) MarkDirty() {
	op.Dirty = true
}

// Fail records that the operation ended in an error. Failed operations are
// not snapshotted.
func (op *Operation) Fail() {
	op.Status = "error"
}

// NeedsSnapshot reports whether Close should push a snapshot.
func (op *Operation) NeedsSnapshot() bool {
	return op.Dirty && op.Status == "success"
}
