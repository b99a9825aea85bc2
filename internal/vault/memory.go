package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"agri-sentinel/internal/agri"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name      string
	snapshots map[string][]byte // deviceID -> snapshot
	versions  map[string]int64  // deviceID -> version
	mu        sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:      name,
		snapshots: make(map[string][]byte),
		versions:  make(map[string]int64),
	}
}

// PutSnapshot stores the snapshot for a device, replacing any earlier one.
func (m *MemoryVault) PutSnapshot(ctx context.Context, deviceID string, r io.Reader, size int64, version int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[deviceID] = data
	m.versions[deviceID] = version
	return nil
}

// GetSnapshot writes the device's snapshot to w.
func (m *MemoryVault) GetSnapshot(ctx context.Context, deviceID string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.snapshots[deviceID]
	if !ok {
		return fmt.Errorf("%w for device: %s", agri.ErrSnapshotNotFound, deviceID)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// SnapshotVersion returns 0 if no snapshot has been stored for this device.
func (m *MemoryVault) SnapshotVersion(ctx context.Context, deviceID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.versions[deviceID], nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(ctx context.Context) error {
	return nil
}

// Compile-time check that MemoryVault implements agri.Vault interface
var _ agri.Vault = (*MemoryVault)(nil)
