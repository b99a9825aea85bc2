package database

import (
	"path/filepath"
	"testing"

	"agri-sentinel/internal/agri"
	"agri-sentinel/internal/config"
)

func TestNewStoreFromConfig(t *testing.T) {
	t.Run("memory store", func(t *testing.T) {
		got, err := NewStoreFromConfig(config.StoreConfig{Type: "memory"}, "coop-1")
		if err != nil {
			t.Fatalf("NewStoreFromConfig() unexpected error: %v", err)
		}
		if got.Path() != ":memory:" {
			t.Errorf("Path() = %q, want %q", got.Path(), ":memory:")
		}
		if got.State() != agri.StateUninitialized {
			t.Errorf("State() = %v, want UNINITIALIZED", got.State())
		}
	})

	t.Run("sqlite store", func(t *testing.T) {
		dataDir := filepath.Join(t.TempDir(), "data")
		got, err := NewStoreFromConfig(config.StoreConfig{Type: "sqlite", DataDir: dataDir}, "coop-1")
		if err != nil {
			t.Fatalf("NewStoreFromConfig() unexpected error: %v", err)
		}
		if want := filepath.Join(dataDir, "coop-1.db"); got.Path() != want {
			t.Errorf("Path() = %q, want %q", got.Path(), want)
		}
	})

	t.Run("sqlite store without data_dir", func(t *testing.T) {
		got, err := NewStoreFromConfig(config.StoreConfig{Type: "sqlite"}, "coop-1")
		if err == nil {
			t.Error("NewStoreFromConfig() expected error for missing data_dir, got nil")
		}
		if got != nil {
			t.Error("NewStoreFromConfig() should return nil on error")
		}
	})

	t.Run("unknown store type", func(t *testing.T) {
		got, err := NewStoreFromConfig(config.StoreConfig{Type: "indexeddb"}, "coop-1")
		if err == nil {
			t.Error("NewStoreFromConfig() expected error for unknown type, got nil")
		}
		if got != nil {
			t.Error("NewStoreFromConfig() should return nil on error")
		}
	})
}
