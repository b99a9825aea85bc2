package database

import (
	"fmt"
	"os"
	"path/filepath"

	"agri-sentinel/internal/config"
)

// StoreFileName is the name of the store file inside the data directory.
func StoreFileName(deviceID string) string {
	return deviceID + ".db"
}

// NewStoreFromConfig creates an uninitialized store based on the store config type.
func NewStoreFromConfig(cfg config.StoreConfig, deviceID string) (*SQLiteStore, error) {
	switch cfg.Type {
	case "sqlite", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite store")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, StoreFileName(deviceID))), nil
	case "memory":
		return NewSQLiteStore(":memory:"), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
