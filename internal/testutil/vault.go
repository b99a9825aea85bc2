package testutil

import (
	"agri-sentinel/internal/agri"
	"agri-sentinel/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() agri.Vault {
	return vault.NewMemoryVault("test-vault")
}
