package testutil

import (
	"agri-sentinel/internal/agri"
	"agri-sentinel/internal/encryption"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() agri.Encryptor {
	return encryption.NewTestEncryptor()
}
