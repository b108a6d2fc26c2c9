package testutil

import (
	"fc-go/internal/encryption"
	"fc-go/internal/fc"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() fc.Encryptor {
	return encryption.NewTestEncryptor()
}
