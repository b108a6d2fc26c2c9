package testutil

import (
	"fc-go/internal/fc"
	"fc-go/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() fc.Vault {
	return vault.NewMemoryVault("test-vault")
}
