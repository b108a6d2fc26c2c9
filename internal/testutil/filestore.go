package testutil

import (
	"testing"

	"fc-go/internal/fc"
	"fc-go/internal/files"
)

// NewTestFileManager creates a file manager rooted in a per-test temp
// directory. The directory is removed when the test completes.
func NewTestFileManager(t *testing.T, clock fc.Clock) *files.Manager {
	t.Helper()

	m, err := files.NewManager(t.TempDir(), clock)
	if err != nil {
		t.Fatalf("failed to create file manager: %v", err)
	}
	return m
}
