package fc

import "io"

// Vault is an off-site target for store backups. Implementations stream data
// through io.Reader/io.Writer so large backup files never need to fit in memory.
type Vault interface {
	// PutBackup stores a backup under the given file name.
	// size is the number of bytes that will be read from r.
	PutBackup(name string, r io.Reader, size int64) error

	// GetBackup retrieves a backup by name and writes it to w.
	GetBackup(name string, w io.Writer) error

	// ListBackups returns the stored backup names, newest first.
	ListBackups() ([]string, error)

	// ValidateSetup verifies that the vault is accessible and properly
	// configured.
	ValidateSetup() error
}
