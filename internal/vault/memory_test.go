package vault

import (
	"bytes"
	"strings"
	"testing"
)

func TestMemoryVault_PutAndGetBackup(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	tests := []struct {
		name       string
		backupName string
		content    string
		wantErr    bool
	}{
		{
			name:       "store and retrieve backup",
			backupName: "backup_1700000000000.db",
			content:    "hello world",
			wantErr:    false,
		},
		{
			name:       "store empty backup",
			backupName: "backup_1700000000001.db",
			content:    "",
			wantErr:    false,
		},
		{
			name:       "store large backup",
			backupName: "backup_1700000000002.db",
			content:    strings.Repeat("x", 10000),
			wantErr:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Put backup
			r := strings.NewReader(tt.content)
			err := vault.PutBackup(tt.backupName, r, int64(len(tt.content)))
			if (err != nil) != tt.wantErr {
				t.Errorf("PutBackup() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				return
			}

			// Get backup
			var buf bytes.Buffer
			err = vault.GetBackup(tt.backupName, &buf)
			if err != nil {
				t.Errorf("GetBackup() unexpected error: %v", err)
				return
			}

			if got := buf.String(); got != tt.content {
				t.Errorf("GetBackup() = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestMemoryVault_PutBackupOverwrite(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	name := "backup_1700000000000.db"

	// Store twice under the same name
	for i, content := range []string{"first", "second"} {
		r := strings.NewReader(content)
		err := vault.PutBackup(name, r, int64(len(content)))
		if err != nil {
			t.Fatalf("PutBackup() iteration %d error: %v", i+1, err)
		}
	}

	// Latest write wins
	var buf bytes.Buffer
	err := vault.GetBackup(name, &buf)
	if err != nil {
		t.Fatalf("GetBackup() error: %v", err)
	}

	if got := buf.String(); got != "second" {
		t.Errorf("GetBackup() = %q, want %q", got, "second")
	}
}

func TestMemoryVault_GetBackupNotFound(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	var buf bytes.Buffer
	err := vault.GetBackup("nonexistent", &buf)
	if err == nil {
		t.Error("GetBackup() expected error for nonexistent backup, got nil")
	}
}

func TestMemoryVault_PutBackupSizeMismatch(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	content := "test"
	r := strings.NewReader(content)
	// Pass wrong size
	err := vault.PutBackup("backup.db", r, int64(len(content)+10))
	if err == nil {
		t.Error("PutBackup() expected error for size mismatch, got nil")
	}
}

func TestMemoryVault_ListBackups(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	for _, name := range []string{
		"backup_1700000000000.db",
		"backup_1700000000002.db",
		"backup_1700000000001.db",
	} {
		if err := vault.PutBackup(name, strings.NewReader("x"), 1); err != nil {
			t.Fatalf("PutBackup(%s) error: %v", name, err)
		}
	}

	names, err := vault.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups() error: %v", err)
	}

	want := []string{
		"backup_1700000000002.db",
		"backup_1700000000001.db",
		"backup_1700000000000.db",
	}
	if len(names) != len(want) {
		t.Fatalf("ListBackups() returned %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ListBackups()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestMemoryVault_ValidateSetup(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	err := vault.ValidateSetup()
	if err != nil {
		t.Errorf("ValidateSetup() unexpected error: %v", err)
	}
}
