package vault

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileSystemVault(t *testing.T) {
	t.Run("creates directory structure", func(t *testing.T) {
		tmpDir := t.TempDir()
		root := filepath.Join(tmpDir, "vault")

		v, err := NewFileSystemVault("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		// Check backup directory was created
		if _, err := os.Stat(filepath.Join(root, "backups")); err != nil {
			t.Errorf("backups directory not created: %v", err)
		}

		if v.name != "test" {
			t.Errorf("name = %q, want %q", v.name, "test")
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		tmpDir := t.TempDir()

		_, err := NewFileSystemVault("test", tmpDir)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
	})
}

func TestFileSystemVault_PutBackup(t *testing.T) {
	tests := []struct {
		name       string
		backupName string
		data       string
		size       int64
		wantErr    bool
	}{
		{
			name:       "store backup successfully",
			backupName: "backup_1700000000000.db",
			data:       "hello world",
			size:       11,
			wantErr:    false,
		},
		{
			name:       "size mismatch",
			backupName: "backup_1700000000001.db",
			data:       "hello",
			size:       100,
			wantErr:    true,
		},
		{
			name:       "empty backup",
			backupName: "backup_1700000000002.db",
			data:       "",
			size:       0,
			wantErr:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewFileSystemVault("test", t.TempDir())
			if err != nil {
				t.Fatalf("NewFileSystemVault() error = %v", err)
			}

			err = v.PutBackup(tt.backupName, strings.NewReader(tt.data), tt.size)
			if (err != nil) != tt.wantErr {
				t.Errorf("PutBackup() error = %v, wantErr %v", err, tt.wantErr)
			}

			if !tt.wantErr {
				// Verify file exists with correct content
				data, err := os.ReadFile(filepath.Join(v.backupDir, tt.backupName))
				if err != nil {
					t.Fatalf("failed to read backup file: %v", err)
				}
				if string(data) != tt.data {
					t.Errorf("backup content = %q, want %q", string(data), tt.data)
				}
			}
		})
	}
}

func TestFileSystemVault_PutBackup_NoTempFileLeftover(t *testing.T) {
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	// A size mismatch must not leave a temp file behind
	if err := v.PutBackup("backup.db", strings.NewReader("short"), 999); err == nil {
		t.Fatal("PutBackup() expected error for size mismatch, got nil")
	}

	entries, err := os.ReadDir(v.backupDir)
	if err != nil {
		t.Fatalf("failed to read backup dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("backup dir has %d leftover entries, want 0", len(entries))
	}
}

func TestFileSystemVault_GetBackup(t *testing.T) {
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	data := "backup payload"
	if err := v.PutBackup("backup_1.db", strings.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("PutBackup() error = %v", err)
	}

	var buf bytes.Buffer
	if err := v.GetBackup("backup_1.db", &buf); err != nil {
		t.Fatalf("GetBackup() error = %v", err)
	}
	if buf.String() != data {
		t.Errorf("GetBackup() = %q, want %q", buf.String(), data)
	}
}

func TestFileSystemVault_GetBackupNotFound(t *testing.T) {
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	var buf bytes.Buffer
	if err := v.GetBackup("missing.db", &buf); err == nil {
		t.Error("GetBackup() expected error for missing backup, got nil")
	}
}

func TestFileSystemVault_ListBackups(t *testing.T) {
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	for _, name := range []string{
		"backup_1700000000001.db",
		"backup_1700000000000.db",
		"backup_1700000000002.db",
	} {
		if err := v.PutBackup(name, strings.NewReader("x"), 1); err != nil {
			t.Fatalf("PutBackup(%s) error = %v", name, err)
		}
	}

	names, err := v.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
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

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	t.Run("valid setup", func(t *testing.T) {
		v, err := NewFileSystemVault("test", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		if err := v.ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("missing backup directory", func(t *testing.T) {
		v, err := NewFileSystemVault("test", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		if err := os.RemoveAll(v.backupDir); err != nil {
			t.Fatalf("failed to remove backup dir: %v", err)
		}

		if err := v.ValidateSetup(); err == nil {
			t.Error("ValidateSetup() expected error for missing backup dir, got nil")
		}
	})
}
