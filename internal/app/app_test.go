package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fc-go/internal/config"
	"fc-go/internal/fc"
	"fc-go/internal/testutil"
)

func newTestApp(t *testing.T) *FCApp {
	t.Helper()

	cfg := config.NewConfig("test-install", t.TempDir())
	cfg.Encryption.Type = "test"
	cfg.Vaults = []config.VaultConfig{{Type: "memory", Name: "test-vault"}}

	a, err := NewFCApp(cfg, "Test")
	if err != nil {
		t.Fatalf("NewFCApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestFCApp_Lifecycle(t *testing.T) {
	a := newTestApp(t)

	// Ingest a reference file from disk.
	path := writeCSV(t, "q1.csv", "name,amount\nalice,10\nbob,20\n")
	ref, err := a.AddReferenceFile(path, "first quarter", "finance")
	if err != nil {
		t.Fatalf("AddReferenceFile() error = %v", err)
	}
	if ref.OriginalName != "q1.csv" || ref.MediaType != "text/csv" {
		t.Errorf("ref = %+v, want q1.csv ingested as text/csv", ref)
	}
	if ref.RowCount != 2 || ref.ColumnCount != 2 {
		t.Errorf("structure = %dx%d, want 2 rows and 2 columns", ref.RowCount, ref.ColumnCount)
	}

	refs, err := a.ListReferenceFiles()
	if err != nil {
		t.Fatalf("ListReferenceFiles() error = %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("ListReferenceFiles() = %d entries, want 1", len(refs))
	}

	// Record a comparison run against the ingested reference.
	runID, err := a.service.SaveComparison(&fc.ComparisonRun{
		ReferenceFileID:  &ref.ID,
		CompareFileName:  "q2.csv",
		TotalDifferences: 1,
		Result: &fc.ComparisonResult{
			Summary:     fc.ResultSummary{Differences: 1},
			Differences: []fc.Difference{{Type: "modified", Position: "B2", Description: "changed"}},
		},
	})
	if err != nil {
		t.Fatalf("SaveComparison() error = %v", err)
	}

	history, err := a.ComparisonHistory(10, 0)
	if err != nil {
		t.Fatalf("ComparisonHistory() error = %v", err)
	}
	if len(history) != 1 || history[0].ID != runID {
		t.Fatalf("history = %+v, want the saved run", history)
	}
	if history[0].ReferenceName != ref.Name {
		t.Errorf("joined reference name = %q, want %q", history[0].ReferenceName, ref.Name)
	}

	// Export the run and verify the rendered file.
	exportPath, err := a.ExportComparison(runID, "json")
	if err != nil {
		t.Fatalf("ExportComparison() error = %v", err)
	}
	if _, err := os.Stat(exportPath); err != nil {
		t.Errorf("export file missing: %v", err)
	}
	details, err := a.ComparisonDetails(runID)
	if err != nil {
		t.Fatalf("ComparisonDetails() error = %v", err)
	}
	if !details.Exported || details.ExportFormat != "json" {
		t.Errorf("export status = (%v, %q), want (true, json)", details.Exported, details.ExportFormat)
	}

	// Settings round trip.
	if err := a.SetSetting("theme", "dark", ""); err != nil {
		t.Fatalf("SetSetting() error = %v", err)
	}
	value, ok, err := a.Setting("theme")
	if err != nil || !ok || value != "dark" {
		t.Errorf("Setting(theme) = (%q, %v, %v), want dark", value, ok, err)
	}

	// Mutations so far must be visible in the audit trail.
	entries, err := a.ActivityEntries(50, 0)
	if err != nil {
		t.Fatalf("ActivityEntries() error = %v", err)
	}
	if len(entries) < 2 {
		t.Errorf("ActivityEntries() = %d entries, want ingest and save audited", len(entries))
	}

	stats, err := a.Statistics()
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.ActiveReferenceFiles != 1 || stats.TotalComparisons != 1 {
		t.Errorf("stats = %+v, want 1 reference and 1 comparison", stats)
	}

	usage, err := a.DiskUsage()
	if err != nil {
		t.Fatalf("DiskUsage() error = %v", err)
	}
	if usage.ReferenceFiles == 0 || usage.Exports == 0 {
		t.Errorf("usage = %+v, want reference and export bytes counted", usage)
	}

	if err := a.Maintain(); err != nil {
		t.Fatalf("Maintain() error = %v", err)
	}

	// Soft delete, then wipe back to a seeded store.
	affected, err := a.RemoveReferenceFile(ref.ID)
	if err != nil {
		t.Fatalf("RemoveReferenceFile() error = %v", err)
	}
	if affected != 1 {
		t.Errorf("affected = %d, want 1", affected)
	}

	if err := a.Wipe(); err != nil {
		t.Fatalf("Wipe() error = %v", err)
	}
	refs, err = a.ListReferenceFiles()
	if err != nil {
		t.Fatalf("ListReferenceFiles() error = %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("ListReferenceFiles() = %d entries after wipe, want 0", len(refs))
	}
	if _, ok, err := a.Setting("theme"); err != nil || !ok {
		t.Error("defaults not reseeded after wipe")
	}
}

func TestFCApp_SaveComparisonResult(t *testing.T) {
	a := newTestApp(t)

	refPath := writeCSV(t, "q1.csv", "a,b\n1,2\n")
	ref, err := a.AddReferenceFile(refPath, "", "")
	if err != nil {
		t.Fatalf("AddReferenceFile() error = %v", err)
	}

	result := fc.ComparisonResult{
		Identical: false,
		Summary:   fc.ResultSummary{Differences: 2, ModifiedCells: 2},
		Differences: []fc.Difference{
			{Type: "modified", Position: "B2", Description: "changed"},
			{Type: "modified", Position: "B3", Description: "changed"},
		},
		Metadata: fc.ResultMetadata{CompareFileName: "q1_new.csv", ProcessingTime: "0.25s"},
	}
	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshaling fixture: %v", err)
	}
	resultPath := filepath.Join(t.TempDir(), "result.json")
	if err := os.WriteFile(resultPath, data, 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	id, err := a.SaveComparisonResult(resultPath, ref.ID, "spot check")
	if err != nil {
		t.Fatalf("SaveComparisonResult() error = %v", err)
	}

	details, err := a.ComparisonDetails(id)
	if err != nil {
		t.Fatalf("ComparisonDetails() error = %v", err)
	}
	if details.CompareFileName != "q1_new.csv" {
		t.Errorf("CompareFileName = %q, want %q", details.CompareFileName, "q1_new.csv")
	}
	if details.TotalDifferences != 2 || details.ModifiedCells != 2 {
		t.Errorf("counters = (%d, %d), want (2, 2)", details.TotalDifferences, details.ModifiedCells)
	}
	if details.Notes != "spot check" {
		t.Errorf("Notes = %q, want %q", details.Notes, "spot check")
	}
	if details.ReferenceName != ref.Name {
		t.Errorf("joined reference name = %q, want %q", details.ReferenceName, ref.Name)
	}
	if details.Result == nil || len(details.Result.Differences) != 2 {
		t.Error("result payload not persisted with the run")
	}

	// Linking the run bumped the reference's usage bookkeeping.
	refs, err := a.ListReferenceFiles()
	if err != nil {
		t.Fatalf("ListReferenceFiles() error = %v", err)
	}
	if refs[0].UsageCount != 1 {
		t.Errorf("UsageCount = %d, want 1", refs[0].UsageCount)
	}

	t.Run("rejects malformed result file", func(t *testing.T) {
		badPath := filepath.Join(t.TempDir(), "broken.json")
		if err := os.WriteFile(badPath, []byte("not a result"), 0644); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
		if _, err := a.SaveComparisonResult(badPath, 0, ""); err == nil {
			t.Error("SaveComparisonResult() expected error for malformed file, got nil")
		}
	})

	t.Run("missing result file", func(t *testing.T) {
		if _, err := a.SaveComparisonResult(filepath.Join(t.TempDir(), "absent.json"), 0, ""); err == nil {
			t.Error("SaveComparisonResult() expected error for missing file, got nil")
		}
	})
}

func TestFCApp_EncryptedBackup(t *testing.T) {
	a := newTestApp(t)

	dest, err := a.Backup()
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if !strings.HasSuffix(dest, ".db.age") {
		t.Fatalf("backup path = %q, want encrypted snapshot", dest)
	}

	// Ciphertext, not a raw SQLite file.
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if bytes.HasPrefix(data, []byte("SQLite format 3")) {
		t.Error("backup is plaintext")
	}

	// The encrypted snapshot was pushed off-site.
	names, err := a.ListVaultBackups()
	if err != nil {
		t.Fatalf("ListVaultBackups() error = %v", err)
	}
	if len(names) != 1 || names[0] != filepath.Base(dest) {
		t.Errorf("vault backups = %v, want [%s]", names, filepath.Base(dest))
	}
	if err := a.ValidateVault(); err != nil {
		t.Errorf("ValidateVault() error = %v", err)
	}

	// Round trip back to a readable database file.
	outPath := filepath.Join(t.TempDir(), "restored.db")
	if err := a.DecryptBackup(dest, outPath, "passphrase"); err != nil {
		t.Fatalf("DecryptBackup() error = %v", err)
	}
	restored, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading restored backup: %v", err)
	}
	if !bytes.HasPrefix(restored, []byte("SQLite format 3")) {
		t.Error("restored backup is not a SQLite database")
	}
}

func TestFCApp_MaintainEvery(t *testing.T) {
	a := newTestApp(t)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	err := a.MaintainEvery(ctx, 10*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("MaintainEvery() error = %v, want deadline exceeded", err)
	}

	// At least one pass ran and was audited.
	entries, err := a.ActivityEntries(50, 0)
	if err != nil {
		t.Fatalf("ActivityEntries() error = %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Action == fc.ActionMaintenance && e.Success {
			found = true
			break
		}
	}
	if !found {
		t.Error("no maintenance entry recorded by the scheduler")
	}
}

// The service against a real store, with a deterministic clock.
func TestServiceWithSQLiteStore(t *testing.T) {
	clock := testutil.FixedClock()
	store := testutil.NewTestStore(t, clock)
	mgr := testutil.NewTestFileManager(t, clock)
	svc := fc.NewService(store, mgr, testutil.NewTestVault(), testutil.NewTestEncryptor(), fc.NewNopLogger(), clock)

	data := []byte("name,amount\nalice,10\nbob,20\n")
	ref, err := svc.AddReferenceFile(data, "sales.csv", int64(len(data)), "text/csv", "", "")
	if err != nil {
		t.Fatalf("AddReferenceFile() error = %v", err)
	}
	if ref.Name != "sales_1705314600000.csv" {
		t.Errorf("Name = %q, want clock-stamped storage name", ref.Name)
	}
	if ref.Checksum != testutil.SHA256Hex(data) {
		t.Errorf("Checksum = %q, want sha256 of content", ref.Checksum)
	}

	clock.Advance(time.Minute)
	runID, err := svc.SaveComparison(&fc.ComparisonRun{
		ReferenceFileID: &ref.ID,
		CompareFileName: "sales_new.csv",
		Identical:       true,
		Result:          &fc.ComparisonResult{Identical: true},
	})
	if err != nil {
		t.Fatalf("SaveComparison() error = %v", err)
	}

	// The save updated the reference's usage bookkeeping.
	used, err := store.GetReferenceFile(ref.ID)
	if err != nil {
		t.Fatalf("GetReferenceFile() error = %v", err)
	}
	if used.UsageCount != 1 {
		t.Errorf("UsageCount = %d, want 1", used.UsageCount)
	}
	if used.LastUsed == nil || !used.LastUsed.Equal(clock.Now()) {
		t.Errorf("LastUsed = %v, want %v", used.LastUsed, clock.Now())
	}

	exportPath, err := svc.ExportComparison(runID, "txt")
	if err != nil {
		t.Fatalf("ExportComparison() error = %v", err)
	}
	if _, err := os.Stat(exportPath); err != nil {
		t.Errorf("export file missing: %v", err)
	}

	if err := svc.Maintain(); err != nil {
		t.Fatalf("Maintain() error = %v", err)
	}
}
