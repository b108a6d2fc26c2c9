package files

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fc-go/internal/fc"
)

// Manager is the filesystem half of the file lifecycle. It owns three managed
// directories under one data root:
//
//	<root>/
//	  reference_files/   (ingested reference file bodies)
//	  temp/              (disposable scratch space)
//	  exports/           (rendered comparison reports)
type Manager struct {
	referenceDir string
	tempDir      string
	exportDir    string
	clock        fc.Clock
}

// NewManager creates a Manager rooted at the given data directory, creating
// the managed directories as needed.
func NewManager(root string, clock fc.Clock) (*Manager, error) {
	m := &Manager{
		referenceDir: filepath.Join(root, "reference_files"),
		tempDir:      filepath.Join(root, "temp"),
		exportDir:    filepath.Join(root, "exports"),
		clock:        clock,
	}

	for _, dir := range []string{m.referenceDir, m.tempDir, m.exportDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating managed directory: %w", err)
		}
	}
	return m, nil
}

// SaveReferenceFile copies uploaded bytes into managed storage, fingerprints
// them and sniffs the structure best-effort. The storage name embeds the
// ingest timestamp, so uniqueness needs no catalog lookup.
func (m *Manager) SaveReferenceFile(data []byte, originalName string, size int64, mediaType string) (*fc.IngestResult, error) {
	ext := filepath.Ext(originalName)
	base := strings.TrimSuffix(filepath.Base(originalName), ext)
	name := fmt.Sprintf("%s_%d%s", base, m.clock.Now().UnixMilli(), ext)
	path := filepath.Join(m.referenceDir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("writing reference file: %w", err)
	}

	sum := sha256.Sum256(data)

	rowCount, columnCount := sniffStructure(data, mediaType)

	return &fc.IngestResult{
		Name:         name,
		OriginalName: originalName,
		Path:         path,
		Size:         size,
		MediaType:    mediaType,
		Checksum:     hex.EncodeToString(sum[:]),
		RowCount:     rowCount,
		ColumnCount:  columnCount,
	}, nil
}

// ReferenceFilePath returns the absolute path for a stored name, or "" if the
// body does not exist.
func (m *Manager) ReferenceFilePath(name string) string {
	path := filepath.Join(m.referenceDir, name)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// DeleteReferenceFile removes the stored body. Best-effort: a failure returns
// false so the caller can still proceed with the catalog soft-delete.
func (m *Manager) DeleteReferenceFile(name string) bool {
	err := os.Remove(filepath.Join(m.referenceDir, name))
	return err == nil || os.IsNotExist(err)
}

// SaveTempFile writes scratch bytes for in-flight work and returns the path.
func (m *Manager) SaveTempFile(data []byte, originalName, suffix string) (string, error) {
	ext := filepath.Ext(originalName)
	base := strings.TrimSuffix(filepath.Base(originalName), ext)
	name := fmt.Sprintf("%s_temp_%d%s%s", base, m.clock.Now().UnixMilli(), suffix, ext)
	path := filepath.Join(m.tempDir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	return path, nil
}

// CleanTempFiles empties the scratch directory. Temp files are fully
// disposable, so this is safe whenever no ingest or export is in flight.
func (m *Manager) CleanTempFiles() error {
	entries, err := os.ReadDir(m.tempDir)
	if err != nil {
		return fmt.Errorf("reading temp directory: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(m.tempDir, entry.Name())); err != nil {
			return fmt.Errorf("removing temp file %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// DiskUsage sums file sizes per managed directory. Read-only.
func (m *Manager) DiskUsage() (*fc.DiskUsage, error) {
	usage := &fc.DiskUsage{}

	for _, d := range []struct {
		dir  string
		dest *int64
	}{
		{m.referenceDir, &usage.ReferenceFiles},
		{m.tempDir, &usage.TempFiles},
		{m.exportDir, &usage.Exports},
	} {
		size, err := dirSize(d.dir)
		if err != nil {
			return nil, err
		}
		*d.dest = size
	}

	usage.Total = usage.ReferenceFiles + usage.TempFiles + usage.Exports
	return usage, nil
}

func dirSize(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var total int64
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return 0, fmt.Errorf("reading file info for %s: %w", entry.Name(), err)
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
	}
	return total, nil
}

// MediaTypeForName maps a file name to the media type recorded in the
// catalog. Unknown extensions fall back to application/octet-stream.
func MediaTypeForName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".tsv":
		return "text/tab-separated-values"
	case ".txt":
		return "text/plain"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// separators tried against the header line during structural sniffing.
var separators = []string{",", ";", "\t", "|"}

// sniffStructure reports row and column counts for delimited text.
// Spreadsheet-family types have no structural parser wired up and report 0/0;
// that is an accepted limitation, not an error.
func sniffStructure(data []byte, mediaType string) (rows, columns int) {
	if strings.Contains(mediaType, "spreadsheet") || strings.Contains(mediaType, "excel") {
		return 0, 0
	}
	if !isDelimitedText(mediaType) {
		return 0, 0
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return 0, 0
	}

	// Non-blank lines minus the header.
	rows = len(lines) - 1

	// Pick whichever candidate separator yields the most header columns.
	for _, sep := range separators {
		if n := len(strings.Split(lines[0], sep)); n > columns {
			columns = n
		}
	}
	return rows, columns
}

func isDelimitedText(mediaType string) bool {
	switch {
	case mediaType == "text/csv",
		mediaType == "text/tab-separated-values",
		strings.HasPrefix(mediaType, "text/plain"):
		return true
	}
	return false
}

// Compile-time check that Manager implements the fc.FileStore interface.
var _ fc.FileStore = (*Manager)(nil)
