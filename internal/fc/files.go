package fc

// FileStore manages the physical side of the file lifecycle: reference file
// bodies, scratch files, rendered exports and their disk usage. All paths live
// under one application data root; callers never touch the directories directly.
type FileStore interface {
	// SaveReferenceFile copies uploaded bytes into managed storage under a
	// generated unique name, fingerprints them, and sniffs row/column
	// structure best-effort. Any IO failure aborts the ingest; no catalog
	// entry exists yet at that point.
	SaveReferenceFile(data []byte, originalName string, size int64, mediaType string) (*IngestResult, error)

	// ReferenceFilePath returns the absolute path for a stored reference
	// file name, or "" if no such file exists.
	ReferenceFilePath(name string) string

	// DeleteReferenceFile removes the stored body. Best-effort: returns
	// false instead of an error so callers can proceed with the catalog
	// soft-delete regardless.
	DeleteReferenceFile(name string) bool

	// SaveTempFile writes scratch bytes for in-flight work and returns the
	// path. Temp files are fully disposable.
	SaveTempFile(data []byte, originalName, suffix string) (string, error)

	// CleanTempFiles empties the scratch directory.
	CleanTempFiles() error

	// ExportReport renders a stored comparison result into the given format
	// ("json", "txt" or "csv") and returns the export path. An unknown
	// format is an error.
	ExportReport(result *ComparisonResult, baseName, format string) (string, error)

	// DiskUsage sums file sizes per managed directory.
	DiskUsage() (*DiskUsage, error)
}
