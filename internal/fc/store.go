package fc

import "time"

// Store provides the durable catalog for reference files, comparison runs,
// settings and the activity log. One Store owns one connection; it is injected
// into every component that needs it and serializes writes internally.
//
// Write operations report their outcome explicitly — an inserted id or an
// affected-row count — never through implicit call-context state.
type Store interface {
	// Reference files

	// AddReferenceFile inserts a catalog row from an ingest result and
	// returns the new row id.
	AddReferenceFile(meta *IngestResult, description, tags string) (int64, error)

	// ListReferenceFiles returns active entries ordered by upload time,
	// newest first. Soft-deleted rows are excluded.
	ListReferenceFiles() ([]ReferenceFile, error)

	// GetReferenceFile returns a reference file by id regardless of its
	// active flag, or nil if no such row exists.
	GetReferenceFile(id int64) (*ReferenceFile, error)

	// TouchReferenceUsage sets last_used to now and increments the usage
	// counter. Returns the number of affected rows.
	TouchReferenceUsage(id int64) (int64, error)

	// SoftDeleteReferenceFile clears the active flag. The row itself stays
	// so historical runs keep a resolvable reference pointer.
	SoftDeleteReferenceFile(id int64) (int64, error)

	// Comparison runs

	// SaveComparison inserts a full run row, serializing the result and
	// summary payloads, and returns the new row id.
	SaveComparison(run *ComparisonRun) (int64, error)

	// ComparisonHistory returns a page of runs joined with their reference
	// file names, newest first. List rows omit the heavy payloads.
	ComparisonHistory(limit, offset int) ([]HistoryEntry, error)

	// ComparisonDetails returns one run with payloads deserialized.
	// Returns ErrNotFound if no row matches.
	ComparisonDetails(id int64) (*ComparisonDetails, error)

	// MarkExported flips the export flag and records format and timestamp.
	MarkExported(id int64, format string) (int64, error)

	// Settings

	// Setting returns the value for key; ok is false when the key is absent.
	Setting(key string) (value string, ok bool, err error)

	// SetSetting upserts a setting by key, refreshing its update timestamp.
	SetSetting(key, value, description string) error

	// AllSettings returns every setting ordered by key.
	AllSettings() ([]Setting, error)

	// Activity log

	// LogActivity appends an audit entry and returns its id.
	LogActivity(entry ActivityEntry) (int64, error)

	// ActivityEntries returns a page of audit entries, newest first.
	ActivityEntries(limit, offset int) ([]ActivityEntry, error)

	// Maintenance

	// Statistics runs the aggregate queries. A failing query degrades its
	// field to a zero value instead of failing the whole call.
	Statistics() (*Statistics, error)

	// TrimActivityLog deletes audit entries older than the cutoff.
	TrimActivityLog(olderThan time.Time) (int64, error)

	// TrimComparisons deletes the oldest runs until at most maxRows remain.
	TrimComparisons(maxRows int) (int64, error)

	// Vacuum reclaims unused space after deletions.
	Vacuum() error

	// BackupTo writes a snapshot-consistent copy of the live store to
	// destPath without interrupting ongoing access.
	BackupTo(destPath string) error

	// Wipe hard-deletes all rows from every table, resets identity counters
	// and reclaims space. The only path where reference files are removed
	// physically; dependent runs cascade.
	Wipe() error

	// Path returns the store file path (":memory:" for in-memory stores).
	Path() string

	// Close closes the underlying connection.
	Close() error
}
