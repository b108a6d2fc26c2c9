package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fc-go/internal/database/migrations"
	"fc-go/internal/fc"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the fc.Store interface using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	clock fc.Clock
}

// NewSQLiteStore creates a new SQLite store connection.
// path can be a file path or ":memory:" for an in-memory store.
func NewSQLiteStore(path string, clock fc.Clock) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteStore{
		db:    db,
		path:  path,
		clock: clock,
	}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB, clock fc.Clock) *SQLiteStore {
	return &SQLiteStore{
		db:    db,
		path:  "",
		clock: clock,
	}
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a properly configured
// connection. path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	// Single-writer discipline: the store is accessed through one connection
	// so a write in progress is never observed partially. This also keeps
	// ":memory:" stores coherent (each pooled connection would otherwise get
	// its own empty database).
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configuring store (%s): %w", pragma, err)
		}
	}

	return db, nil
}

// Reference file operations

func (s *SQLiteStore) AddReferenceFile(meta *fc.IngestResult, description, tags string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO reference_files
			(name, original_name, file_path, file_size, mime_type, row_count,
			 column_count, description, tags, checksum, upload_date, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		meta.Name, meta.OriginalName, meta.Path, meta.Size, meta.MediaType,
		meta.RowCount, meta.ColumnCount, nullString(description), nullString(tags),
		meta.Checksum, s.clock.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting reference file: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted reference file id: %w", err)
	}
	return id, nil
}

const referenceFileColumns = `
	id, name, original_name, file_path, file_size, mime_type, row_count,
	column_count, COALESCE(description, ''), COALESCE(tags, ''),
	COALESCE(checksum, ''), upload_date, last_used, usage_count, is_active`

func (s *SQLiteStore) ListReferenceFiles() ([]fc.ReferenceFile, error) {
	rows, err := s.db.Query(`
		SELECT ` + referenceFileColumns + `
		FROM reference_files
		WHERE is_active = 1
		ORDER BY upload_date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing reference files: %w", err)
	}
	defer rows.Close()

	var files []fc.ReferenceFile
	for rows.Next() {
		ref, err := scanReferenceFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reference file: %w", err)
		}
		files = append(files, *ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reference files: %w", err)
	}
	return files, nil
}

func (s *SQLiteStore) GetReferenceFile(id int64) (*fc.ReferenceFile, error) {
	row := s.db.QueryRow(`
		SELECT `+referenceFileColumns+`
		FROM reference_files
		WHERE id = ?`, id)

	ref, err := scanReferenceFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding reference file by id: %w", err)
	}
	return ref, nil
}

func (s *SQLiteStore) TouchReferenceUsage(id int64) (int64, error) {
	res, err := s.db.Exec(`
		UPDATE reference_files
		SET last_used = ?, usage_count = usage_count + 1
		WHERE id = ?`,
		s.clock.Now().UTC(), id,
	)
	if err != nil {
		return 0, fmt.Errorf("updating reference usage: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) SoftDeleteReferenceFile(id int64) (int64, error) {
	res, err := s.db.Exec(`UPDATE reference_files SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("soft-deleting reference file: %w", err)
	}
	return res.RowsAffected()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanReferenceFile(row scanner) (*fc.ReferenceFile, error) {
	var ref fc.ReferenceFile
	var lastUsed sql.NullTime
	err := row.Scan(
		&ref.ID, &ref.Name, &ref.OriginalName, &ref.Path, &ref.Size,
		&ref.MediaType, &ref.RowCount, &ref.ColumnCount, &ref.Description,
		&ref.Tags, &ref.Checksum, &ref.UploadedAt, &lastUsed,
		&ref.UsageCount, &ref.Active,
	)
	if err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		ref.LastUsed = &t
	}
	return &ref, nil
}

// Comparison run operations

func (s *SQLiteStore) SaveComparison(run *fc.ComparisonRun) (int64, error) {
	resultData, err := marshalResult(run.Result)
	if err != nil {
		return 0, fmt.Errorf("serializing result payload: %w", err)
	}
	summaryData, err := marshalSummary(run.Summary)
	if err != nil {
		return 0, fmt.Errorf("serializing summary payload: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO comparisons
			(reference_file_id, compare_file_name, compare_file_path,
			 compare_file_size, comparison_date, processing_time,
			 total_differences, modified_cells, added_rows, removed_rows,
			 added_columns, removed_columns, unique_in_reference,
			 unique_in_compare, identical, result_data, summary_data, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt64Ptr(run.ReferenceFileID), run.CompareFileName,
		nullString(run.CompareFilePath), run.CompareFileSize,
		s.clock.Now().UTC(), run.ProcessingTime,
		run.TotalDifferences, run.ModifiedCells, run.AddedRows,
		run.RemovedRows, run.AddedColumns, run.RemovedColumns,
		run.UniqueInReference, run.UniqueInCompare, run.Identical,
		resultData, summaryData, nullString(run.Notes),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting comparison: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted comparison id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) ComparisonHistory(limit, offset int) ([]fc.HistoryEntry, error) {
	// List rows deliberately omit result_data/summary_data: the payloads are
	// large and only materialize on detail fetch.
	rows, err := s.db.Query(`
		SELECT
			c.id, c.reference_file_id, c.compare_file_name,
			COALESCE(c.compare_file_size, 0), c.comparison_date,
			c.processing_time, c.total_differences, c.modified_cells,
			c.added_rows, c.removed_rows, c.added_columns, c.removed_columns,
			c.unique_in_reference, c.unique_in_compare, c.identical,
			c.exported, COALESCE(c.export_format, ''), c.export_date,
			COALESCE(c.notes, ''),
			COALESCE(rf.name, ''), COALESCE(rf.original_name, '')
		FROM comparisons c
		LEFT JOIN reference_files rf ON c.reference_file_id = rf.id
		ORDER BY c.comparison_date DESC, c.id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing comparison history: %w", err)
	}
	defer rows.Close()

	var entries []fc.HistoryEntry
	for rows.Next() {
		var e fc.HistoryEntry
		var refID sql.NullInt64
		var exportedAt sql.NullTime
		err := rows.Scan(
			&e.ID, &refID, &e.CompareFileName, &e.CompareFileSize, &e.RunAt,
			&e.ProcessingTime, &e.TotalDifferences, &e.ModifiedCells,
			&e.AddedRows, &e.RemovedRows, &e.AddedColumns, &e.RemovedColumns,
			&e.UniqueInReference, &e.UniqueInCompare, &e.Identical,
			&e.Exported, &e.ExportFormat, &exportedAt, &e.Notes,
			&e.ReferenceName, &e.ReferenceOriginalName,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		if refID.Valid {
			id := refID.Int64
			e.ReferenceFileID = &id
		}
		if exportedAt.Valid {
			t := exportedAt.Time
			e.ExportedAt = &t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comparison history: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) ComparisonDetails(id int64) (*fc.ComparisonDetails, error) {
	row := s.db.QueryRow(`
		SELECT
			c.id, c.reference_file_id, c.compare_file_name,
			COALESCE(c.compare_file_path, ''), COALESCE(c.compare_file_size, 0),
			c.comparison_date, c.processing_time, c.total_differences,
			c.modified_cells, c.added_rows, c.removed_rows, c.added_columns,
			c.removed_columns, c.unique_in_reference, c.unique_in_compare,
			c.identical, c.exported, COALESCE(c.export_format, ''),
			c.export_date, COALESCE(c.notes, ''),
			c.result_data, c.summary_data,
			COALESCE(rf.name, ''), COALESCE(rf.original_name, ''),
			COALESCE(rf.file_path, '')
		FROM comparisons c
		LEFT JOIN reference_files rf ON c.reference_file_id = rf.id
		WHERE c.id = ?`, id)

	var d fc.ComparisonDetails
	var refID sql.NullInt64
	var exportedAt sql.NullTime
	var resultData, summaryData sql.NullString
	err := row.Scan(
		&d.ID, &refID, &d.CompareFileName, &d.CompareFilePath,
		&d.CompareFileSize, &d.RunAt, &d.ProcessingTime, &d.TotalDifferences,
		&d.ModifiedCells, &d.AddedRows, &d.RemovedRows, &d.AddedColumns,
		&d.RemovedColumns, &d.UniqueInReference, &d.UniqueInCompare,
		&d.Identical, &d.Exported, &d.ExportFormat, &exportedAt, &d.Notes,
		&resultData, &summaryData,
		&d.ReferenceName, &d.ReferenceOriginalName, &d.ReferenceFilePath,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("comparison %d: %w", id, fc.ErrNotFound)
		}
		return nil, fmt.Errorf("finding comparison by id: %w", err)
	}

	if refID.Valid {
		rid := refID.Int64
		d.ReferenceFileID = &rid
	}
	if exportedAt.Valid {
		t := exportedAt.Time
		d.ExportedAt = &t
	}
	if resultData.Valid && resultData.String != "" {
		d.Result = &fc.ComparisonResult{}
		if err := json.Unmarshal([]byte(resultData.String), d.Result); err != nil {
			return nil, fmt.Errorf("deserializing result payload: %w", err)
		}
	}
	if summaryData.Valid && summaryData.String != "" {
		d.Summary = &fc.ResultSummary{}
		if err := json.Unmarshal([]byte(summaryData.String), d.Summary); err != nil {
			return nil, fmt.Errorf("deserializing summary payload: %w", err)
		}
	}
	return &d, nil
}

func (s *SQLiteStore) MarkExported(id int64, format string) (int64, error) {
	res, err := s.db.Exec(`
		UPDATE comparisons
		SET exported = 1, export_format = ?, export_date = ?
		WHERE id = ?`,
		format, s.clock.Now().UTC(), id,
	)
	if err != nil {
		return 0, fmt.Errorf("marking comparison exported: %w", err)
	}
	return res.RowsAffected()
}

// Settings operations

func (s *SQLiteStore) Setting(key string) (string, bool, error) {
	var value sql.NullString
	err := s.db.QueryRow(`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading setting %q: %w", key, err)
	}
	return value.String, true, nil
}

func (s *SQLiteStore) SetSetting(key, value, description string) error {
	_, err := s.db.Exec(`
		INSERT INTO app_settings (key, value, description, updated_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			description = excluded.description,
			updated_date = excluded.updated_date`,
		key, value, nullString(description), s.clock.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing setting %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) AllSettings() ([]fc.Setting, error) {
	rows, err := s.db.Query(`
		SELECT key, COALESCE(value, ''), COALESCE(description, ''), updated_date
		FROM app_settings
		ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	var settings []fc.Setting
	for rows.Next() {
		var st fc.Setting
		if err := rows.Scan(&st.Key, &st.Value, &st.Description, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		settings = append(settings, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settings: %w", err)
	}
	return settings, nil
}

// Activity log operations

func (s *SQLiteStore) LogActivity(entry fc.ActivityEntry) (int64, error) {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = s.clock.Now().UTC()
	}

	res, err := s.db.Exec(`
		INSERT INTO activity_logs (action, details, timestamp, file_name, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Action, nullString(entry.Details), ts, nullString(entry.FileName),
		entry.Success, nullString(entry.ErrorMessage),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting activity entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted activity entry id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) ActivityEntries(limit, offset int) ([]fc.ActivityEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, action, COALESCE(details, ''), timestamp,
			COALESCE(file_name, ''), success, COALESCE(error_message, '')
		FROM activity_logs
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing activity entries: %w", err)
	}
	defer rows.Close()

	var entries []fc.ActivityEntry
	for rows.Next() {
		var e fc.ActivityEntry
		err := rows.Scan(&e.ID, &e.Action, &e.Details, &e.Timestamp,
			&e.FileName, &e.Success, &e.ErrorMessage)
		if err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity entries: %w", err)
	}
	return entries, nil
}

// Maintenance operations

// Statistics runs its aggregate queries independently; a failing query leaves
// the affected field at its zero value rather than failing the whole call.
func (s *SQLiteStore) Statistics() (*fc.Statistics, error) {
	stats := &fc.Statistics{}

	s.countQuery(`SELECT COUNT(*) FROM reference_files WHERE is_active = 1`, &stats.ActiveReferenceFiles)
	s.countQuery(`SELECT COUNT(*) FROM comparisons`, &stats.TotalComparisons)
	s.countQuery(`SELECT COUNT(*) FROM comparisons WHERE identical = 1`, &stats.IdenticalComparisons)
	s.countQuery(`SELECT COUNT(*) FROM comparisons WHERE identical = 0`, &stats.DifferentComparisons)

	var avg sql.NullFloat64
	if err := s.db.QueryRow(`SELECT AVG(processing_time) FROM comparisons`).Scan(&avg); err == nil && avg.Valid {
		stats.AvgProcessingTime = avg.Float64
	}

	var total sql.NullInt64
	if err := s.db.QueryRow(`SELECT SUM(total_differences) FROM comparisons`).Scan(&total); err == nil && total.Valid {
		stats.TotalDifferencesFound = total.Int64
	}

	// Report the display name, not the storage name; stats surface in the UI.
	var name string
	var count int64
	err := s.db.QueryRow(`
		SELECT original_name, usage_count FROM reference_files
		WHERE is_active = 1
		ORDER BY usage_count DESC
		LIMIT 1`).Scan(&name, &count)
	if err == nil {
		stats.MostUsedReference = name
		stats.MostUsedReferenceCount = count
	}

	var last sql.NullTime
	if err := s.db.QueryRow(`SELECT MAX(comparison_date) FROM comparisons`).Scan(&last); err == nil && last.Valid {
		t := last.Time
		stats.LastComparison = &t
	}

	return stats, nil
}

func (s *SQLiteStore) countQuery(query string, dest *int64) {
	var n sql.NullInt64
	if err := s.db.QueryRow(query).Scan(&n); err == nil && n.Valid {
		*dest = n.Int64
	}
}

func (s *SQLiteStore) TrimActivityLog(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM activity_logs WHERE timestamp < ?`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("trimming activity log: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) TrimComparisons(maxRows int) (int64, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM comparisons`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting comparisons: %w", err)
	}
	if count <= maxRows {
		return 0, nil
	}

	// Oldest first, down to the cap.
	res, err := s.db.Exec(`
		DELETE FROM comparisons
		WHERE id IN (
			SELECT id FROM comparisons
			ORDER BY comparison_date ASC, id ASC
			LIMIT ?
		)`, count-maxRows)
	if err != nil {
		return 0, fmt.Errorf("trimming comparisons: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Vacuum() error {
	if _, err := s.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("compacting store: %w", err)
	}
	return nil
}

// BackupTo creates a complete copy of the store at destPath using VACUUM INTO,
// which yields a snapshot-consistent copy without blocking ongoing access.
func (s *SQLiteStore) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up store: %w", err)
	}
	return nil
}

// Wipe deletes every row from every table, resets the identity counters and
// compacts the store. Reference files are hard-deleted here; their dependent
// comparison rows cascade. Default settings are reseeded afterwards so the
// store comes back usable.
func (s *SQLiteStore) Wipe() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting wipe transaction: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM comparisons`,
		`DELETE FROM reference_files`,
		`DELETE FROM activity_logs`,
		`DELETE FROM app_settings`,
		`UPDATE sqlite_sequence SET seq = 0
		 WHERE name IN ('comparisons', 'reference_files', 'activity_logs', 'app_settings')`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("wiping store: %w", err)
		}
	}

	if err := seedDefaultSettings(tx, s.clock.Now().UTC()); err != nil {
		return fmt.Errorf("reseeding default settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing wipe: %w", err)
	}

	return s.Vacuum()
}

// Path returns the store file path (or ":memory:" for in-memory stores).
func (s *SQLiteStore) Path() string {
	return s.path
}

// CheckMigrations verifies the store schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// SeedDefaults inserts the default settings that are missing, leaving any
// existing values untouched.
func (s *SQLiteStore) SeedDefaults() error {
	return seedDefaultSettings(s.db, s.clock.Now().UTC())
}

// Close closes the store connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func marshalResult(r *fc.ComparisonResult) (any, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func marshalSummary(sm *fc.ResultSummary) (any, error) {
	if sm == nil {
		return nil, nil
	}
	data, err := json.Marshal(sm)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64Ptr(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

// Compile-time check that SQLiteStore implements the fc.Store interface.
var _ fc.Store = (*SQLiteStore)(nil)
