package fc

import "time"

// IngestResult is the output of FileStore.SaveReferenceFile: everything the
// catalog needs to record a newly ingested reference file.
type IngestResult struct {
	Name         string // generated storage name, unique and stable
	OriginalName string // user-facing name as uploaded
	Path         string // absolute path inside the managed directory
	Size         int64
	MediaType    string
	Checksum     string // SHA-256 of the stored bytes
	RowCount     int    // best-effort, 0 when structure is unknown
	ColumnCount  int    // best-effort, 0 when structure is unknown
}

// ReferenceFile is a catalogued reference file.
// Deletion is soft: Active flips to false and the row stays resolvable so
// historical comparison runs keep a valid reference pointer.
type ReferenceFile struct {
	ID           int64
	Name         string
	OriginalName string
	Path         string
	Size         int64
	MediaType    string
	RowCount     int
	ColumnCount  int
	Description  string
	Tags         string
	Checksum     string
	UploadedAt   time.Time
	LastUsed     *time.Time
	UsageCount   int64
	Active       bool
}

// ComparisonRun is one comparison outcome to persist. ReferenceFileID is nil
// when the run was not made against a catalogued reference file.
type ComparisonRun struct {
	ReferenceFileID   *int64
	CompareFileName   string
	CompareFilePath   string
	CompareFileSize   int64
	ProcessingTime    float64 // seconds
	TotalDifferences  int64
	ModifiedCells     int64
	AddedRows         int64
	RemovedRows       int64
	AddedColumns      int64
	RemovedColumns    int64
	UniqueInReference int64
	UniqueInCompare   int64
	Identical         bool
	Result            *ComparisonResult
	Summary           *ResultSummary
	Notes             string
}

// HistoryEntry is one row of the comparison history list. The heavy result and
// summary payloads are deliberately absent; use ComparisonDetails for those.
type HistoryEntry struct {
	ID                    int64
	ReferenceFileID       *int64
	ReferenceName         string // storage name of the joined reference, if any
	ReferenceOriginalName string // display name of the joined reference, if any
	CompareFileName       string
	CompareFileSize       int64
	RunAt                 time.Time
	ProcessingTime        float64
	TotalDifferences      int64
	ModifiedCells         int64
	AddedRows             int64
	RemovedRows           int64
	AddedColumns          int64
	RemovedColumns        int64
	UniqueInReference     int64
	UniqueInCompare       int64
	Identical             bool
	Exported              bool
	ExportFormat          string
	ExportedAt            *time.Time
	Notes                 string
}

// ComparisonDetails is a full comparison run with its payloads deserialized.
type ComparisonDetails struct {
	HistoryEntry
	CompareFilePath   string
	ReferenceFilePath string
	Result            *ComparisonResult
	Summary           *ResultSummary
}

// Setting is one key/value configuration row.
type Setting struct {
	Key         string
	Value       string
	Description string
	UpdatedAt   time.Time
}

// ActivityEntry is one append-only audit trail row.
type ActivityEntry struct {
	ID           int64
	Action       string
	Details      string
	Timestamp    time.Time
	FileName     string
	Success      bool
	ErrorMessage string
}

// Statistics is the aggregate view produced by the maintenance engine.
// Individual query failures degrade the affected field to its zero value.
type Statistics struct {
	ActiveReferenceFiles   int64
	TotalComparisons       int64
	IdenticalComparisons   int64
	DifferentComparisons   int64
	AvgProcessingTime      float64
	TotalDifferencesFound  int64
	MostUsedReference      string
	MostUsedReferenceCount int64
	LastComparison         *time.Time
}

// DiskUsage reports bytes consumed per managed directory.
type DiskUsage struct {
	ReferenceFiles int64
	TempFiles      int64
	Exports        int64
	Total          int64
}

// Audit action tags. Every catalogued mutation records exactly one activity
// entry with one of these, success or failure.
const (
	ActionReferenceAdded   = "REFERENCE_ADDED"
	ActionReferenceDeleted = "REFERENCE_DELETED"
	ActionComparisonSaved  = "COMPARISON_SAVED"
	ActionMaintenance      = "MAINTENANCE"
	ActionBackup           = "BACKUP"
	ActionClean            = "CLEAN"
)
