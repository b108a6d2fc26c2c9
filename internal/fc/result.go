package fc

import "time"

// ComparisonResult is the result object produced by the external diff engine.
// It is persisted verbatim as the run's result payload; this layer never
// interprets it beyond serialization. JSON keys match the engine's wire format.
type ComparisonResult struct {
	Identical        bool             `json:"identical"`
	Summary          ResultSummary    `json:"summary"`
	Differences      []Difference     `json:"differences"`
	DifferentContent DifferentContent `json:"different_content"`
	Metadata         ResultMetadata   `json:"metadata"`
}

// ResultSummary holds the aggregate counters of one comparison.
type ResultSummary struct {
	TotalRows         int `json:"totalRows"`
	TotalColumns      int `json:"totalColumns"`
	Differences       int `json:"differences"`
	AddedRows         int `json:"addedRows"`
	RemovedRows       int `json:"removedRows"`
	ModifiedCells     int `json:"modifiedCells"`
	AddedColumns      int `json:"addedColumns"`
	RemovedColumns    int `json:"removedColumns"`
	UniqueInReference int `json:"uniqueInReference"`
	UniqueInCompare   int `json:"uniqueInCompare"`
	ReferenceRows     int `json:"referenceRows"`
	ReferenceColumns  int `json:"referenceColumns"`
	CompareRows       int `json:"compareRows"`
	CompareColumns    int `json:"compareColumns"`
}

// Difference is a single reported difference between the two files.
type Difference struct {
	Type           string `json:"type"`
	Position       string `json:"position"`
	Description    string `json:"description"`
	ReferenceValue string `json:"referenceValue,omitempty"`
	CompareValue   string `json:"compareValue,omitempty"`
}

// DifferentContent lists rows and columns unique to each side.
type DifferentContent struct {
	UniqueRowsInReference    []UniqueRow `json:"uniqueRowsInReference,omitempty"`
	UniqueRowsInCompare      []UniqueRow `json:"uniqueRowsInCompare,omitempty"`
	UniqueColumnsInReference []string    `json:"uniqueColumnsInReference,omitempty"`
	UniqueColumnsInCompare   []string    `json:"uniqueColumnsInCompare,omitempty"`
}

// UniqueRow is a row present on only one side of the comparison.
type UniqueRow struct {
	RowIndex int               `json:"rowIndex"`
	Values   map[string]string `json:"values"`
}

// ResultMetadata identifies the run the result belongs to.
type ResultMetadata struct {
	ComparisonDate    string `json:"comparisonDate"`
	ReferenceFileName string `json:"referenceFileName"`
	CompareFileName   string `json:"compareFileName"`
	ProcessingTime    string `json:"processingTime"`
}

// RunFromResult builds a persistable run from a diff-engine result object.
// The counter columns mirror the summary block so history queries never need
// to open the payload; the full result rides along as the run's payload.
func RunFromResult(result *ComparisonResult, notes string) *ComparisonRun {
	summary := result.Summary
	return &ComparisonRun{
		CompareFileName:   result.Metadata.CompareFileName,
		ProcessingTime:    processingSeconds(result.Metadata.ProcessingTime),
		TotalDifferences:  int64(summary.Differences),
		ModifiedCells:     int64(summary.ModifiedCells),
		AddedRows:         int64(summary.AddedRows),
		RemovedRows:       int64(summary.RemovedRows),
		AddedColumns:      int64(summary.AddedColumns),
		RemovedColumns:    int64(summary.RemovedColumns),
		UniqueInReference: int64(summary.UniqueInReference),
		UniqueInCompare:   int64(summary.UniqueInCompare),
		Identical:         result.Identical,
		Result:            result,
		Summary:           &summary,
		Notes:             notes,
	}
}

// processingSeconds parses the engine's duration string ("0.42s"). A
// malformed value degrades to zero rather than rejecting the run.
func processingSeconds(s string) float64 {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d.Seconds()
}
