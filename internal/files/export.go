package files

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fc-go/internal/fc"
)

// ExportReport renders a stored comparison result into the export directory
// and returns the file path. Supported formats: "json" (the full result,
// pretty-printed), "txt" (sectioned human-readable report) and "csv" (one row
// per difference). An unknown format is an error.
func (m *Manager) ExportReport(result *fc.ComparisonResult, baseName, format string) (string, error) {
	var content []byte
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", fmt.Errorf("serializing export: %w", err)
		}
		content = data
	case "txt":
		content = []byte(renderText(result))
	case "csv":
		content = []byte(renderCSV(result))
	default:
		return "", fmt.Errorf("unknown export format: %q", format)
	}

	timestamp := m.clock.Now().UTC().Format("2006-01-02T15-04-05")
	name := fmt.Sprintf("%s_%s.%s", baseName, timestamp, format)
	path := filepath.Join(m.exportDir, name)

	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("writing export file: %w", err)
	}
	return path, nil
}

// renderText produces the sectioned plain-text report: metadata, summary
// counters, then every listed difference.
func renderText(result *fc.ComparisonResult) string {
	var b strings.Builder
	b.WriteString("=== FILE COMPARISON REPORT ===\n\n")

	meta := result.Metadata
	if meta != (fc.ResultMetadata{}) {
		fmt.Fprintf(&b, "Date: %s\n", meta.ComparisonDate)
		fmt.Fprintf(&b, "Reference file: %s\n", meta.ReferenceFileName)
		fmt.Fprintf(&b, "Compared file: %s\n", meta.CompareFileName)
		fmt.Fprintf(&b, "Processing time: %s\n\n", meta.ProcessingTime)
	}

	b.WriteString("=== SUMMARY ===\n")
	fmt.Fprintf(&b, "Total rows: %d\n", result.Summary.TotalRows)
	fmt.Fprintf(&b, "Total columns: %d\n", result.Summary.TotalColumns)
	fmt.Fprintf(&b, "Differences found: %d\n", result.Summary.Differences)
	identical := "No"
	if result.Identical {
		identical = "Yes"
	}
	fmt.Fprintf(&b, "Files identical: %s\n\n", identical)

	if len(result.Differences) > 0 {
		b.WriteString("=== DETAILED DIFFERENCES ===\n")
		for i, diff := range result.Differences {
			fmt.Fprintf(&b, "%d. %s\n", i+1, strings.ToUpper(diff.Type))
			fmt.Fprintf(&b, "   Position: %s\n", diff.Position)
			fmt.Fprintf(&b, "   Description: %s\n", diff.Description)
			if diff.ReferenceValue != "" {
				fmt.Fprintf(&b, "   Reference value: %s\n", diff.ReferenceValue)
			}
			if diff.CompareValue != "" {
				fmt.Fprintf(&b, "   Compare value: %s\n", diff.CompareValue)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

// renderCSV produces the tabular export: a header row, then one row per
// difference. Every field is wrapped in quotes with embedded quotes doubled.
func renderCSV(result *fc.ComparisonResult) string {
	var b strings.Builder
	b.WriteString("Type,Position,Description,Reference Value,Compare Value\n")

	for _, diff := range result.Differences {
		fields := []string{
			diff.Type,
			diff.Position,
			diff.Description,
			diff.ReferenceValue,
			diff.CompareValue,
		}
		quoted := make([]string, len(fields))
		for i, f := range fields {
			quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		}
		b.WriteString(strings.Join(quoted, ","))
		b.WriteString("\n")
	}

	return b.String()
}
