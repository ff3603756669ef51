package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Export writes entries to w in the given format
func Export(w io.Writer, entries []*Entry, format ExportFormat) error {
	switch format {
	case ExportFormatCSV:
		return exportCSV(w, entries)
	case ExportFormatNDJSON, "":
		return exportNDJSON(w, entries)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// exportNDJSON writes one JSON entry per line
func exportNDJSON(w io.Writer, entries []*Entry) error {
	encoder := json.NewEncoder(w)
	for _, entry := range entries {
		if err := encoder.Encode(entry); err != nil {
			return fmt.Errorf("failed to encode entry %d: %w", entry.ID, err)
		}
	}
	return nil
}

// exportCSV writes entries as CSV with the message column holding raw JSON
func exportCSV(w io.Writer, entries []*Entry) error {
	writer := csv.NewWriter(w)

	header := []string{"ID", "Time", "Action", "ActorID", "TargetID", "Message"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, entry := range entries {
		row := []string{
			strconv.FormatInt(entry.ID, 10),
			entry.Timestamp.UTC().Format(time.RFC3339),
			entry.Action,
			strconv.FormatInt(entry.ActorID, 10),
			formatInt64Ptr(entry.TargetID),
			string(EncodeMessage(entry.Message)),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

// formatInt64Ptr formats an int64 pointer as string, returning empty string for nil
func formatInt64Ptr(val *int64) string {
	if val == nil {
		return ""
	}
	return strconv.FormatInt(*val, 10)
}
