package sheet

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lindale-isd/districtops/internal/importer"
)

// ErrorCSV renders a session's failed rows as a downloadable CSV: line
// number, semicolon-joined messages, and the original raw row encoded as
// JSON so nothing is lost to re-quoting.
func ErrorCSV(failures []importer.SessionError) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"row", "errors", "raw_data"}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for _, f := range failures {
		raw, err := json.Marshal(f.Raw)
		if err != nil {
			return nil, fmt.Errorf("encode raw row %d: %w", f.Line, err)
		}
		record := []string{
			strconv.Itoa(f.Line),
			f.Message,
			string(raw),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write row %d: %w", f.Line, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	return buf.Bytes(), nil
}

// JoinMessages collapses a failure's messages into the single-cell form
// used by the error export.
func JoinMessages(messages []string) string {
	return strings.Join(messages, "; ")
}
