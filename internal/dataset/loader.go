// Package dataset loads transcript exports from xlsx workbooks for the demo
// endpoint. Column positions vary between exports, so headers are matched by
// keyword with positional fallbacks.
package dataset

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"call-sentiment-go/internal/types"
)

// Load reads the first sheet of the workbook at path into utterances.
// Blank-text rows are kept; the processor skips them but counts them.
func Load(path string) ([]types.Utterance, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	speakerIdx, textIdx, timeIdx := -1, -1, -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case speakerIdx == -1 && (strings.Contains(l, "speaker") || strings.Contains(l, "who") || strings.Contains(l, "role")):
			speakerIdx = i
		case textIdx == -1 && (strings.Contains(l, "text") || strings.Contains(l, "utterance") || strings.Contains(l, "message") || strings.Contains(l, "transcript")):
			textIdx = i
		case timeIdx == -1 && (strings.Contains(l, "time") || strings.Contains(l, "when")):
			timeIdx = i
		}
	}
	// fallback positions: speaker, text, timestamp
	if speakerIdx == -1 {
		speakerIdx = 0
	}
	if textIdx == -1 {
		if len(rows[0]) > 1 {
			textIdx = 1
		} else {
			textIdx = 0
		}
	}

	cell := func(r []string, idx int) string {
		if idx >= 0 && idx < len(r) {
			return strings.TrimSpace(r[idx])
		}
		return ""
	}

	out := make([]types.Utterance, 0, len(rows)-1)
	for i, r := range rows {
		if i == 0 {
			continue
		}
		out = append(out, types.Utterance{
			Speaker:   cell(r, speakerIdx),
			Text:      cell(r, textIdx),
			Timestamp: cell(r, timeIdx),
		})
	}
	return out, nil
}
