package dataset_test

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"call-sentiment-go/internal/dataset"
)

func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			name, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, name, cell); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "transcript.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestLoad_DetectsColumnsByHeader(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, [][]string{
		{"Timestamp", "Speaker", "Utterance Text"},
		{"[00:00]", "Agent", "Hello, how can I help?"},
		{"[00:05]", "Customer", "The price is too high"},
	})

	utts, err := dataset.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(utts) != 2 {
		t.Fatalf("got %d utterances, want 2", len(utts))
	}
	if utts[0].Speaker != "Agent" || utts[0].Text != "Hello, how can I help?" || utts[0].Timestamp != "[00:00]" {
		t.Errorf("utts[0]=%+v", utts[0])
	}
	if utts[1].Speaker != "Customer" {
		t.Errorf("utts[1].Speaker=%q, want Customer", utts[1].Speaker)
	}
}

func TestLoad_FallbackPositions(t *testing.T) {
	t.Parallel()

	// Unrecognized headers fall back to speaker in column 0, text in column 1.
	path := writeWorkbook(t, [][]string{
		{"col_a", "col_b"},
		{"Agent", "Hello there"},
	})

	utts, err := dataset.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(utts) != 1 {
		t.Fatalf("got %d utterances, want 1", len(utts))
	}
	if utts[0].Speaker != "Agent" || utts[0].Text != "Hello there" {
		t.Errorf("utts[0]=%+v", utts[0])
	}
	if utts[0].Timestamp != "" {
		t.Errorf("timestamp=%q, want empty without a time column", utts[0].Timestamp)
	}
}

func TestLoad_KeepsBlankRows(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, [][]string{
		{"Speaker", "Text"},
		{"Agent", "Hello"},
		{"Customer", ""},
	})

	utts, err := dataset.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Blank text stays in; the processor counts it but skips annotation.
	if len(utts) != 2 {
		t.Errorf("got %d utterances, want 2 including the blank row", len(utts))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := dataset.Load(filepath.Join(t.TempDir(), "nope.xlsx")); err == nil {
		t.Fatal("Load: expected error for a missing file")
	}
}

func TestLoad_HeaderOnly(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, [][]string{{"Speaker", "Text"}})
	if _, err := dataset.Load(path); err == nil {
		t.Fatal("Load: expected error for a workbook with no data rows")
	}
}
