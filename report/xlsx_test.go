package report

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/danharker/lexsem/obligation"
	"github.com/danharker/lexsem/reference"
)

func TestWriteDiffXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diff.xlsx")

	rep := DiffReport{
		DocID:     "safety-act",
		FromRevID: "r1",
		ToRevID:   "r2",
		References: reference.DiffResult{
			Added:     []string{"ref-new"},
			Unchanged: []string{"ref-same"},
		},
		Atoms: obligation.DiffResult{
			Added:     []string{"obl-a"},
			Removed:   []string{"obl-b", "obl-c"},
			Unchanged: []string{"obl-d"},
		},
	}

	if err := WriteDiffXLSX(path, rep); err != nil {
		t.Fatalf("writing workbook: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := map[string]bool{"Summary": true, "References": true, "Obligations": true}
	for _, s := range sheets {
		delete(want, s)
	}
	if len(want) != 0 {
		t.Fatalf("missing sheets %v, got %v", want, sheets)
	}

	rows, err := f.GetRows("Obligations")
	if err != nil {
		t.Fatalf("reading obligations sheet: %v", err)
	}
	// Header + 4 identity rows.
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	if rows[1][0] != "added" || rows[1][1] != "obl-a" {
		t.Errorf("first data row: got %v", rows[1])
	}
	if rows[2][0] != "removed" || rows[2][1] != "obl-b" {
		t.Errorf("second data row: got %v", rows[2])
	}

	summary, err := f.GetRows("Summary")
	if err != nil {
		t.Fatalf("reading summary: %v", err)
	}
	if summary[0][1] != "safety-act" {
		t.Errorf("summary doc id: got %v", summary[0])
	}
}

func TestWriteDiffXLSXEmptyDiff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")

	if err := WriteDiffXLSX(path, DiffReport{DocID: "d", FromRevID: "a", ToRevID: "b"}); err != nil {
		t.Fatalf("writing empty workbook: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("References")
	if err != nil {
		t.Fatalf("reading references: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}
