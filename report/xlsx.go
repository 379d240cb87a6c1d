// Package report renders revision diffs as spreadsheet workbooks for
// review outside the pipeline.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/danharker/lexsem/obligation"
	"github.com/danharker/lexsem/reference"
)

// DiffReport is the input to WriteDiffXLSX: the two revisions compared
// and the identity diffs between them.
type DiffReport struct {
	DocID      string
	FromRevID  string
	ToRevID    string
	References reference.DiffResult
	Atoms      obligation.DiffResult
}

// WriteDiffXLSX writes a three-sheet workbook: a summary, the CR-ID
// diff and the OBL-ID diff.
func WriteDiffXLSX(path string, rep DiffReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, rep); err != nil {
		return err
	}
	if err := writeDiffSheet(f, "References", rep.References.Added, rep.References.Removed, rep.References.Unchanged); err != nil {
		return err
	}
	if err := writeDiffSheet(f, "Obligations", rep.Atoms.Added, rep.Atoms.Removed, rep.Atoms.Unchanged); err != nil {
		return err
	}

	// The default sheet excelize creates is replaced by Summary.
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, rep DiffReport) error {
	const sheet = "Summary"
	defaultName := f.GetSheetName(0)
	if err := f.SetSheetName(defaultName, sheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Document", rep.DocID},
		{"From revision", rep.FromRevID},
		{"To revision", rep.ToRevID},
		{},
		{"References added", len(rep.References.Added)},
		{"References removed", len(rep.References.Removed)},
		{"References unchanged", len(rep.References.Unchanged)},
		{},
		{"Obligations added", len(rep.Atoms.Added)},
		{"Obligations removed", len(rep.Atoms.Removed)},
		{"Obligations unchanged", len(rep.Atoms.Unchanged)},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing summary row %d: %w", i+1, err)
		}
	}
	return nil
}

// writeDiffSheet lists one hash per row with its change status. Input
// slices are already sorted, so the sheet order is deterministic.
func writeDiffSheet(f *excelize.File, sheet string, added, removed, unchanged []string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating sheet %s: %w", sheet, err)
	}

	header := []interface{}{"Status", "Identity"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := 2
	for _, group := range []struct {
		status string
		hashes []string
	}{
		{"added", added},
		{"removed", removed},
		{"unchanged", unchanged},
	} {
		for _, h := range group.hashes {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			line := []interface{}{group.status, h}
			if err := f.SetSheetRow(sheet, cell, &line); err != nil {
				return fmt.Errorf("writing %s row: %w", sheet, err)
			}
			row++
		}
	}
	return nil
}
