// Package export renders return manifests as Excel workbooks and printable
// PDF documents.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/eugenenazirov/stowage/internal/planner"
)

const manifestSheet = "Manifest"

var manifestHeader = []any{"Item ID", "Name", "Mass (kg)", "Volume", "Reason"}

// WriteManifestXLSX writes the manifest as a single-sheet workbook: a short
// summary block followed by one row per returned item.
func WriteManifestXLSX(w io.Writer, m planner.Manifest) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), manifestSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	summary := [][]any{
		{"Undocking Container", m.UndockingContainerID},
		{"Undocking Date", formatDate(m.UndockingDate)},
		{"Total Weight", m.TotalWeight},
		{"Total Volume", m.TotalVolume},
		{},
		manifestHeader,
	}
	row := 1
	for _, values := range summary {
		if err := setRow(f, row, values); err != nil {
			return err
		}
		row++
	}
	headerRow := row - 1

	for _, ri := range m.ReturnItems {
		if err := setRow(f, row, []any{ri.ItemID, ri.Name, ri.Mass, ri.Volume, ri.Reason}); err != nil {
			return err
		}
		row++
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetRowStyle(manifestSheet, headerRow, headerRow, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(manifestSheet, "A", "A", 22); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(manifestSheet, "B", "B", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(manifestSheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
