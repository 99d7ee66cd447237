// Package export renders stored extraction results as a spreadsheet.
package export

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/goinforme"
)

// Sheet is the worksheet holding one row per document.
const Sheet = "Informes"

// Headers are the column titles, matching the result JSON keys.
var Headers = []string{"documento", "visita_tecnica_fecha", "pozos_afectados", "antecedentes"}

var columnWidths = []struct {
	col   string
	width float64
}{
	{"A", 32}, // document
	{"B", 26}, // dates
	{"C", 30}, // wells
	{"D", 80}, // background
}

// WriteWorkbook writes an XLSX workbook with a header row followed by one
// row per result, in the order given.
func WriteWorkbook(w io.Writer, results []goinforme.NamedResult) error {
	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet so the workbook has exactly one.
	if err := f.SetSheetName(f.GetSheetName(0), Sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	if err := f.SetSheetRow(Sheet, "A1", &Headers); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{r.Name, r.VisitaTecnicaFecha, r.PozosAfectados, r.Antecedentes}
		if err := f.SetSheetRow(Sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	for _, c := range columnWidths {
		if err := f.SetColWidth(Sheet, c.col, c.col, c.width); err != nil {
			return fmt.Errorf("sizing column %s: %w", c.col, err)
		}
	}
	if err := f.SetPanes(Sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	slog.Info("export.xlsx.ok", "rows", len(results))
	return nil
}
