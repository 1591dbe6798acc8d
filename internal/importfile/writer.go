package importfile

import (
	"encoding/csv"
	"fmt"
	"io"

	"labstock/internal/bulkimport"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Equipment"

// WriteCSV renders rows in schema column order, header first. Called with no
// rows it produces the blank import template.
func WriteCSV(w io.Writer, rows []bulkimport.Row) error {
	headers := bulkimport.Headers()

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(headers))
		for i, name := range headers {
			record[i] = row[name]
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// WriteExcel renders rows onto a single sheet, one header row then one row
// per entity, in schema column order.
func WriteExcel(w io.Writer, rows []bulkimport.Row) error {
	headers := bulkimport.Headers()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headerCells := make([]interface{}, len(headers))
	for i, name := range headers {
		headerCells[i] = name
	}
	if err := f.SetSheetRow(exportSheet, "A1", &headerCells); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		cells := make([]interface{}, len(headers))
		for j, name := range headers {
			cells[j] = row[name]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to place row: %w", err)
		}
		if err := f.SetSheetRow(exportSheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
