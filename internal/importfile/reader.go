package importfile

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"labstock/internal/bulkimport"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for uploads that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported file format")

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// Parse turns an uploaded spreadsheet into rows keyed by canonical column
// names. The first non-empty line is the header; columns the schema does not
// know are dropped. Reported row numbers start after the header, so callers
// hand the importer a row offset of 1.
func Parse(filename string, payload []byte) ([]bulkimport.Row, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) ([]bulkimport.Row, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return tableToRows(records)
}

func parseExcel(payload []byte) ([]bulkimport.Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel file has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return tableToRows(records)
}

func tableToRows(records [][]string) ([]bulkimport.Row, error) {
	var header []string
	var rows []bulkimport.Row

	known := make(map[string]bool, len(bulkimport.Schema))
	for _, field := range bulkimport.Schema {
		known[field.Name] = true
	}

	for _, record := range records {
		if isEmptyRecord(record) {
			continue
		}
		if header == nil {
			header = make([]string, len(record))
			for i, cell := range record {
				header[i] = normalizeHeader(cell)
			}
			continue
		}

		row := make(bulkimport.Row)
		for i, cell := range record {
			if i >= len(header) || !known[header[i]] {
				continue
			}
			row[header[i]] = strings.TrimSpace(cell)
		}
		rows = append(rows, row)
	}

	if header == nil {
		return nil, errors.New("no header row found in file")
	}
	return rows, nil
}

// normalizeHeader maps "Asset Tag", "asset_tag" and "ASSET-TAG" to the same
// schema column name.
func normalizeHeader(cell string) string {
	h := strings.ToLower(strings.TrimSpace(cell))
	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	return h
}

func isEmptyRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
