// Package pipeline implements the ordered lead-processing stages and the lead
// table codec they share.
package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

// DecodeTable parses an uploaded spreadsheet into a lead table. The format is
// chosen by file extension: .csv, .xlsx or .xlsm.
func DecodeTable(filename string, data []byte) (*outreach.Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return decodeCSV(data)
	case ".xlsx", ".xlsm":
		return decodeExcel(data)
	default:
		return nil, fmt.Errorf("unsupported input format %q, upload .csv or .xlsx", filepath.Ext(filename))
	}
}

func decodeCSV(data []byte) (*outreach.Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return tableFromRecords(records)
}

func decodeExcel(data []byte) (*outreach.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return tableFromRecords(records)
}

func tableFromRecords(records [][]string) (*outreach.Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}
	header := make([]string, len(records[0]))
	copy(header, records[0])

	table := &outreach.Table{Header: header}
	for _, record := range records[1:] {
		row := make([]string, len(header))
		copy(row, record)
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// EncodeCSV serializes a lead table back to CSV bytes.
func EncodeCSV(table *outreach.Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(table.Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, row := range table.Rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
