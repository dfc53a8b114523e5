package report

import (
	"bytes"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// DefaultPreviewRows is how many rows a preview keeps per sheet
const DefaultPreviewRows = 10

// Sheet is the head of one worksheet
type Sheet struct {
	Name      string     `json:"name"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"total_rows"`
}

// Preview lists the sheets of a workbook with their first rows
type Preview struct {
	Sheets []Sheet `json:"sheets"`
}

// PreviewFile previews the workbook at path
func PreviewFile(path string, maxRows int) (*Preview, error) {
	// #nosec G304 - path is chosen by the user on the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return PreviewBytes(data, maxRows)
}

// PreviewBytes previews a workbook held in memory
func PreviewBytes(data []byte, maxRows int) (*Preview, error) {
	if maxRows <= 0 {
		maxRows = DefaultPreviewRows
	}

	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("not a valid workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	preview := &Preview{}
	for _, name := range file.GetSheetList() {
		rows, err := file.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
		}
		sheet := Sheet{Name: name, TotalRows: len(rows)}
		if len(rows) > maxRows {
			rows = rows[:maxRows]
		}
		sheet.Rows = rows
		preview.Sheets = append(preview.Sheets, sheet)
	}
	return preview, nil
}
