package utils

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ReadExcelSheet returns every row of sheetName. The first row is the header.
func ReadExcelSheet(r io.Reader, sheetName string) ([][]string, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer file.Close()

	found := false
	for _, s := range file.GetSheetList() {
		if s == sheetName {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("sheet %q not found in workbook", sheetName)
	}

	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("error reading rows from sheet %q: %w", sheetName, err)
	}
	return rows, nil
}

// WriteExcelSheet writes rows into a new workbook holding the single sheet sheetName.
func WriteExcelSheet(w io.Writer, sheetName string, rows [][]string) error {
	file := excelize.NewFile()
	defer file.Close()

	// A new workbook starts with "Sheet1".
	if err := file.SetSheetName(file.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := file.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
