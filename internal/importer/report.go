package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// templateSample is the example row shipped in download templates, in
// Fields order.
var templateSample = []string{
	"Classic Cotton T-Shirt",
	"TSHIRT-001",
	"19.99",
	"24.99",
	"100",
	"Apparel",
	"Soft cotton crew neck tee.",
	"Everyday cotton tee",
	"Acme",
	"cotton, basics",
	"0.2",
	"https://example.com/img/tshirt-front.jpg",
}

// TemplateHeaders returns the template column headers. They are the field
// labels, so an unedited template auto-maps completely.
func TemplateHeaders() []string {
	headers := make([]string, len(Fields))
	for i, f := range Fields {
		headers[i] = f.Label
	}
	return headers
}

// WriteTemplateCSV writes the import template as CSV.
func WriteTemplateCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TemplateHeaders()); err != nil {
		return err
	}
	if err := cw.Write(templateSample); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteTemplateXLSX writes the import template as a single sheet workbook
// with a bold header row.
func WriteTemplateXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Products"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headers := TemplateHeaders()
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A2", &templateSample); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", style); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	return f.Write(w)
}

// WriteErrorReport writes failed rows as CSV: line number, reasons joined
// with "; ", then the row's original cells in source column order.
func WriteErrorReport(w io.Writer, columns []string, failures []Failure) error {
	cw := csv.NewWriter(w)

	header := append([]string{"Row", "Errors"}, columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, f := range failures {
		rec := make([]string, 0, len(header))
		rec = append(rec, strconv.Itoa(f.Line), strings.Join(f.Errors, "; "))
		for _, col := range columns {
			rec = append(rec, f.Values[col])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
