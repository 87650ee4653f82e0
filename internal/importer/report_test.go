package importer

import (
	"bytes"
	"encoding/csv"
	"slices"
	"strings"
	"testing"
)

func TestWriteTemplateCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTemplateCSV(&buf); err != nil {
		t.Fatalf("WriteTemplateCSV() error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("template is not valid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want header + sample", len(records))
	}
	if !slices.Equal(records[0], TemplateHeaders()) {
		t.Errorf("header = %v", records[0])
	}
	if len(records[1]) != len(Fields) {
		t.Errorf("sample row has %d cells, want %d", len(records[1]), len(Fields))
	}
}

func TestTemplateSampleValidates(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTemplateCSV(&buf); err != nil {
		t.Fatal(err)
	}

	table, err := Decode("template.csv", &buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	res := ValidateRows(table.Columns, table.Rows, SuggestMapping(table.Columns))
	if len(res.Valid) != 1 {
		t.Errorf("sample row should validate, got %+v", res.Invalid)
	}
}

func TestWriteErrorReport(t *testing.T) {
	columns := []string{"Product Name", "Price"}
	failures := []Failure{
		{Line: 3, Values: map[string]string{"Product Name": "", "Price": "abc"}, Errors: []string{MsgNameRequired, MsgInvalidPrice}},
		{Line: 9, Values: map[string]string{"Product Name": "Lamp, large", "Price": "5"}, Errors: []string{"duplicate sku"}},
	}

	var buf bytes.Buffer
	if err := WriteErrorReport(&buf, columns, failures); err != nil {
		t.Fatalf("WriteErrorReport() error: %v", err)
	}

	want := "Row,Errors,Product Name,Price\n" +
		"3,Product name is required; Invalid price,,abc\n" +
		"9,duplicate sku,\"Lamp, large\",5\n"
	if got := buf.String(); got != want {
		t.Errorf("report:\n%s\nwant:\n%s", got, want)
	}

	var empty bytes.Buffer
	if err := WriteErrorReport(&empty, columns, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Count(empty.String(), "\n") != 1 {
		t.Errorf("empty report should be header only, got %q", empty.String())
	}
}
