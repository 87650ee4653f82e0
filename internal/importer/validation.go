package importer

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Row-level validation messages, shown to sellers verbatim.
const (
	MsgNameRequired = "Product name is required"
	MsgSKURequired  = "SKU is required"
	MsgInvalidPrice = "Invalid price"
)

// InvalidRow is a row that failed validation, with every reason.
type InvalidRow struct {
	Row    Row      `json:"row"`
	Errors []string `json:"errors"`
}

// ValidationResult partitions rows. Source order is kept within each part and
// every input row lands in exactly one part.
type ValidationResult struct {
	Valid   []Row        `json:"valid"`
	Invalid []InvalidRow `json:"invalid"`
}

// Total is the number of rows validated.
func (v ValidationResult) Total() int { return len(v.Valid) + len(v.Invalid) }

// ValidateRows checks each row against the required fields through mapping.
func ValidateRows(columns []string, rows []Row, mapping Mapping) ValidationResult {
	var res ValidationResult
	for _, row := range rows {
		errs := validateFields(mapping.Resolve(columns, row))
		if len(errs) > 0 {
			res.Invalid = append(res.Invalid, InvalidRow{Row: row, Errors: errs})
			continue
		}
		res.Valid = append(res.Valid, row)
	}
	return res
}

func validateFields(fields map[string]string) []string {
	var errs []string
	if strings.TrimSpace(fields[FieldName]) == "" {
		errs = append(errs, MsgNameRequired)
	}
	if strings.TrimSpace(fields[FieldSKU]) == "" {
		errs = append(errs, MsgSKURequired)
	}
	if _, ok := parsePrice(fields[FieldPrice]); !ok {
		errs = append(errs, MsgInvalidPrice)
	}
	return errs
}

// parsePrice accepts a finite decimal strictly greater than zero.
func parsePrice(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// Draft is a validated row converted to typed product attributes, ready
// for a Writer.
type Draft struct {
	Line             int
	Name             string
	SKU              string
	Price            decimal.Decimal
	ComparePrice     decimal.NullDecimal
	Stock            int
	Category         string
	Description      string
	ShortDescription string
	Brand            string
	Tags             []string
	Weight           decimal.NullDecimal
	Images           []string
}

// NewDraft builds a Draft from resolved field values. Optional numeric
// fields that do not parse are left empty.
func NewDraft(line int, fields map[string]string) Draft {
	d := Draft{
		Line:             line,
		Name:             strings.TrimSpace(fields[FieldName]),
		SKU:              strings.TrimSpace(fields[FieldSKU]),
		Category:         strings.TrimSpace(fields[FieldCategory]),
		Description:      strings.TrimSpace(fields[FieldDescription]),
		ShortDescription: strings.TrimSpace(fields[FieldShortDescription]),
		Brand:            strings.TrimSpace(fields[FieldBrand]),
		Tags:             splitList(fields[FieldTags]),
		Images:           splitList(fields[FieldImages]),
	}
	d.Price, _ = parsePrice(fields[FieldPrice])

	if v, err := decimal.NewFromString(strings.TrimSpace(fields[FieldComparePrice])); err == nil {
		d.ComparePrice = decimal.NewNullDecimal(v)
	}
	if v, err := decimal.NewFromString(strings.TrimSpace(fields[FieldWeight])); err == nil {
		d.Weight = decimal.NewNullDecimal(v)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(fields[FieldStock])); err == nil {
		d.Stock = n
	}
	return d
}

// splitList splits a comma separated cell, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
