package importer

import (
	"strings"
	"unicode"
)

// Mapping assigns source columns to target field keys. A column mapped to ""
// is skipped.
type Mapping map[string]string

// SuggestMapping auto-maps each column whose normalized header equals a
// field's normalized label. Unmatched columns map to "".
func SuggestMapping(columns []string) Mapping {
	labels := make(map[string]string, len(Fields))
	for _, f := range Fields {
		labels[normalizeLabel(f.Label)] = f.Key
	}

	m := make(Mapping, len(columns))
	for _, col := range columns {
		m[col] = labels[normalizeLabel(col)]
	}
	return m
}

// normalizeLabel lower-cases s and drops all whitespace.
func normalizeLabel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Mapped reports whether some column is mapped to field.
func (m Mapping) Mapped(field string) bool {
	for _, f := range m {
		if f == field {
			return true
		}
	}
	return false
}

// Missing returns the required fields no column is mapped to, in
// MappingRequired order.
func (m Mapping) Missing() []string {
	var missing []string
	for _, key := range MappingRequired {
		if !m.Mapped(key) {
			missing = append(missing, key)
		}
	}
	return missing
}

// Complete reports whether every required field is mapped.
func (m Mapping) Complete() bool { return len(m.Missing()) == 0 }

// Resolve maps a row's cells onto target fields. Columns are visited in
// source order, so when two columns target the same field the later one wins.
func (m Mapping) Resolve(columns []string, row Row) map[string]string {
	out := make(map[string]string, len(m))
	for _, col := range columns {
		field := m[col]
		if field == "" {
			continue
		}
		out[field] = row.Values[col]
	}
	return out
}

func (m Mapping) clone() Mapping {
	if m == nil {
		return nil
	}
	c := make(Mapping, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
