package catalog

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Variant is one color/size combination of a product in the editor.
type Variant struct {
	Color string `json:"color"`
	Size  string `json:"size"`
	SKU   string `json:"sku"`
}

// VariantSKU suggests a SKU for a variant: the base SKU, the first three
// letters of the color and the size, upper-cased and joined with dashes.
// Empty parts are left out. Collisions are not resolved here; see
// DuplicateVariants.
func VariantSKU(base, color, size string) string {
	parts := []string{strings.TrimSpace(base)}

	color = strings.TrimSpace(color)
	if color != "" {
		if utf8.RuneCountInString(color) > 3 {
			color = string([]rune(color)[:3])
		}
		parts = append(parts, strings.ToUpper(color))
	}
	if size = strings.TrimSpace(size); size != "" {
		parts = append(parts, strings.ToUpper(size))
	}

	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "-")
}

// DuplicateVariants returns one warning per color/size combination that
// appears more than once (case-insensitive), in first-seen order. It only
// warns; callers decide whether to block a save.
func DuplicateVariants(variants []Variant) []string {
	counts := make(map[string]int)
	var order []string
	labels := make(map[string]string)

	for _, v := range variants {
		key := strings.ToLower(strings.TrimSpace(v.Color)) + "\x00" + strings.ToLower(strings.TrimSpace(v.Size))
		if counts[key] == 0 {
			order = append(order, key)
			labels[key] = fmt.Sprintf("%s / %s", strings.TrimSpace(v.Color), strings.TrimSpace(v.Size))
		}
		counts[key]++
	}

	var warnings []string
	for _, key := range order {
		if counts[key] > 1 {
			warnings = append(warnings, fmt.Sprintf("Duplicate variant: %s (%d times)", labels[key], counts[key]))
		}
	}
	return warnings
}

// VariantCheck is the editor feedback for a product's variant list.
type VariantCheck struct {
	Variants []Variant `json:"variants"`
	Warnings []string  `json:"warnings"`
}

// CheckVariants fills in a suggested SKU for every variant that has none
// and lists duplicate color/size combinations. Variants that already carry
// a SKU keep it.
func CheckVariants(base string, variants []Variant) VariantCheck {
	out := make([]Variant, len(variants))
	for i, v := range variants {
		if strings.TrimSpace(v.SKU) == "" {
			v.SKU = VariantSKU(base, v.Color, v.Size)
		}
		out[i] = v
	}
	warnings := DuplicateVariants(variants)
	if warnings == nil {
		warnings = []string{}
	}
	return VariantCheck{Variants: out, Warnings: warnings}
}
