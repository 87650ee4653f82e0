package importer

import (
	"slices"
	"strings"
	"time"
)

// PresetMatchThreshold is the share of a preset's headers an uploaded file
// must contain for the preset to be offered.
const PresetMatchThreshold = 0.8

// Preset is a saved column mapping, offered again when a later file has
// the same headers.
type Preset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Mapping   Mapping   `json:"mapping"`
	Headers   []string  `json:"headers"`
	CreatedAt time.Time `json:"createdAt"`
}

// PresetMatch is a preset scored against a file's columns.
type PresetMatch struct {
	Preset Preset  `json:"preset"`
	Score  float64 `json:"score"`
}

// NewPreset captures the assigned columns of m. Columns mapped to "" are
// dropped.
func NewPreset(name string, columns []string, m Mapping) Preset {
	kept := make(Mapping)
	for _, col := range columns {
		if f := m[col]; f != "" {
			kept[col] = f
		}
	}
	return Preset{
		Name:    strings.TrimSpace(name),
		Mapping: kept,
		Headers: slices.Clone(columns),
	}
}

// MatchPresets returns the presets scoring at least PresetMatchThreshold
// against columns, best first. Ties keep input order.
func MatchPresets(presets []Preset, columns []string) []PresetMatch {
	var matches []PresetMatch
	for _, p := range presets {
		score := headerScore(columns, p.Headers)
		if score >= PresetMatchThreshold {
			matches = append(matches, PresetMatch{Preset: p, Score: score})
		}
	}
	slices.SortStableFunc(matches, func(a, b PresetMatch) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return matches
}

// headerScore is the fraction of want found in have, compared by
// normalized label.
func headerScore(have, want []string) float64 {
	if len(want) == 0 {
		return 0
	}

	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[normalizeLabel(h)] = true
	}

	matched := 0
	for _, h := range want {
		if set[normalizeLabel(h)] {
			matched++
		}
	}
	return float64(matched) / float64(len(want))
}

// overlay applies p onto m for the given columns. A preset column matches a
// file column by normalized label; file columns the preset does not know
// keep their current assignment. Returns how many columns were set.
func (p Preset) overlay(columns []string, m Mapping) int {
	byLabel := make(map[string]string, len(p.Mapping))
	for col, field := range p.Mapping {
		if _, ok := LookupField(field); ok {
			byLabel[normalizeLabel(col)] = field
		}
	}

	n := 0
	for _, col := range columns {
		if field, ok := byLabel[normalizeLabel(col)]; ok {
			m[col] = field
			n++
		}
	}
	return n
}
