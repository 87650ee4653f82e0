package importer

import (
	"context"
	"strings"
	"testing"
)

func TestNewPreset_DropsUnassigned(t *testing.T) {
	cols := []string{"Title", "Code", "Cost", "Notes"}
	m := Mapping{"Title": FieldName, "Code": FieldSKU, "Cost": FieldPrice, "Notes": ""}

	p := NewPreset("  Supplier A  ", cols, m)
	if p.Name != "Supplier A" {
		t.Errorf("Name = %q", p.Name)
	}
	if len(p.Mapping) != 3 {
		t.Errorf("Mapping = %v, want 3 entries", p.Mapping)
	}
	if _, ok := p.Mapping["Notes"]; ok {
		t.Error("unassigned column kept")
	}
	if strings.Join(p.Headers, ",") != "Title,Code,Cost,Notes" {
		t.Errorf("Headers = %v", p.Headers)
	}
}

func TestMatchPresets(t *testing.T) {
	presets := []Preset{
		{ID: "a", Name: "exact", Headers: []string{"Title", "Code", "Cost"}},
		{ID: "b", Name: "partial", Headers: []string{"Title", "Code", "Cost", "Qty", "Brand"}},
		{ID: "c", Name: "four of five", Headers: []string{"title", "CODE", "Cost", "Notes", "Qty"}},
		{ID: "d", Name: "empty"},
	}
	cols := []string{"Title", "Code", "Cost", "Notes"}

	got := MatchPresets(presets, cols)
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(got), got)
	}
	if got[0].Preset.ID != "a" || got[0].Score != 1 {
		t.Errorf("best = %s %.2f, want a 1.00", got[0].Preset.ID, got[0].Score)
	}
	if got[1].Preset.ID != "c" || got[1].Score != 0.8 {
		t.Errorf("second = %s %.2f, want c 0.80", got[1].Preset.ID, got[1].Score)
	}
}

func TestSession_ApplyPreset(t *testing.T) {
	s := NewSession(Options{ID: "p"})
	preset := Preset{Name: "supplier", Mapping: Mapping{
		"title": FieldName,
		"Code":  FieldSKU,
		"Cost":  FieldPrice,
		"Gone":  FieldBrand,
		"Qty":   "not-a-field",
	}}

	if _, err := s.ApplyPreset(preset); err == nil {
		t.Fatal("ApplyPreset at Upload succeeded")
	}

	csv := "Title,Code,Cost,Qty\nMug,MUG-1,9.50,4\n"
	if err := s.Upload(context.Background(), "f.csv", strings.NewReader(csv)); err != nil {
		t.Fatal(err)
	}
	if s.State().CanValidate() {
		t.Fatal("unexpected complete auto-mapping")
	}

	n, err := s.ApplyPreset(preset)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("applied %d columns, want 3", n)
	}
	st := s.State()
	if !st.CanValidate() {
		t.Errorf("mapping incomplete after preset: %v", st.Mapping)
	}
	if st.Mapping["Qty"] != "" {
		t.Errorf("unknown field applied to Qty: %q", st.Mapping["Qty"])
	}
}
