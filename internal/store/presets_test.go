package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/sellerdash/internal/importer"
)

type presetStore interface {
	SavePreset(ctx context.Context, vendorID string, p importer.Preset) (importer.Preset, error)
	ListPresets(ctx context.Context, vendorID string) ([]importer.Preset, error)
	DeletePreset(ctx context.Context, vendorID, id string) error
}

func exercisePresets(t *testing.T, ps presetStore, vendor string) {
	t.Helper()
	ctx := context.Background()

	p := importer.NewPreset("Supplier A", []string{"Title", "Code", "Cost"},
		importer.Mapping{"Title": importer.FieldName, "Code": importer.FieldSKU, "Cost": importer.FieldPrice})

	saved, err := ps.SavePreset(ctx, vendor, p)
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Errorf("saved = %+v", saved)
	}

	if _, err := ps.SavePreset(ctx, vendor, p); !errors.Is(err, importer.ErrDuplicatePreset) {
		t.Errorf("duplicate name error = %v", err)
	}
	if _, err := ps.SavePreset(ctx, vendor, importer.Preset{}); !errors.Is(err, importer.ErrPresetName) {
		t.Errorf("blank name error = %v", err)
	}

	list, err := ps.ListPresets(ctx, vendor)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Mapping["Code"] != importer.FieldSKU || len(list[0].Headers) != 3 {
		t.Errorf("list = %+v", list)
	}

	other, err := ps.ListPresets(ctx, vendor+"-other")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("other vendor sees %d presets", len(other))
	}
	if err := ps.DeletePreset(ctx, vendor+"-other", saved.ID); !errors.Is(err, importer.ErrPresetNotFound) {
		t.Errorf("cross-vendor delete error = %v", err)
	}

	if err := ps.DeletePreset(ctx, vendor, saved.ID); err != nil {
		t.Fatal(err)
	}
	if err := ps.DeletePreset(ctx, vendor, saved.ID); !errors.Is(err, importer.ErrPresetNotFound) {
		t.Errorf("second delete error = %v", err)
	}
}

func TestMemory_Presets(t *testing.T) {
	exercisePresets(t, NewMemory(0, 1), "v1")
}

func TestPostgres_Presets(t *testing.T) {
	pg := setupTestPostgres(t)
	vendor := "preset-" + time.Now().Format("20060102150405.000000")
	t.Cleanup(func() {
		_, _ = pg.db.Exec(context.Background(), "DELETE FROM import_presets WHERE vendor_id LIKE $1", vendor+"%")
	})
	exercisePresets(t, pg, vendor)
}
