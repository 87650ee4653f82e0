package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/sellerdash/internal/importer"
	"github.com/JonMunkholm/sellerdash/internal/logging"
)

// SavePreset stores the session's current column mapping under name. The
// session must have a file loaded.
func (s *Service) SavePreset(ctx context.Context, vendorID, importID, name string) (importer.Preset, error) {
	if s.deps.Presets == nil {
		return importer.Preset{}, ErrPresetsDisabled
	}

	st, err := s.ImportState(vendorID, importID)
	if err != nil {
		return importer.Preset{}, err
	}
	if st.Stage != importer.StageMapping && st.Stage != importer.StageValidation {
		return importer.Preset{}, fmt.Errorf("save preset: %w (stage %s)", importer.ErrWrongStage, st.Stage)
	}

	p, err := s.deps.Presets.SavePreset(ctx, vendorID, importer.NewPreset(name, st.Columns, st.Mapping))
	if err != nil {
		return importer.Preset{}, err
	}

	logging.WithFields(ctx, "vendor_id", vendorID).Info("mapping preset saved",
		"preset_id", p.ID,
		"name", p.Name,
		"columns", len(p.Mapping),
	)
	return p, nil
}

// ListPresets returns the vendor's saved mappings.
func (s *Service) ListPresets(ctx context.Context, vendorID string) ([]importer.Preset, error) {
	if s.deps.Presets == nil {
		return nil, ErrPresetsDisabled
	}
	presets, err := s.deps.Presets.ListPresets(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	return presets, nil
}

// DeletePreset removes a saved mapping.
func (s *Service) DeletePreset(ctx context.Context, vendorID, presetID string) error {
	if s.deps.Presets == nil {
		return ErrPresetsDisabled
	}
	return s.deps.Presets.DeletePreset(ctx, vendorID, presetID)
}

// MatchPresets scores the vendor's presets against the session's columns.
// Before a file is uploaded there is nothing to match.
func (s *Service) MatchPresets(ctx context.Context, vendorID, importID string) ([]importer.PresetMatch, error) {
	st, err := s.ImportState(vendorID, importID)
	if err != nil {
		return nil, err
	}
	if len(st.Columns) == 0 {
		return nil, nil
	}

	presets, err := s.ListPresets(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	return importer.MatchPresets(presets, st.Columns), nil
}

// ApplyPreset overlays a saved mapping onto the session at Mapping.
func (s *Service) ApplyPreset(ctx context.Context, vendorID, importID, presetID string) (importer.State, error) {
	sess, err := s.Import(vendorID, importID)
	if err != nil {
		return importer.State{}, err
	}

	presets, err := s.ListPresets(ctx, vendorID)
	if err != nil {
		return sess.State(), err
	}
	for _, p := range presets {
		if p.ID == presetID {
			_, err := sess.ApplyPreset(p)
			return sess.State(), err
		}
	}
	return sess.State(), importer.ErrPresetNotFound
}
