package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/JonMunkholm/sellerdash/internal/importer"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// SavePreset stores p under a new ID. Names are unique per vendor,
// ignoring case.
func (m *Memory) SavePreset(ctx context.Context, vendorID string, p importer.Preset) (importer.Preset, error) {
	if err := ctx.Err(); err != nil {
		return importer.Preset{}, err
	}
	if p.Name == "" {
		return importer.Preset{}, importer.ErrPresetName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.presets[vendorID] {
		if strings.EqualFold(existing.Name, p.Name) {
			return importer.Preset{}, fmt.Errorf("%w: %s", importer.ErrDuplicatePreset, p.Name)
		}
	}

	p.ID = uuid.New().String()
	p.CreatedAt = time.Now().UTC()
	m.presets[vendorID] = append(m.presets[vendorID], p)
	return p, nil
}

// ListPresets returns the vendor's presets in creation order.
func (m *Memory) ListPresets(ctx context.Context, vendorID string) ([]importer.Preset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.presets[vendorID]), nil
}

// DeletePreset removes one preset.
func (m *Memory) DeletePreset(ctx context.Context, vendorID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	presets := m.presets[vendorID]
	i := slices.IndexFunc(presets, func(p importer.Preset) bool { return p.ID == id })
	if i < 0 {
		return importer.ErrPresetNotFound
	}
	m.presets[vendorID] = slices.Delete(presets, i, i+1)
	return nil
}

const insertPresetSQL = `
INSERT INTO import_presets (id, vendor_id, name, mapping, headers)
VALUES ($1::uuid, $2, $3, $4::jsonb, $5::jsonb)
RETURNING created_at`

// SavePreset stores p under a new ID.
func (p *Postgres) SavePreset(ctx context.Context, vendorID string, preset importer.Preset) (importer.Preset, error) {
	if preset.Name == "" {
		return importer.Preset{}, importer.ErrPresetName
	}

	mappingJSON, err := json.Marshal(preset.Mapping)
	if err != nil {
		return importer.Preset{}, fmt.Errorf("marshal mapping: %w", err)
	}
	headersJSON, err := json.Marshal(preset.Headers)
	if err != nil {
		return importer.Preset{}, fmt.Errorf("marshal headers: %w", err)
	}

	preset.ID = uuid.New().String()
	err = p.db.QueryRow(ctx, insertPresetSQL, preset.ID, vendorID, preset.Name, mappingJSON, headersJSON).
		Scan(&preset.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return importer.Preset{}, fmt.Errorf("%w: %s", importer.ErrDuplicatePreset, preset.Name)
		}
		return importer.Preset{}, fmt.Errorf("create preset: %w", err)
	}
	return preset, nil
}

const listPresetsSQL = `
SELECT id::text, name, mapping, headers, created_at
FROM import_presets
WHERE vendor_id = $1
ORDER BY created_at, id`

// ListPresets returns the vendor's presets in creation order.
func (p *Postgres) ListPresets(ctx context.Context, vendorID string) ([]importer.Preset, error) {
	rows, err := p.db.Query(ctx, listPresetsSQL, vendorID)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	var presets []importer.Preset
	for rows.Next() {
		var (
			preset               importer.Preset
			mappingJSON, headers []byte
		)
		if err := rows.Scan(&preset.ID, &preset.Name, &mappingJSON, &headers, &preset.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		if err := json.Unmarshal(mappingJSON, &preset.Mapping); err != nil {
			return nil, fmt.Errorf("unmarshal mapping: %w", err)
		}
		if err := json.Unmarshal(headers, &preset.Headers); err != nil {
			return nil, fmt.Errorf("unmarshal headers: %w", err)
		}
		presets = append(presets, preset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presets: %w", err)
	}
	return presets, nil
}

const deletePresetSQL = `DELETE FROM import_presets WHERE vendor_id = $1 AND id = $2::uuid`

// DeletePreset removes one preset.
func (p *Postgres) DeletePreset(ctx context.Context, vendorID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return importer.ErrPresetNotFound
	}

	tag, err := p.db.Exec(ctx, deletePresetSQL, vendorID, id)
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return importer.ErrPresetNotFound
	}
	return nil
}
