package importer

import "errors"

var (
	// ErrWrongStage is returned when an action is not allowed at the
	// session's current stage.
	ErrWrongStage = errors.New("action not allowed at this import stage")

	// ErrMappingIncomplete is returned by Validate while a required field
	// has no column mapped to it.
	ErrMappingIncomplete = errors.New("required fields are not mapped")

	// ErrNoValidRows is returned by StartImport when validation left nothing
	// to import.
	ErrNoValidRows = errors.New("no valid rows to import")

	ErrUnknownColumn = errors.New("column not found in file")
	ErrUnknownField  = errors.New("unknown target field")

	// ErrPresetNotFound is returned for unknown or other-vendor preset IDs.
	ErrPresetNotFound = errors.New("mapping preset not found")

	// ErrDuplicatePreset is returned when the vendor already has a preset
	// with the same name.
	ErrDuplicatePreset = errors.New("mapping preset name already exists")

	ErrPresetName = errors.New("mapping preset name is required")
)
