package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/sellerdash/internal/importer"
	"github.com/JonMunkholm/sellerdash/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"duplicate sku from store", fmt.Errorf("write: %w: TEE-1", store.ErrDuplicateSKU), "DB001"},
		{"postgres duplicate key", errors.New("ERROR: duplicate key value violates unique constraint"), "DB001"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connection refused"), "DB002"},
		{"deadline before generic timeout", errors.New("context deadline exceeded (timeout)"), "REQ002"},
		{"generic timeout", errors.New("i/o timeout"), "DB004"},
		{"mapping incomplete", fmt.Errorf("validate: %w: [price]", importer.ErrMappingIncomplete), "VAL001"},
		{"unknown column", fmt.Errorf("set mapping: %w", importer.ErrUnknownColumn), "VAL002"},
		{"no selection", ErrNoSelection, "VAL005"},
		{"wrong stage", fmt.Errorf("cancel: %w (stage upload)", importer.ErrWrongStage), "IMP001"},
		{"no valid rows", importer.ErrNoValidRows, "IMP002"},
		{"session not found", ErrSessionNotFound, "IMP003"},
		{"limiter busy", ErrTooManyImports, "IMP004"},
		{"preset missing", importer.ErrPresetNotFound, "PRE001"},
		{"preset name taken", fmt.Errorf("%w: Supplier A", importer.ErrDuplicatePreset), "PRE002"},
		{"presets disabled", ErrPresetsDisabled, "PRE004"},
		{"rate limited", errors.New("rate limit exceeded"), "RATE001"},
		{"unknown error", errors.New("something odd"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if tt.err != nil && (got.Message == "" || got.Action == "") {
				t.Errorf("MapError(%v) missing message or action: %+v", tt.err, got)
			}
		})
	}
}

func TestMapError_ParseErrorUsesReason(t *testing.T) {
	tests := []struct {
		reason   string
		wantCode string
	}{
		{"file too large (max 20MB)", "FILE001"},
		{"invalid csv", "FILE002"},
		{"invalid xlsx", "FILE003"},
		{`unsupported file type ".pdf" (use .csv or .xlsx)`, "FILE004"},
		{"empty file", "FILE005"},
		{"file has no data rows", "FILE006"},
	}

	for _, tt := range tests {
		// The file name would otherwise match the timeout pattern.
		err := &importer.ParseError{FileName: "timeout report.csv", Reason: tt.reason}
		if got := MapError(err).Code; got != tt.wantCode {
			t.Errorf("reason %q mapped to %s, want %s", tt.reason, got, tt.wantCode)
		}
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q", got)
	}

	got := FormatUserError(ErrTooManyImports)
	if !strings.HasPrefix(got, "The system is busy with other imports (Code: IMP004). ") {
		t.Errorf("FormatUserError() = %q", got)
	}
}

func TestErrorPatternsHaveCodes(t *testing.T) {
	for _, ep := range errorPatterns {
		if ep.pattern != strings.ToLower(ep.pattern) {
			t.Errorf("pattern %q must be lower case", ep.pattern)
		}
		if ep.msg.Code == "" || ep.msg.Message == "" || ep.msg.Action == "" {
			t.Errorf("pattern %q has an incomplete message: %+v", ep.pattern, ep.msg)
		}
	}
}
