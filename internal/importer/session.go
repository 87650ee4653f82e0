package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"
)

// Stage is a step of the import wizard.
type Stage string

const (
	StageUpload     Stage = "upload"
	StageMapping    Stage = "mapping"
	StageValidation Stage = "validation"
	StageImporting  Stage = "importing"
	StageResults    Stage = "results"
)

// Progress counts rows handed to the writer during Importing.
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// Percent returns the progress as a percentage (0-100).
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return (p.Processed * 100) / p.Total
}

// Failure is one row in the results error report.
type Failure struct {
	Line   int               `json:"line"`
	Values map[string]string `json:"values"`
	Errors []string          `json:"errors"`
}

// Result is the outcome of an import.
//
// Success + Failed + Skipped equals the number of rows in the file. Skipped
// is non-zero only when the import was cancelled.
type Result struct {
	Success   int           `json:"success"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Cancelled bool          `json:"cancelled"`
	Errors    []Failure     `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

// Writer persists one imported product. A returned error counts the row as
// failed; the import carries on with the next row.
type Writer interface {
	WriteProduct(ctx context.Context, vendorID string, d Draft) error
}

// State is a snapshot of a session. Fields not meaningful for the current
// stage are zero.
type State struct {
	Stage      Stage             `json:"stage"`
	FileName   string            `json:"fileName,omitempty"`
	Columns    []string          `json:"columns,omitempty"`
	Rows       []Row             `json:"rows,omitempty"`
	Mapping    Mapping           `json:"mapping,omitempty"`
	Validation *ValidationResult `json:"validation,omitempty"`
	Progress   Progress          `json:"progress"`
	Result     *Result           `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"` // last upload failure
}

// Missing returns the required fields still unmapped.
func (s State) Missing() []string { return s.Mapping.Missing() }

// CanValidate reports whether the Validate action is enabled.
func (s State) CanValidate() bool {
	return s.Stage == StageMapping && s.Mapping.Complete()
}

// CanImport reports whether the StartImport action is enabled.
func (s State) CanImport() bool {
	return s.Stage == StageValidation && s.Validation != nil && len(s.Validation.Valid) > 0
}

// Options configure a Session.
type Options struct {
	ID          string
	VendorID    string
	Writer      Writer        // nil discards rows
	RowDelay    time.Duration // pause before each row, for demo pacing
	MaxFileSize int64
	Logger      *slog.Logger
}

// Session drives one import through the wizard stages. All methods are safe
// for concurrent use.
type Session struct {
	opts Options
	log  *slog.Logger

	mu         sync.Mutex
	state      State
	gen        uint64 // bumped on Reset and each StartImport; stale runs check it
	cancel     context.CancelFunc
	done       chan struct{}
	lastActive time.Time
}

// NewSession returns a session at the Upload stage.
func NewSession(opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.ID != "" {
		log = log.With("session_id", opts.ID)
	}
	return &Session{
		opts:       opts,
		log:        log,
		state:      State{Stage: StageUpload},
		lastActive: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.opts.ID }

// VendorID returns the vendor rows are imported for.
func (s *Session) VendorID() string { return s.opts.VendorID }

// LastActive returns the time of the last state change.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// set replaces the state. Caller holds s.mu.
func (s *Session) set(next State) {
	s.state = next
	s.lastActive = time.Now()
}

// Upload decodes the file and moves to Mapping with suggested column
// assignments. On a parse failure the session stays at Upload with the
// error recorded and a *ParseError is returned.
func (s *Session) Upload(ctx context.Context, fileName string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	stage, gen := s.state.Stage, s.gen
	s.mu.Unlock()
	if stage != StageUpload {
		return fmt.Errorf("upload: %w (stage %s)", ErrWrongStage, stage)
	}

	table, err := Decode(fileName, r, s.opts.MaxFileSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		s.log.Info("upload discarded after reset", "file", fileName)
		return fmt.Errorf("upload: %w (session reset)", ErrWrongStage)
	}
	if s.state.Stage != StageUpload {
		return fmt.Errorf("upload: %w (stage %s)", ErrWrongStage, s.state.Stage)
	}

	if err != nil {
		s.log.Warn("upload rejected", "file", fileName, "error", err)
		s.set(State{Stage: StageUpload, FileName: fileName, Error: uploadMessage(err)})
		return err
	}

	s.set(State{
		Stage:    StageMapping,
		FileName: fileName,
		Columns:  table.Columns,
		Rows:     table.Rows,
		Mapping:  SuggestMapping(table.Columns),
	})
	s.log.Info("file parsed", "file", fileName, "columns", len(table.Columns), "rows", len(table.Rows))
	return nil
}

func uploadMessage(err error) string {
	var pe *ParseError
	if errors.As(err, &pe) {
		return "Could not read file: " + pe.Reason
	}
	return err.Error()
}

// SetMapping assigns column to field, or clears it when field is "".
func (s *Session) SetMapping(column, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Stage != StageMapping {
		return fmt.Errorf("set mapping: %w (stage %s)", ErrWrongStage, s.state.Stage)
	}
	if !slices.Contains(s.state.Columns, column) {
		return fmt.Errorf("set mapping: %w: %q", ErrUnknownColumn, column)
	}
	if field != "" {
		if _, ok := LookupField(field); !ok {
			return fmt.Errorf("set mapping: %w: %q", ErrUnknownField, field)
		}
	}

	next := s.state.clone()
	next.Mapping[column] = field
	s.set(next)
	return nil
}

// ApplyPreset overlays a saved mapping onto the current one and returns how
// many columns it assigned.
func (s *Session) ApplyPreset(p Preset) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Stage != StageMapping {
		return 0, fmt.Errorf("apply preset: %w (stage %s)", ErrWrongStage, s.state.Stage)
	}

	next := s.state.clone()
	n := p.overlay(next.Columns, next.Mapping)
	s.set(next)
	s.log.Info("mapping preset applied", "preset", p.Name, "columns", n)
	return n, nil
}

// Validate partitions the rows and moves to Validation.
func (s *Session) Validate() (ValidationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Stage != StageMapping {
		return ValidationResult{}, fmt.Errorf("validate: %w (stage %s)", ErrWrongStage, s.state.Stage)
	}
	if missing := s.state.Mapping.Missing(); len(missing) > 0 {
		return ValidationResult{}, fmt.Errorf("validate: %w: %v", ErrMappingIncomplete, missing)
	}

	res := ValidateRows(s.state.Columns, s.state.Rows, s.state.Mapping)

	next := s.state.clone()
	next.Stage = StageValidation
	next.Validation = &res
	s.set(next)

	s.log.Info("rows validated", "valid", len(res.Valid), "invalid", len(res.Invalid))
	return res.clone(), nil
}

// Back returns to Upload or Mapping. Going back to Upload drops the file;
// going back to Mapping keeps the file and mapping but drops validation.
func (s *Session) Back(to Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Stage
	switch {
	case to == StageUpload && (cur == StageMapping || cur == StageValidation):
		s.set(State{Stage: StageUpload})
	case to == StageMapping && cur == StageValidation:
		next := s.state.clone()
		next.Stage = StageMapping
		next.Validation = nil
		s.set(next)
	default:
		return fmt.Errorf("back to %s: %w (stage %s)", to, ErrWrongStage, cur)
	}
	return nil
}

// StartImport moves to Importing and writes valid rows in the background.
// The run is detached from ctx cancellation but keeps its values; use Cancel
// or Reset to stop it and Wait to block until it finishes.
func (s *Session) StartImport(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Stage != StageValidation || s.state.Validation == nil {
		return fmt.Errorf("start import: %w (stage %s)", ErrWrongStage, s.state.Stage)
	}
	if len(s.state.Validation.Valid) == 0 {
		return fmt.Errorf("start import: %w", ErrNoValidRows)
	}

	s.gen++
	gen := s.gen
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})

	next := s.state.clone()
	next.Stage = StageImporting
	next.Progress = Progress{Total: len(next.Validation.Valid)}
	s.set(next)

	go s.run(runCtx, gen, next, s.done)
	return nil
}

func (s *Session) run(ctx context.Context, gen uint64, st State, done chan struct{}) {
	defer close(done)
	start := time.Now()

	valid := st.Validation.Valid
	res := &Result{}
	for _, inv := range st.Validation.Invalid {
		res.Errors = append(res.Errors, Failure{Line: inv.Row.Line, Values: inv.Row.Values, Errors: inv.Errors})
	}
	res.Failed = len(st.Validation.Invalid)

	processed := 0
	for _, row := range valid {
		if !s.pause(ctx) {
			break
		}

		draft := NewDraft(row.Line, st.Mapping.Resolve(st.Columns, row))
		if err := s.write(ctx, draft); err != nil {
			if ctx.Err() != nil {
				break
			}
			s.log.Warn("row write failed", "line", row.Line, "sku", draft.SKU, "error", err)
			res.Failed++
			res.Errors = append(res.Errors, Failure{Line: row.Line, Values: row.Values, Errors: []string{err.Error()}})
		} else {
			res.Success++
		}

		processed++
		if !s.advance(gen, processed) {
			return
		}
	}

	if processed < len(valid) {
		res.Cancelled = true
		res.Skipped = len(valid) - processed
	}
	slices.SortStableFunc(res.Errors, func(a, b Failure) int { return a.Line - b.Line })
	res.Duration = time.Since(start)

	s.finish(gen, res)
}

// pause waits RowDelay, returning false if ctx ends first.
func (s *Session) pause(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if s.opts.RowDelay <= 0 {
		return true
	}
	t := time.NewTimer(s.opts.RowDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Session) write(ctx context.Context, d Draft) error {
	if s.opts.Writer == nil {
		return nil
	}
	return s.opts.Writer.WriteProduct(ctx, s.opts.VendorID, d)
}

// advance records progress for run gen. It returns false once the run is
// stale.
func (s *Session) advance(gen uint64, processed int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.state.Stage != StageImporting {
		return false
	}
	// Row data is shared with the run, so only the counter changes here.
	if processed > s.state.Progress.Processed {
		s.state.Progress.Processed = processed
		s.lastActive = time.Now()
	}
	return true
}

func (s *Session) finish(gen uint64, res *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.state.Stage != StageImporting {
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	next := s.state.clone()
	next.Stage = StageResults
	next.Result = res
	s.set(next)

	s.log.Info("import finished",
		"success", res.Success,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"cancelled", res.Cancelled,
		"duration", res.Duration,
	)
}

// Cancel stops a running import. The session moves to Results with the rows
// written so far and the rest counted as skipped.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Stage != StageImporting || s.cancel == nil {
		return fmt.Errorf("cancel: %w (stage %s)", ErrWrongStage, s.state.Stage)
	}
	s.cancel()
	s.log.Info("import cancel requested")
	return nil
}

// Reset discards everything and returns to Upload. A running import is
// cancelled and its late updates are ignored.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.set(State{Stage: StageUpload})
}

// Wait blocks until the current import run exits or ctx ends. It returns
// immediately when no import has been started.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// clone deep-copies st so snapshots never alias session data.
func (st State) clone() State {
	c := st
	c.Columns = slices.Clone(st.Columns)
	c.Rows = cloneRows(st.Rows)
	c.Mapping = st.Mapping.clone()
	if st.Validation != nil {
		v := st.Validation.clone()
		c.Validation = &v
	}
	if st.Result != nil {
		r := *st.Result
		if st.Result.Errors != nil {
			r.Errors = make([]Failure, len(st.Result.Errors))
			for i, f := range st.Result.Errors {
				r.Errors[i] = Failure{Line: f.Line, Values: maps.Clone(f.Values), Errors: slices.Clone(f.Errors)}
			}
		}
		c.Result = &r
	}
	return c
}

func (v ValidationResult) clone() ValidationResult {
	c := ValidationResult{Valid: cloneRows(v.Valid)}
	if v.Invalid != nil {
		c.Invalid = make([]InvalidRow, len(v.Invalid))
		for i, inv := range v.Invalid {
			c.Invalid[i] = InvalidRow{Row: inv.Row.clone(), Errors: slices.Clone(inv.Errors)}
		}
	}
	return c
}

func (r Row) clone() Row {
	return Row{Line: r.Line, Values: maps.Clone(r.Values)}
}

func cloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.clone()
	}
	return out
}
