package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/sellerdash/internal/catalog"
	"github.com/JonMunkholm/sellerdash/internal/importer"
	"github.com/JonMunkholm/sellerdash/internal/logging"
	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned for unknown, expired, or other-vendor
	// import IDs.
	ErrSessionNotFound = errors.New("import session not found")

	// ErrNoSelection is returned by BulkUpdateStatus with no IDs.
	ErrNoSelection = errors.New("no products selected")

	// ErrInvalidStatus is returned for a status outside the catalog's set.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrPresetsDisabled is returned by preset operations when no
	// PresetStore is configured.
	ErrPresetsDisabled = errors.New("mapping presets are not configured")
)

// DefaultSessionTTL is how long an idle import session is kept.
const DefaultSessionTTL = 30 * time.Minute

// Invalidator drops cached catalog data for a vendor.
type Invalidator interface {
	Invalidate(ctx context.Context, vendorID string) error
}

// PresetStore persists saved column mappings per vendor.
type PresetStore interface {
	SavePreset(ctx context.Context, vendorID string, p importer.Preset) (importer.Preset, error)
	ListPresets(ctx context.Context, vendorID string) ([]importer.Preset, error)
	DeletePreset(ctx context.Context, vendorID, id string) error
}

// Deps are the storage collaborators of a Service. Cache and Presets may
// be nil.
type Deps struct {
	Source  catalog.Source
	Status  catalog.StatusWriter
	Writer  importer.Writer
	Cache   Invalidator
	Presets PresetStore
}

// Options tune a Service. Zero values fall back to defaults.
type Options struct {
	DefaultPageSize int
	RowDelay        time.Duration
	MaxFileSize     int64
	MaxConcurrent   int
	MaxWait         time.Duration
	SessionTTL      time.Duration
}

// Service is the entry point for catalog and import operations.
type Service struct {
	deps    Deps
	opts    Options
	limiter *ImportLimiter

	mu       sync.RWMutex
	sessions map[string]*importer.Session
}

// NewService returns a Service over deps.
func NewService(deps Deps, opts Options) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = importer.DefaultMaxFileSize
	}
	return &Service{
		deps:     deps,
		opts:     opts,
		limiter:  NewImportLimiter(opts.MaxConcurrent, opts.MaxWait),
		sessions: make(map[string]*importer.Session),
	}
}

// CatalogPage is a catalog view plus the category filter options.
type CatalogPage struct {
	catalog.View
	Categories []string `json:"categories"`
}

// CatalogView loads the vendor's products and returns the page for q.
func (s *Service) CatalogView(ctx context.Context, vendorID string, q catalog.Query) (CatalogPage, error) {
	products, err := s.deps.Source.ListProducts(ctx, vendorID)
	if err != nil {
		return CatalogPage{}, fmt.Errorf("list products: %w", err)
	}

	q = q.NormalizeWith(s.opts.DefaultPageSize)
	return CatalogPage{
		View:       catalog.BuildView(products, q),
		Categories: catalog.Categories(products),
	}, nil
}

// SelectionState is the listing's checkbox state.
type SelectionState struct {
	IDs         []int64 `json:"ids"`
	AllSelected bool    `json:"allSelected"`
}

// ToggleAll applies the header checkbox to the page q shows: a fully
// selected page is deselected, otherwise the selection becomes exactly that
// page. Products on other pages are never added.
func (s *Service) ToggleAll(ctx context.Context, vendorID string, q catalog.Query, selected []int64) (SelectionState, error) {
	page, err := s.CatalogView(ctx, vendorID, q)
	if err != nil {
		return SelectionState{}, err
	}
	next := catalog.NewSelection(selected...).ToggleAll(page.Items)
	return SelectionState{IDs: next.IDs(), AllSelected: next.AllSelected(page.Items)}, nil
}

// BulkUpdateStatus sets status on the selected products and returns how
// many changed.
// Repeated IDs count once.
func (s *Service) BulkUpdateStatus(ctx context.Context, vendorID string, ids []int64, status catalog.Status) (int64, error) {
	sel := catalog.NewSelection(ids...)
	if sel.Len() == 0 {
		return 0, ErrNoSelection
	}
	if !status.Valid() {
		return 0, fmt.Errorf("%w %q", ErrInvalidStatus, status)
	}

	n, err := s.deps.Status.SetStatus(ctx, vendorID, sel.IDs(), status)
	if err != nil {
		return 0, fmt.Errorf("bulk update status: %w", err)
	}

	logging.WithFields(ctx, "vendor_id", vendorID).Info("bulk status update",
		"status", status,
		"selected", sel.Len(),
		"updated", n,
	)
	s.invalidate(ctx, vendorID)
	return n, nil
}

// CreateImport registers a new import session at the Upload stage.
func (s *Service) CreateImport(ctx context.Context, vendorID string) *importer.Session {
	id := uuid.New().String()

	// The session outlives this request, so its logger carries no request_id.
	sess := importer.NewSession(importer.Options{
		ID:          id,
		VendorID:    vendorID,
		Writer:      s.deps.Writer,
		RowDelay:    s.opts.RowDelay,
		MaxFileSize: s.opts.MaxFileSize,
		Logger:      slog.Default().With("vendor_id", vendorID),
	})

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	client := ClientFromContext(ctx)
	logging.WithFields(ctx, "vendor_id", vendorID).Info("import session created", "session_id", id, "ip", client.IP, "user_agent", client.UserAgent)
	return sess
}

// Import returns the vendor's session with the given ID.
func (s *Service) Import(vendorID, id string) (*importer.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || sess.VendorID() != vendorID {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// ImportState returns a snapshot of the session.
func (s *Service) ImportState(vendorID, id string) (importer.State, error) {
	sess, err := s.Import(vendorID, id)
	if err != nil {
		return importer.State{}, err
	}
	return sess.State(), nil
}

// UploadFile decodes a file into the session.
func (s *Service) UploadFile(ctx context.Context, vendorID, id, fileName string, r io.Reader) (importer.State, error) {
	sess, err := s.Import(vendorID, id)
	if err != nil {
		return importer.State{}, err
	}
	err = sess.Upload(ctx, fileName, r)
	return sess.State(), err
}

// SetMapping updates one column assignment.
func (s *Service) SetMapping(vendorID, id, column, field string) (importer.State, error) {
	sess, err := s.Import(vendorID, id)
	if err != nil {
		return importer.State{}, err
	}
	err = sess.SetMapping(column, field)
	return sess.State(), err
}

// ValidateImport moves the session to Validation.
func (s *Service) ValidateImport(vendorID, id string) (importer.State, error) {
	sess, err := s.Import(vendorID, id)
	if err != nil {
		return importer.State{}, err
	}
	_, err = sess.Validate()
	return sess.State(), err
}

// BackImport returns the session to an earlier stage.
func (s *Service) BackImport(vendorID, id string, to importer.Stage) (importer.State, error) {
	sess, err := s.Import(vendorID, id)
	if err != nil {
		return importer.State{}, err
	}
	err = sess.Back(to)
	return sess.State(), err
}

// StartImport takes an import slot and starts writing valid rows. The slot
// is released, and the vendor's cache invalidated, when the run exits.
func (s *Service) StartImport(ctx context.Context, vendorID, id string) (importer.State, error) {
	sess, err := s.Import(vendorID, id)
	if err != nil {
		return importer.State{}, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return sess.State(), err
	}
	if err := sess.StartImport(ctx); err != nil {
		s.limiter.Release()
		return sess.State(), err
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		defer s.limiter.Release()
		_ = sess.Wait(context.Background())
		s.invalidate(bg, vendorID)
	}()

	return sess.State(), nil
}

// CancelImport stops a running import.
func (s *Service) CancelImport(vendorID, id string) (importer.State, error) {
	sess, err := s.Import(vendorID, id)
	if err != nil {
		return importer.State{}, err
	}
	err = sess.Cancel()
	return sess.State(), err
}

// ResetImport clears the session back to Upload ("Import More").
func (s *Service) ResetImport(vendorID, id string) (importer.State, error) {
	sess, err := s.Import(vendorID, id)
	if err != nil {
		return importer.State{}, err
	}
	sess.Reset()
	return sess.State(), nil
}

// DeleteImport resets and forgets the session.
func (s *Service) DeleteImport(vendorID, id string) error {
	sess, err := s.Import(vendorID, id)
	if err != nil {
		return err
	}
	sess.Reset()

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// WriteErrorReport writes the session's error rows as CSV. At Validation it
// lists invalid rows; at Results it lists every failed row.
func (s *Service) WriteErrorReport(vendorID, id string, w io.Writer) error {
	st, err := s.ImportState(vendorID, id)
	if err != nil {
		return err
	}

	var failures []importer.Failure
	switch {
	case st.Stage == importer.StageResults && st.Result != nil:
		failures = st.Result.Errors
	case st.Stage == importer.StageValidation && st.Validation != nil:
		for _, inv := range st.Validation.Invalid {
			failures = append(failures, importer.Failure{Line: inv.Row.Line, Values: inv.Row.Values, Errors: inv.Errors})
		}
	default:
		return fmt.Errorf("error report: %w (stage %s)", importer.ErrWrongStage, st.Stage)
	}
	return importer.WriteErrorReport(w, st.Columns, failures)
}

// WatchImport emits the session state every time progress or stage
// changes, polling at interval. The channel closes once the session leaves
// Importing or ctx ends.
func (s *Service) WatchImport(ctx context.Context, vendorID, id string, interval time.Duration) (<-chan importer.State, error) {
	sess, err := s.Import(vendorID, id)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	ch := make(chan importer.State, 1)
	go func() {
		defer close(ch)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last importer.State
		first := true
		for {
			st := sess.State()
			if first || st.Stage != last.Stage || st.Progress != last.Progress {
				select {
				case ch <- st:
				case <-ctx.Done():
					return
				}
				last, first = st, false
			}
			if st.Stage != importer.StageImporting {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return ch, nil
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// SessionCount returns the number of registered import sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RunJanitor evicts idle sessions until ctx ends.
func (s *Service) RunJanitor(ctx context.Context) {
	interval := max(s.opts.SessionTTL/4, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.evictIdle(now); n > 0 {
				slog.Info("evicted idle import sessions", "count", n, "remaining", s.SessionCount())
			}
		}
	}
}

// evictIdle drops sessions idle for longer than SessionTTL. Running imports
// are never evicted.
func (s *Service) evictIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActive()) <= s.opts.SessionTTL {
			continue
		}
		if sess.State().Stage == importer.StageImporting {
			continue
		}
		sess.Reset()
		delete(s.sessions, id)
		n++
	}
	return n
}

// Shutdown waits for running imports to finish or ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) invalidate(ctx context.Context, vendorID string) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Invalidate(ctx, vendorID); err != nil {
		logging.WithFields(ctx, "vendor_id", vendorID).Warn("cache invalidation failed", "error", err)
	}
}
