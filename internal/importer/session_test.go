package importer

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

const sampleCSV = "Product Name,SKU,Price,Stock Quantity,Notes\n" +
	"Mug,MUG-1,9.50,4,\n" +
	",TEE-1,abc,25,empty name\n" +
	"Lamp,LMP-1,49.90,2,\n" +
	"Cap,,5,1,no sku\n" +
	"Pen,PEN-1,1.20,100,\n"

// recordingWriter captures written drafts and can fail chosen SKUs.
type recordingWriter struct {
	mu      sync.Mutex
	drafts  []Draft
	failSKU string
	onWrite func(Draft)
}

func (w *recordingWriter) WriteProduct(_ context.Context, _ string, d Draft) error {
	if w.onWrite != nil {
		w.onWrite(d)
	}
	if d.SKU == w.failSKU {
		return errors.New("duplicate sku")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drafts = append(w.drafts, d)
	return nil
}

func uploadSample(t *testing.T, s *Session) {
	t.Helper()
	if err := s.Upload(context.Background(), "sample.csv", strings.NewReader(sampleCSV)); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
}

func waitFor(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
}

func TestSession_HappyPath(t *testing.T) {
	w := &recordingWriter{}
	s := NewSession(Options{ID: "s1", VendorID: "v1", Writer: w})

	if st := s.State(); st.Stage != StageUpload {
		t.Fatalf("initial stage = %s", st.Stage)
	}

	uploadSample(t, s)
	st := s.State()
	if st.Stage != StageMapping {
		t.Fatalf("stage after upload = %s", st.Stage)
	}
	if st.Mapping["Notes"] != "" || st.Mapping["SKU"] != FieldSKU {
		t.Errorf("suggested mapping = %v", st.Mapping)
	}
	if !st.CanValidate() {
		t.Fatalf("validate should be enabled, missing %v", st.Missing())
	}

	res, err := s.Validate()
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if len(res.Valid) != 3 || len(res.Invalid) != 2 {
		t.Fatalf("valid=%d invalid=%d, want 3/2", len(res.Valid), len(res.Invalid))
	}
	if !s.State().CanImport() {
		t.Fatal("import should be enabled")
	}

	if err := s.StartImport(context.Background()); err != nil {
		t.Fatalf("StartImport() error: %v", err)
	}
	waitFor(t, s)

	st = s.State()
	if st.Stage != StageResults {
		t.Fatalf("stage after import = %s", st.Stage)
	}
	r := st.Result
	if r.Success != 3 || r.Failed != 2 || r.Skipped != 0 || r.Cancelled {
		t.Errorf("result = %+v", r)
	}
	if r.Success+r.Failed != res.Total() {
		t.Errorf("success+failed = %d, want %d", r.Success+r.Failed, res.Total())
	}
	if st.Progress.Processed != st.Progress.Total || st.Progress.Percent() != 100 {
		t.Errorf("progress = %+v", st.Progress)
	}

	if len(r.Errors) != 2 || r.Errors[0].Line != 3 || r.Errors[1].Line != 5 {
		t.Fatalf("error report = %+v", r.Errors)
	}
	if got := r.Errors[0].Errors; len(got) != 2 || got[0] != MsgNameRequired || got[1] != MsgInvalidPrice {
		t.Errorf("row 3 errors = %q", got)
	}

	if len(w.drafts) != 3 || w.drafts[0].SKU != "MUG-1" || w.drafts[2].SKU != "PEN-1" {
		t.Errorf("written drafts = %+v", w.drafts)
	}

	s.Reset()
	if st := s.State(); st.Stage != StageUpload || st.FileName != "" || st.Result != nil || len(st.Rows) != 0 {
		t.Errorf("Reset left state behind: %+v", st)
	}
}

func TestSession_WriterFailuresCountAsFailed(t *testing.T) {
	w := &recordingWriter{failSKU: "LMP-1"}
	s := NewSession(Options{Writer: w})
	uploadSample(t, s)
	if _, err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := s.StartImport(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, s)

	r := s.State().Result
	if r.Success != 2 || r.Failed != 3 {
		t.Errorf("success=%d failed=%d, want 2/3", r.Success, r.Failed)
	}
	lines := []int{}
	for _, f := range r.Errors {
		lines = append(lines, f.Line)
	}
	if len(lines) != 3 || lines[0] != 3 || lines[1] != 4 || lines[2] != 5 {
		t.Errorf("error lines = %v, want sorted [3 4 5]", lines)
	}
}

func TestSession_ProgressIsMonotonic(t *testing.T) {
	var (
		s    *Session
		seen []int
	)
	w := &recordingWriter{onWrite: func(Draft) {
		seen = append(seen, s.State().Progress.Processed)
	}}
	s = NewSession(Options{Writer: w})
	uploadSample(t, s)
	if _, err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := s.StartImport(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, s)

	for i, p := range seen {
		if p != i {
			t.Errorf("progress before row %d = %d, want %d", i, p, i)
		}
	}
}

func TestSession_UploadParseError(t *testing.T) {
	s := NewSession(Options{})

	err := s.Upload(context.Background(), "empty.csv", strings.NewReader("Product Name,SKU\n"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Upload() error = %v, want *ParseError", err)
	}

	st := s.State()
	if st.Stage != StageUpload {
		t.Errorf("stage = %s, want upload", st.Stage)
	}
	if !strings.Contains(st.Error, "no data rows") {
		t.Errorf("visible error = %q", st.Error)
	}

	// A good file afterwards clears the error.
	uploadSample(t, s)
	if st := s.State(); st.Error != "" || st.Stage != StageMapping {
		t.Errorf("state after retry = %+v", st)
	}
}

func TestSession_MappingRules(t *testing.T) {
	s := NewSession(Options{})
	uploadSample(t, s)

	if err := s.SetMapping("Price", ""); err != nil {
		t.Fatal(err)
	}
	if s.State().CanValidate() {
		t.Error("validate enabled with price unmapped")
	}
	if _, err := s.Validate(); !errors.Is(err, ErrMappingIncomplete) {
		t.Errorf("Validate() error = %v, want ErrMappingIncomplete", err)
	}

	if err := s.SetMapping("Nope", FieldPrice); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("unknown column error = %v", err)
	}
	if err := s.SetMapping("Notes", "colour"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("unknown field error = %v", err)
	}

	// Notes is empty on valid rows, so remapping price to it makes them invalid.
	if err := s.SetMapping("Notes", FieldPrice); err != nil {
		t.Fatal(err)
	}
	res, err := s.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Valid) != 0 {
		t.Errorf("valid rows = %d, want 0", len(res.Valid))
	}
	if s.State().CanImport() {
		t.Error("import enabled with no valid rows")
	}
	if err := s.StartImport(context.Background()); !errors.Is(err, ErrNoValidRows) {
		t.Errorf("StartImport() error = %v, want ErrNoValidRows", err)
	}
}

func TestSession_Back(t *testing.T) {
	s := NewSession(Options{})
	uploadSample(t, s)
	if _, err := s.Validate(); err != nil {
		t.Fatal(err)
	}

	if err := s.Back(StageMapping); err != nil {
		t.Fatalf("Back(mapping) error: %v", err)
	}
	st := s.State()
	if st.Stage != StageMapping || st.Validation != nil || len(st.Rows) != 5 {
		t.Errorf("after Back(mapping): %+v", st)
	}

	if err := s.Back(StageMapping); !errors.Is(err, ErrWrongStage) {
		t.Errorf("Back(mapping) from mapping = %v, want ErrWrongStage", err)
	}

	if err := s.Back(StageUpload); err != nil {
		t.Fatal(err)
	}
	if st := s.State(); st.Stage != StageUpload || st.Columns != nil {
		t.Errorf("after Back(upload): %+v", st)
	}
}

func TestSession_WrongStage(t *testing.T) {
	s := NewSession(Options{})

	if err := s.SetMapping("SKU", FieldSKU); !errors.Is(err, ErrWrongStage) {
		t.Errorf("SetMapping at upload = %v", err)
	}
	if _, err := s.Validate(); !errors.Is(err, ErrWrongStage) {
		t.Errorf("Validate at upload = %v", err)
	}
	if err := s.StartImport(context.Background()); !errors.Is(err, ErrWrongStage) {
		t.Errorf("StartImport at upload = %v", err)
	}
	if err := s.Cancel(); !errors.Is(err, ErrWrongStage) {
		t.Errorf("Cancel at upload = %v", err)
	}

	uploadSample(t, s)
	if err := s.Upload(context.Background(), "again.csv", strings.NewReader(sampleCSV)); !errors.Is(err, ErrWrongStage) {
		t.Errorf("second Upload = %v", err)
	}
}

func TestSession_Cancel(t *testing.T) {
	s := NewSession(Options{RowDelay: time.Hour})
	uploadSample(t, s)
	if _, err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := s.StartImport(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Cancel(); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	waitFor(t, s)

	st := s.State()
	if st.Stage != StageResults {
		t.Fatalf("stage = %s, want results", st.Stage)
	}
	r := st.Result
	if !r.Cancelled || r.Success != 0 || r.Skipped != 3 || r.Failed != 2 {
		t.Errorf("result = %+v", r)
	}
	if r.Success+r.Failed+r.Skipped != 5 {
		t.Errorf("counts do not cover every row: %+v", r)
	}
}

func TestSession_ResetDuringImportIgnoresLateUpdates(t *testing.T) {
	s := NewSession(Options{RowDelay: time.Hour})
	uploadSample(t, s)
	if _, err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := s.StartImport(context.Background()); err != nil {
		t.Fatal(err)
	}

	s.Reset()
	waitFor(t, s)

	st := s.State()
	if st.Stage != StageUpload || st.Result != nil || st.Progress != (Progress{}) {
		t.Errorf("late run leaked into reset session: %+v", st)
	}
}

func TestSession_StateIsACopy(t *testing.T) {
	s := NewSession(Options{})
	uploadSample(t, s)

	st := s.State()
	st.Mapping["Price"] = ""
	st.Columns[0] = "changed"
	st.Rows[0].Values["Product Name"] = "changed"

	again := s.State()
	if again.Mapping["Price"] != FieldPrice || again.Columns[0] != "Product Name" {
		t.Errorf("snapshot mutation reached the session: %+v", again)
	}
	if got := again.Rows[0].Values["Product Name"]; got != "Mug" {
		t.Errorf("row value = %q after editing a snapshot, want Mug", got)
	}

	res, err := s.Validate()
	if err != nil {
		t.Fatal(err)
	}
	res.Invalid[0].Row.Values["SKU"] = "changed"
	res.Invalid[0].Errors[0] = "changed"
	st = s.State()
	st.Validation.Valid[0].Values["SKU"] = "changed"

	again = s.State()
	if got := again.Validation.Valid[0].Values["SKU"]; got != "MUG-1" {
		t.Errorf("valid row SKU = %q, want MUG-1", got)
	}
	inv := again.Validation.Invalid[0]
	if inv.Row.Values["SKU"] != "TEE-1" || inv.Errors[0] != MsgNameRequired {
		t.Errorf("invalid row changed through a returned result: %+v", inv)
	}
}

func TestSession_ResultIsACopy(t *testing.T) {
	s := NewSession(Options{})
	uploadSample(t, s)
	if _, err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if err := s.StartImport(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, s)

	st := s.State()
	st.Result.Errors[0].Values["SKU"] = "changed"
	st.Result.Errors[0].Errors[0] = "changed"

	f := s.State().Result.Errors[0]
	if f.Values["SKU"] != "TEE-1" || f.Errors[0] != MsgNameRequired {
		t.Errorf("failure changed through a snapshot: %+v", f)
	}
}

// gatedReader blocks the first Read until release is closed.
type gatedReader struct {
	r       io.Reader
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedReader) Read(p []byte) (int, error) {
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return g.r.Read(p)
}

func TestSession_ResetDuringUploadDiscardsLateParse(t *testing.T) {
	s := NewSession(Options{})
	g := &gatedReader{
		r:       strings.NewReader(sampleCSV),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}

	errc := make(chan error, 1)
	go func() {
		errc <- s.Upload(context.Background(), "slow.csv", g)
	}()

	<-g.started
	s.Reset()
	close(g.release)

	if err := <-errc; !errors.Is(err, ErrWrongStage) {
		t.Errorf("Upload() error = %v, want ErrWrongStage", err)
	}
	st := s.State()
	if st.Stage != StageUpload || st.FileName != "" || len(st.Rows) != 0 {
		t.Errorf("late parse overrode Reset: %+v", st)
	}

	// The session still accepts a fresh upload.
	uploadSample(t, s)
	if st := s.State(); st.Stage != StageMapping {
		t.Errorf("stage after new upload = %s", st.Stage)
	}
}
