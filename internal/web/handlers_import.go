package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/sellerdash/internal/importer"
	"github.com/JonMunkholm/sellerdash/internal/logging"
)

// progressInterval is how often the progress stream samples a session.
const progressInterval = 200 * time.Millisecond

// importResponse is an import session snapshot plus the derived flags the
// wizard needs to enable its buttons.
type importResponse struct {
	ID string `json:"id"`
	importer.State
	Missing     []string `json:"missing"`
	CanValidate bool     `json:"canValidate"`
	CanImport   bool     `json:"canImport"`
}

func newImportResponse(id string, st importer.State) importResponse {
	missing := st.Missing()
	if missing == nil {
		missing = []string{}
	}
	return importResponse{
		ID:          id,
		State:       st,
		Missing:     missing,
		CanValidate: st.CanValidate(),
		CanImport:   st.CanImport(),
	}
}

// writeImport renders a session snapshot as JSON, or as the progress
// fragment for HTMX requests.
func (s *Server) writeImport(w http.ResponseWriter, r *http.Request, status int, id string, st importer.State) {
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := ImportProgress(id, st).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render import progress", "error", err)
		}
		return
	}
	writeJSON(w, status, newImportResponse(id, st))
}

// handleListFields returns the target fields available for mapping.
func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"fields":   importer.Fields,
		"required": importer.MappingRequired,
	})
}

// handleTemplateCSV downloads the sample import file as CSV.
func (s *Server) handleTemplateCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := importer.WriteTemplateCSV(&buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="product_import_template.csv"`)
	w.Write(buf.Bytes())
}

// handleTemplateXLSX downloads the sample import file as an Excel workbook.
func (s *Server) handleTemplateXLSX(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := importer.WriteTemplateXLSX(&buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="product_import_template.xlsx"`)
	w.Write(buf.Bytes())
}

// handleCreateImport opens a new session at the Upload stage.
func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	sess := s.service.CreateImport(ctx, vendorID(r))
	w.Header().Set("Location", fmt.Sprintf("/api/vendors/%s/imports/%s", sess.VendorID(), sess.ID()))
	s.writeImport(w, r, http.StatusCreated, sess.ID(), sess.State())
}

func (s *Server) handleImportState(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.ImportState(vendorID(r), importID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeImport(w, r, http.StatusOK, importID(r), st)
}

func (s *Server) handleDeleteImport(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteImport(vendorID(r), importID(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImportFile accepts the multipart "file" field and decodes it into
// the session.
func (s *Server) handleImportFile(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("file too large: %w", err))
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: no file provided: %v", errBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: no file provided: %v", errBadRequest, err))
		return
	}
	defer file.Close()

	ctx := WithRequestMetadata(r.Context(), r)
	st, err := s.service.UploadFile(ctx, vendorID(r), importID(r), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeImport(w, r, http.StatusOK, importID(r), st)
}

type mappingRequest struct {
	Column string `json:"column"`
	Field  string `json:"field"` // empty means "Do not import"
}

func (s *Server) handleImportMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	st, err := s.service.SetMapping(vendorID(r), importID(r), req.Column, req.Field)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeImport(w, r, http.StatusOK, importID(r), st)
}

func (s *Server) handleImportValidate(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.ValidateImport(vendorID(r), importID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeImport(w, r, http.StatusOK, importID(r), st)
}

type backRequest struct {
	Stage importer.Stage `json:"stage"`
}

func (s *Server) handleImportBack(w http.ResponseWriter, r *http.Request) {
	var req backRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	st, err := s.service.BackImport(vendorID(r), importID(r), req.Stage)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeImport(w, r, http.StatusOK, importID(r), st)
}

// handleImportStart begins writing valid rows and returns immediately; the
// client follows along on the progress stream.
func (s *Server) handleImportStart(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	st, err := s.service.StartImport(ctx, vendorID(r), importID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeImport(w, r, http.StatusAccepted, importID(r), st)
}

func (s *Server) handleImportCancel(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.CancelImport(vendorID(r), importID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeImport(w, r, http.StatusOK, importID(r), st)
}

func (s *Server) handleImportReset(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.ResetImport(vendorID(r), importID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeImport(w, r, http.StatusOK, importID(r), st)
}

// handleImportErrors downloads the invalid or failed rows as CSV.
func (s *Server) handleImportErrors(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.service.WriteErrorReport(vendorID(r), importID(r), &buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="import_errors_%s.csv"`, importID(r)))
	w.Write(buf.Bytes())
}

// handleImportProgress streams session snapshots as Server-Sent Events. The
// event ID is the progress percentage, so a reconnecting client passing
// lastEventId skips what it has already seen. A final "complete" event
// carries the Results state.
func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	lastEventIDStr := r.URL.Query().Get("lastEventId")
	if lastEventIDStr == "" {
		lastEventIDStr = r.Header.Get("Last-Event-ID")
	}
	lastEventID := -1
	if lastEventIDStr != "" {
		if n, err := strconv.Atoi(lastEventIDStr); err == nil {
			lastEventID = n
		}
	}

	updates, err := s.service.WatchImport(r.Context(), vendorID(r), importID(r), progressInterval)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, errors.New("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	id := importID(r)
	var last importer.State
	for st := range updates {
		last = st
		if st.Stage != importer.StageImporting {
			continue
		}
		pct := st.Progress.Percent()
		if pct <= lastEventID {
			continue
		}
		lastEventID = pct

		data, _ := json.Marshal(newImportResponse(id, st))
		fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", pct, data)
		flusher.Flush()
	}

	if r.Context().Err() != nil {
		return
	}
	data, _ := json.Marshal(newImportResponse(id, last))
	fmt.Fprintf(w, "event: complete\ndata: %s\n\n", data)
	flusher.Flush()
}
