package web

import (
	"net/http"

	"github.com/JonMunkholm/sellerdash/internal/importer"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.service.ListPresets(r.Context(), vendorID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if presets == nil {
		presets = []importer.Preset{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": presets})
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeletePreset(r.Context(), vendorID(r), chi.URLParam(r, "presetID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type savePresetRequest struct {
	Name string `json:"name"`
}

// handleSavePreset saves the session's current mapping under a name.
func (s *Server) handleSavePreset(w http.ResponseWriter, r *http.Request) {
	var req savePresetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	p, err := s.service.SavePreset(ctx, vendorID(r), importID(r), req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// handleMatchPresets lists the saved mappings that fit the uploaded file.
func (s *Server) handleMatchPresets(w http.ResponseWriter, r *http.Request) {
	matches, err := s.service.MatchPresets(r.Context(), vendorID(r), importID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if matches == nil {
		matches = []importer.PresetMatch{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (s *Server) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.ApplyPreset(r.Context(), vendorID(r), importID(r), chi.URLParam(r, "presetID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeImport(w, r, http.StatusOK, importID(r), st)
}
