package web

// handlers_common.go holds request parsing helpers shared by the handlers.

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// multipartOverhead is the slack allowed on top of the file size limit for
// multipart framing.
const multipartOverhead = 1 << 20

// parseIntParam parses an integer query parameter. Missing or malformed
// values return defaultVal.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return defaultVal
	}
	return i
}

// decodeJSON reads a JSON body into v. Failures wrap errBadRequest.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return nil
}

// vendorID returns the {vendorID} route parameter.
func vendorID(r *http.Request) string {
	return chi.URLParam(r, "vendorID")
}

// importID returns the {importID} route parameter.
func importID(r *http.Request) string {
	return chi.URLParam(r, "importID")
}
