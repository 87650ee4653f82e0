package web

import (
	"net/http"

	"github.com/JonMunkholm/sellerdash/internal/catalog"
)

// handleCatalog returns one page of the vendor's listing. Every query
// parameter is optional; unknown values fall back to their defaults.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := catalog.Query{
		Search:   q.Get("search"),
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Stock:    catalog.StockFilter(q.Get("stock")),
		Sort:     catalog.SortKey(q.Get("sort")),
		Page:     parseIntParam(r, "page", 1),
		PageSize: parseIntParam(r, "pageSize", 0),
	}

	page, err := s.service.CatalogView(r.Context(), vendorID(r), query)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type bulkStatusRequest struct {
	IDs    []int64        `json:"ids"`
	Status catalog.Status `json:"status"`
}

// handleBulkStatus applies one status to the selected products.
func (s *Server) handleBulkStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	n, err := s.service.BulkUpdateStatus(ctx, vendorID(r), req.IDs, req.Status)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"selected": catalog.NewSelection(req.IDs...).Len(),
		"updated":  n,
		"status":   req.Status,
	})
}

type toggleAllRequest struct {
	IDs   []int64       `json:"ids"`
	Query catalog.Query `json:"query"`
}

// handleToggleAll is the header checkbox: it selects or clears the page the
// query shows and returns the new selection.
func (s *Server) handleToggleAll(w http.ResponseWriter, r *http.Request) {
	var req toggleAllRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	st, err := s.service.ToggleAll(r.Context(), vendorID(r), req.Query, req.IDs)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type variantCheckRequest struct {
	BaseSKU  string            `json:"baseSku"`
	Variants []catalog.Variant `json:"variants"`
}

// handleCheckVariants suggests SKUs for a product editor's variant rows and
// warns about repeated color/size pairs.
func (s *Server) handleCheckVariants(w http.ResponseWriter, r *http.Request) {
	var req variantCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog.CheckVariants(req.BaseSKU, req.Variants))
}
