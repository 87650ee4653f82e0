package catalog

import (
	"slices"
	"strings"
)

// Stats holds the headline counts shown above the listing. They are computed
// over the whole collection, not the filtered view.
type Stats struct {
	Total      int `json:"total"`
	Published  int `json:"published"`
	Pending    int `json:"pending"`
	Draft      int `json:"draft"`
	OutOfStock int `json:"outOfStock"`
}

// ComputeStats counts products by status and stock.
func ComputeStats(products []Product) Stats {
	st := Stats{Total: len(products)}
	for _, p := range products {
		switch p.Status {
		case StatusPublished:
			st.Published++
		case StatusPending:
			st.Pending++
		case StatusDraft:
			st.Draft++
		}
		if p.Level() == LevelOutOfStock {
			st.OutOfStock++
		}
	}
	return st
}

// Filter returns the products matching every predicate of q, in input order.
// The query is normalized first, so unknown filter values match everything.
func Filter(products []Product, q Query) []Product {
	q = q.Normalize()
	search := strings.ToLower(q.Search)

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if search != "" && !matchesSearch(p, search) {
			continue
		}
		if q.Status != FilterAll && string(p.Status) != q.Status {
			continue
		}
		if q.Category != FilterAll && p.Category != q.Category {
			continue
		}
		if q.Stock != StockAll && StockFilter(p.Level()) != q.Stock {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesSearch(p Product, lowered string) bool {
	return strings.Contains(strings.ToLower(p.Name), lowered) ||
		strings.Contains(strings.ToLower(p.SKU), lowered) ||
		strings.Contains(strings.ToLower(p.Category), lowered)
}

// Sort returns a stably sorted copy of products. Products with equal keys
// keep their input order, which keeps pagination deterministic.
// An unknown key sorts newest first.
func Sort(products []Product, key SortKey) []Product {
	out := slices.Clone(products)

	var cmp func(a, b Product) int
	switch key {
	case SortOldest:
		cmp = func(a, b Product) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortPriceLow:
		cmp = func(a, b Product) int { return a.Price.Cmp(b.Price) }
	case SortPriceHigh:
		cmp = func(a, b Product) int { return b.Price.Cmp(a.Price) }
	case SortNameAZ:
		cmp = func(a, b Product) int { return strings.Compare(a.Name, b.Name) }
	default:
		cmp = func(a, b Product) int { return b.CreatedAt.Compare(a.CreatedAt) }
	}

	slices.SortStableFunc(out, cmp)
	return out
}

// Paginate returns the 1-based page of products and the total page count.
// Pages past the end are empty. A non-positive page size yields no pages.
func Paginate(products []Product, page, pageSize int) ([]Product, int) {
	if pageSize <= 0 {
		return []Product{}, 0
	}
	if page < 1 {
		page = 1
	}

	total := len(products)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start >= total {
		return []Product{}, totalPages
	}
	end := min(start+pageSize, total)
	return slices.Clone(products[start:end]), totalPages
}

// View is one rendered page of the listing.
type View struct {
	Items      []Product `json:"items"`
	TotalCount int       `json:"totalCount"`
	TotalPages int       `json:"totalPages"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	Query      Query     `json:"query"`
	Stats      Stats     `json:"stats"`
}

// BuildView filters, sorts and paginates products for q and attaches the
// collection-wide stats.
func BuildView(products []Product, q Query) View {
	q = q.Normalize()

	filtered := Filter(products, q)
	sorted := Sort(filtered, q.Sort)
	items, totalPages := Paginate(sorted, q.Page, q.PageSize)

	return View{
		Items:      items,
		TotalCount: len(filtered),
		TotalPages: totalPages,
		Page:       q.Page,
		PageSize:   q.PageSize,
		Query:      q,
		Stats:      ComputeStats(products),
	}
}

// Categories returns the distinct categories in first-seen order, for the
// category filter dropdown.
func Categories(products []Product) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out
}
