package catalog

import "strings"

// FilterAll disables the status or category filter.
const FilterAll = "all"

// StockFilter restricts results to a stock bucket.
type StockFilter string

const (
	StockAll        StockFilter = "all"
	StockInStock    StockFilter = StockFilter(LevelInStock)
	StockLowStock   StockFilter = StockFilter(LevelLowStock)
	StockOutOfStock StockFilter = StockFilter(LevelOutOfStock)
)

// SortKey selects the listing order.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortOldest    SortKey = "oldest"
	SortPriceLow  SortKey = "price_low"
	SortPriceHigh SortKey = "price_high"
	SortNameAZ    SortKey = "name_az"
)

// PageSizes lists the page sizes a listing may use.
var PageSizes = []int{12, 24, 48}

// DefaultPageSize is used for unknown page sizes.
const DefaultPageSize = 12

// Query is the full set of listing parameters. It is rebuilt on every
// interaction and never stored.
type Query struct {
	Search   string      `json:"search"`
	Status   string      `json:"status"`
	Category string      `json:"category"`
	Stock    StockFilter `json:"stock"`
	Sort     SortKey     `json:"sort"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

// Normalize replaces unknown or missing values with their defaults: filters
// become "all", the sort becomes newest, the page becomes 1 and the page
// size falls back to DefaultPageSize.
func (q Query) Normalize() Query {
	return q.NormalizeWith(DefaultPageSize)
}

// NormalizeWith is Normalize with a caller-chosen fallback page size. An
// invalid fallback is itself replaced by DefaultPageSize.
func (q Query) NormalizeWith(fallbackPageSize int) Query {
	if !validPageSize(fallbackPageSize) {
		fallbackPageSize = DefaultPageSize
	}

	if q.Status == "" || (q.Status != FilterAll && !Status(q.Status).Valid()) {
		q.Status = FilterAll
	}
	if strings.TrimSpace(q.Category) == "" {
		q.Category = FilterAll
	}

	switch q.Stock {
	case StockAll, StockInStock, StockLowStock, StockOutOfStock:
	default:
		q.Stock = StockAll
	}

	switch q.Sort {
	case SortNewest, SortOldest, SortPriceLow, SortPriceHigh, SortNameAZ:
	default:
		q.Sort = SortNewest
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if !validPageSize(q.PageSize) {
		q.PageSize = fallbackPageSize
	}
	return q
}

func validPageSize(n int) bool {
	for _, size := range PageSizes {
		if n == size {
			return true
		}
	}
	return false
}
