// Package catalog derives the seller's visible product listing from the full
// product collection: search, filters, stable sort, pagination, headline
// counts and the checkbox selection over the visible page.
//
// Every function here is a pure transformation over an in-memory slice. The
// collection itself comes from a [Source]; nothing is pushed down to it.
package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold applies when a product has no threshold of its own.
const DefaultLowStockThreshold = 10

// Status is the moderation state of a listing.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusPublished, StatusRejected:
		return true
	}
	return false
}

// Product is a seller's listing as supplied by a Source. The catalog never
// mutates products.
type Product struct {
	ID                int64               `json:"id"`
	VendorID          string              `json:"vendorId"`
	Name              string              `json:"name"`
	SKU               string              `json:"sku"`
	Category          string              `json:"category"`
	Price             decimal.Decimal     `json:"price"`
	ComparePrice      decimal.NullDecimal `json:"comparePrice"`
	Stock             int                 `json:"stock"`
	LowStockThreshold *int                `json:"lowStockThreshold,omitempty"`
	Status            Status              `json:"status"`
	CreatedAt         time.Time           `json:"createdAt"`
}

// Threshold returns the product's low-stock threshold, falling back to
// DefaultLowStockThreshold when unset.
func (p Product) Threshold() int {
	if p.LowStockThreshold != nil {
		return *p.LowStockThreshold
	}
	return DefaultLowStockThreshold
}

// StockLevel classifies stock against the threshold.
type StockLevel string

const (
	LevelInStock    StockLevel = "in_stock"
	LevelLowStock   StockLevel = "low_stock"
	LevelOutOfStock StockLevel = "out_of_stock"
)

// Level places the product in exactly one stock bucket.
// Negative stock is treated as zero.
func (p Product) Level() StockLevel {
	switch {
	case p.Stock <= 0:
		return LevelOutOfStock
	case p.Stock <= p.Threshold():
		return LevelLowStock
	default:
		return LevelInStock
	}
}

// DiscountPercent returns the whole-number percentage saved against the
// compare price, rounded half up. It is 0 when there is no compare price or
// the compare price does not exceed the price.
func (p Product) DiscountPercent() int {
	if !p.ComparePrice.Valid {
		return 0
	}
	compare := p.ComparePrice.Decimal
	if !compare.IsPositive() || compare.LessThanOrEqual(p.Price) {
		return 0
	}
	saved := compare.Sub(p.Price).Div(compare).Mul(decimal.NewFromInt(100))
	return int(saved.Round(0).IntPart())
}

// MarshalJSON adds the derived discount and stock level to the stored
// fields. Both are ignored when decoding.
func (p Product) MarshalJSON() ([]byte, error) {
	type stored Product
	return json.Marshal(struct {
		stored
		DiscountPercent int        `json:"discountPercent"`
		StockLevel      StockLevel `json:"stockLevel"`
	}{stored(p), p.DiscountPercent(), p.Level()})
}

// Source supplies a vendor's full product collection.
type Source interface {
	ListProducts(ctx context.Context, vendorID string) ([]Product, error)
}

// StatusWriter persists a bulk status change. It returns the number of
// products actually updated.
type StatusWriter interface {
	SetStatus(ctx context.Context, vendorID string, ids []int64, status Status) (int64, error)
}
