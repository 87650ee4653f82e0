// Package store provides product storage backends: an in-memory store seeded
// with generated products, a PostgreSQL store, and a Redis read-through cache
// in front of either.
package store

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/sellerdash/internal/catalog"
	"github.com/JonMunkholm/sellerdash/internal/importer"
	"github.com/shopspring/decimal"
)

// ErrDuplicateSKU is returned when a vendor already has a product with the
// same SKU.
var ErrDuplicateSKU = errors.New("sku already exists")

var (
	mockAdjectives = []string{"Classic", "Organic", "Wireless", "Vintage", "Compact", "Deluxe", "Eco", "Smart", "Rustic", "Ultra"}
	mockNouns      = []string{"Headphones", "T-Shirt", "Water Bottle", "Desk Lamp", "Backpack", "Yoga Mat", "Coffee Mug", "Sneakers", "Notebook", "Plant Pot"}
	mockCategories = []string{"Electronics", "Apparel", "Home & Garden", "Sports", "Accessories", "Stationery"}
)

// Memory is an in-memory product store. Each vendor's catalog is generated
// on first access from a seed, so the same seed yields the same products.
type Memory struct {
	count int
	seed  uint64
	now   time.Time

	mu      sync.RWMutex
	vendors map[string][]catalog.Product
	presets map[string][]importer.Preset
	nextID  int64
}

// NewMemory returns a store that generates count products per vendor.
func NewMemory(count int, seed int64) *Memory {
	return &Memory{
		count:   count,
		seed:    uint64(seed),
		now:     time.Now().UTC().Truncate(time.Second),
		vendors: make(map[string][]catalog.Product),
		presets: make(map[string][]importer.Preset),
	}
}

// ListProducts returns the vendor's products, newest first.
func (m *Memory) ListProducts(ctx context.Context, vendorID string) ([]catalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	products := m.vendorLocked(vendorID)
	out := make([]catalog.Product, len(products))
	copy(out, products)
	return out, nil
}

// SetStatus changes the status of the given products and returns how many
// matched.
func (m *Memory) SetStatus(ctx context.Context, vendorID string, ids []int64, status catalog.Status) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !status.Valid() {
		return 0, fmt.Errorf("invalid status %q", status)
	}

	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	products := m.vendorLocked(vendorID)
	var n int64
	for i := range products {
		if want[products[i].ID] {
			products[i].Status = status
			n++
		}
	}
	return n, nil
}

// WriteProduct adds an imported product as a draft.
func (m *Memory) WriteProduct(ctx context.Context, vendorID string, d importer.Draft) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	products := m.vendorLocked(vendorID)
	for _, p := range products {
		if strings.EqualFold(p.SKU, d.SKU) {
			return fmt.Errorf("%w: %s", ErrDuplicateSKU, d.SKU)
		}
	}

	m.nextID++
	p := catalog.Product{
		ID:           m.nextID,
		VendorID:     vendorID,
		Name:         d.Name,
		SKU:          d.SKU,
		Category:     d.Category,
		Price:        d.Price,
		ComparePrice: d.ComparePrice,
		Stock:        d.Stock,
		Status:       catalog.StatusDraft,
		CreatedAt:    time.Now().UTC(),
	}
	m.vendors[vendorID] = append([]catalog.Product{p}, products...)
	return nil
}

// vendorLocked returns the vendor's slice, generating it on first use.
// Caller holds m.mu for writing.
func (m *Memory) vendorLocked(vendorID string) []catalog.Product {
	if products, ok := m.vendors[vendorID]; ok {
		return products
	}

	h := fnv.New64a()
	h.Write([]byte(vendorID))
	rng := rand.New(rand.NewPCG(m.seed, h.Sum64()))

	products := make([]catalog.Product, m.count)
	for i := range products {
		m.nextID++
		products[i] = mockProduct(rng, m.nextID, vendorID, m.now.Add(-time.Duration(i)*7*time.Hour))
	}
	m.vendors[vendorID] = products
	return products
}

func mockProduct(rng *rand.Rand, id int64, vendorID string, created time.Time) catalog.Product {
	adj := mockAdjectives[rng.IntN(len(mockAdjectives))]
	noun := mockNouns[rng.IntN(len(mockNouns))]

	p := catalog.Product{
		ID:        id,
		VendorID:  vendorID,
		Name:      adj + " " + noun,
		SKU:       fmt.Sprintf("%s-%s-%03d", strings.ToUpper(adj[:3]), strings.ToUpper(strings.ReplaceAll(noun, " ", "")[:3]), id),
		Category:  mockCategories[rng.IntN(len(mockCategories))],
		Price:     decimal.New(int64(499+rng.IntN(49500)), -2),
		CreatedAt: created,
	}

	if rng.IntN(10) < 3 {
		markup := decimal.New(int64(110+rng.IntN(50)), -2)
		p.ComparePrice = decimal.NewNullDecimal(p.Price.Mul(markup).Round(2))
	}

	switch r := rng.IntN(100); {
	case r < 15:
		p.Stock = 0
	case r < 35:
		p.Stock = 1 + rng.IntN(10)
	default:
		p.Stock = 11 + rng.IntN(190)
	}
	if rng.IntN(5) == 0 {
		t := 5 + rng.IntN(20)
		p.LowStockThreshold = &t
	}

	switch r := rng.IntN(100); {
	case r < 55:
		p.Status = catalog.StatusPublished
	case r < 75:
		p.Status = catalog.StatusPending
	case r < 92:
		p.Status = catalog.StatusDraft
	default:
		p.Status = catalog.StatusRejected
	}
	return p
}
