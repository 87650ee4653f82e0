package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/JonMunkholm/sellerdash/internal/catalog"
	"github.com/JonMunkholm/sellerdash/internal/importer"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schemaSQL string

const pgUniqueViolation = "23505"

// DBTX is the subset of pgx used here.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Postgres stores products in a PostgreSQL table.
type Postgres struct {
	db DBTX
}

// NewPostgres returns a store backed by db.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the products and import_presets tables if missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Numerics travel as text so they round-trip exactly through decimal.
const listProductsSQL = `
SELECT id, vendor_id, name, sku, category,
       price::text, compare_price::text,
       stock, low_stock_threshold, status, created_at
FROM products
WHERE vendor_id = $1
ORDER BY created_at DESC, id DESC`

// ListProducts returns every product for the vendor, newest first.
func (p *Postgres) ListProducts(ctx context.Context, vendorID string) ([]catalog.Product, error) {
	rows, err := p.db.Query(ctx, listProductsSQL, vendorID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		var (
			prod      catalog.Product
			price     string
			compare   *string
			threshold *int32
			status    string
		)
		if err := rows.Scan(
			&prod.ID, &prod.VendorID, &prod.Name, &prod.SKU, &prod.Category,
			&price, &compare,
			&prod.Stock, &threshold, &status, &prod.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}

		if prod.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("product %d price %q: %w", prod.ID, price, err)
		}
		if compare != nil {
			d, err := decimal.NewFromString(*compare)
			if err != nil {
				return nil, fmt.Errorf("product %d compare price %q: %w", prod.ID, *compare, err)
			}
			prod.ComparePrice = decimal.NewNullDecimal(d)
		}
		if threshold != nil {
			t := int(*threshold)
			prod.LowStockThreshold = &t
		}
		prod.Status = catalog.Status(status)

		products = append(products, prod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

const setStatusSQL = `UPDATE products SET status = $3 WHERE vendor_id = $1 AND id = ANY($2)`

// SetStatus updates the status of the given products.
func (p *Postgres) SetStatus(ctx context.Context, vendorID string, ids []int64, status catalog.Status) (int64, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("invalid status %q", status)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := p.db.Exec(ctx, setStatusSQL, vendorID, ids, string(status))
	if err != nil {
		return 0, fmt.Errorf("set status: %w", err)
	}
	return tag.RowsAffected(), nil
}

const insertProductSQL = `
INSERT INTO products (
    vendor_id, name, sku, category, price, compare_price, stock,
    description, short_description, brand, tags, weight, images
) VALUES (
    $1, $2, $3, $4, $5::numeric, $6::numeric, $7,
    $8, $9, $10, $11, $12::numeric, $13
)`

// WriteProduct inserts an imported product as a draft.
func (p *Postgres) WriteProduct(ctx context.Context, vendorID string, d importer.Draft) error {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	images := d.Images
	if images == nil {
		images = []string{}
	}

	_, err := p.db.Exec(ctx, insertProductSQL,
		vendorID, d.Name, d.SKU, d.Category,
		d.Price.String(), nullDecimalText(d.ComparePrice), d.Stock,
		d.Description, d.ShortDescription, d.Brand, tags, nullDecimalText(d.Weight), images,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateSKU, d.SKU)
		}
		return fmt.Errorf("insert product %s: %w", d.SKU, err)
	}
	return nil
}

func nullDecimalText(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}
