package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexkarev/pricewatch/internal/models"
)

// Postgres persists the catalog in three tables: products (keyed by URL),
// price_history (append-only), and watchers. Upserts are atomic per record
// via a transaction, so concurrent runs touching the same product are safe
// without cross-item coordination.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing connection pool. The pool is owned by the
// caller and released at run end regardless of outcome.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
    url            TEXT PRIMARY KEY,
    title          TEXT NOT NULL,
    currency       TEXT NOT NULL DEFAULT '',
    current_price  DOUBLE PRECISION NOT NULL DEFAULT 0,
    original_price DOUBLE PRECISION NOT NULL DEFAULT 0,
    discount_rate  DOUBLE PRECISION NOT NULL DEFAULT 0,
    in_stock       BOOLEAN NOT NULL DEFAULT TRUE,
    image          TEXT NOT NULL DEFAULT '',
    category       TEXT NOT NULL DEFAULT '',
    lowest_price   DOUBLE PRECISION NOT NULL DEFAULT 0,
    highest_price  DOUBLE PRECISION NOT NULL DEFAULT 0,
    average_price  DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS price_history (
    id          BIGSERIAL PRIMARY KEY,
    product_url TEXT NOT NULL REFERENCES products(url) ON DELETE CASCADE,
    price       DOUBLE PRECISION NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_price_history_product
    ON price_history (product_url, recorded_at);

CREATE TABLE IF NOT EXISTS watchers (
    product_url TEXT NOT NULL REFERENCES products(url) ON DELETE CASCADE,
    email       TEXT NOT NULL,
    PRIMARY KEY (product_url, email)
);
`

// EnsureSchema creates the catalog tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// ListAll returns the full catalog with history and watchers resolved.
func (p *Postgres) ListAll(ctx context.Context) ([]models.Product, error) {
	rows, err := p.pool.Query(ctx, `
SELECT url, title, currency, current_price, original_price, discount_rate,
       in_stock, image, category, lowest_price, highest_price, average_price,
       created_at, updated_at
FROM products
ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	index := make(map[string]int)
	for rows.Next() {
		var prod models.Product
		if err := rows.Scan(
			&prod.URL, &prod.Title, &prod.Currency, &prod.CurrentPrice,
			&prod.OriginalPrice, &prod.DiscountRate, &prod.InStock, &prod.Image,
			&prod.Category, &prod.LowestPrice, &prod.HighestPrice,
			&prod.AveragePrice, &prod.CreatedAt, &prod.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		index[prod.URL] = len(products)
		products = append(products, prod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	if len(products) == 0 {
		return nil, nil
	}

	if err := p.attachHistory(ctx, products, index); err != nil {
		return nil, err
	}
	if err := p.attachWatchers(ctx, products, index); err != nil {
		return nil, err
	}
	return products, nil
}

func (p *Postgres) attachHistory(ctx context.Context, products []models.Product, index map[string]int) error {
	rows, err := p.pool.Query(ctx, `
SELECT product_url, price, recorded_at
FROM price_history
ORDER BY product_url, recorded_at, id`)
	if err != nil {
		return fmt.Errorf("failed to list price history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		var point models.PricePoint
		if err := rows.Scan(&url, &point.Price, &point.RecordedAt); err != nil {
			return fmt.Errorf("failed to scan price point: %w", err)
		}
		if i, ok := index[url]; ok {
			products[i].PriceHistory = append(products[i].PriceHistory, point)
		}
	}
	return rows.Err()
}

func (p *Postgres) attachWatchers(ctx context.Context, products []models.Product, index map[string]int) error {
	rows, err := p.pool.Query(ctx, `
SELECT product_url, email
FROM watchers
ORDER BY product_url, email`)
	if err != nil {
		return fmt.Errorf("failed to list watchers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url, email string
		if err := rows.Scan(&url, &email); err != nil {
			return fmt.Errorf("failed to scan watcher: %w", err)
		}
		if i, ok := index[url]; ok {
			products[i].Watchers = append(products[i].Watchers, models.Watcher{Email: email})
		}
	}
	return rows.Err()
}

// UpsertByURL writes the merged record and the newest price point in one
// transaction, then returns the record with the watcher set resolved from
// the watchers table.
func (p *Postgres) UpsertByURL(ctx context.Context, url string, product *models.Product) (*models.Product, error) {
	if err := product.Validate(); err != nil {
		return nil, fmt.Errorf("invalid product: %w", err)
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
INSERT INTO products (url, title, currency, current_price, original_price,
                      discount_rate, in_stock, image, category,
                      lowest_price, highest_price, average_price, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (url) DO UPDATE SET
    title          = EXCLUDED.title,
    currency       = EXCLUDED.currency,
    current_price  = EXCLUDED.current_price,
    original_price = EXCLUDED.original_price,
    discount_rate  = EXCLUDED.discount_rate,
    in_stock       = EXCLUDED.in_stock,
    image          = EXCLUDED.image,
    category       = EXCLUDED.category,
    lowest_price   = EXCLUDED.lowest_price,
    highest_price  = EXCLUDED.highest_price,
    average_price  = EXCLUDED.average_price,
    updated_at     = EXCLUDED.updated_at`,
		url, product.Title, product.Currency, product.CurrentPrice,
		product.OriginalPrice, product.DiscountRate, product.InStock,
		product.Image, product.Category, product.LowestPrice,
		product.HighestPrice, product.AveragePrice, product.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert product: %w", err)
	}

	// History is append-only: only the point this run added is inserted.
	if n := len(product.PriceHistory); n > 0 {
		latest := product.PriceHistory[n-1]
		_, err = tx.Exec(ctx, `
INSERT INTO price_history (product_url, price, recorded_at)
VALUES ($1, $2, $3)`, url, latest.Price, latest.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to append price point: %w", err)
		}
	}

	watcherRows, err := tx.Query(ctx, `
SELECT email FROM watchers WHERE product_url = $1 ORDER BY email`, url)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watchers: %w", err)
	}
	var watchers []models.Watcher
	for watcherRows.Next() {
		var email string
		if err := watcherRows.Scan(&email); err != nil {
			watcherRows.Close()
			return nil, fmt.Errorf("failed to scan watcher: %w", err)
		}
		watchers = append(watchers, models.Watcher{Email: email})
	}
	watcherRows.Close()
	if err := watcherRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watchers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit upsert: %w", err)
	}

	stored := *product
	stored.URL = url
	stored.Watchers = watchers
	return &stored, nil
}

// AddWatcher subscribes an email to a product. Used by the subscribe flow.
func (p *Postgres) AddWatcher(ctx context.Context, url, email string) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO watchers (product_url, email)
VALUES ($1, $2)
ON CONFLICT DO NOTHING`, url, email)
	if err != nil {
		return fmt.Errorf("failed to add watcher: %w", err)
	}
	return nil
}
