// Package runner drives the per-run processing pipeline.
//
// A run lists the full catalog once, partitions it into contiguous batches,
// and drives each product through fetch → ledger update → persist → classify
// → dispatch. Items are independent: any failure is caught at the item
// boundary, logged with the product URL and the failing stage, and recorded
// in the run summary instead of aborting sibling items. Only a catalog
// listing failure propagates to the caller.
//
// The run carries a soft wall-clock deadline, checked at batch boundaries
// only, so an in-flight item always completes (or fails) atomically rather
// than being interrupted with a persisted record out of sync with a
// not-yet-sent notification.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alexkarev/pricewatch/internal/ledger"
	"github.com/alexkarev/pricewatch/internal/logger"
	"github.com/alexkarev/pricewatch/internal/models"
	"github.com/alexkarev/pricewatch/internal/notify"
)

// Store is the catalog persistence consumed by the runner. UpsertByURL must
// be atomic per record and return the stored record with its watcher set
// resolved, so dispatch never works from a stale pre-fetch copy.
type Store interface {
	ListAll(ctx context.Context) ([]models.Product, error)
	UpsertByURL(ctx context.Context, url string, product *models.Product) (*models.Product, error)
}

// Fetcher retrieves the current view of a product page. A (nil, nil) return
// means "nothing to update": the product is skipped without persistence or
// notification.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*models.ScrapedProduct, error)
}

// Renderer produces notification content for one (product, event) pair.
// Content is rendered once per product and sent to the full watcher list.
type Renderer interface {
	Render(info models.ProductInfo, event models.NotifyEvent) (subject, body string)
}

// Sender delivers rendered content to a list of watcher email addresses in a
// single call.
type Sender interface {
	Send(ctx context.Context, subject, body string, to []string) error
}

// Config holds the tunables of one run.
type Config struct {
	BatchSize     int           // products per batch (default 5)
	Deadline      time.Duration // soft wall-clock budget for the whole run
	DropThreshold float64       // minimum discount percentage for a price-drop event
}

// Runner orchestrates processing runs over the catalog.
type Runner struct {
	store    Store
	fetcher  Fetcher
	renderer Renderer
	sender   Sender
	cfg      Config
}

// New creates a Runner. Zero or negative config values fall back to defaults.
func New(store Store, fetcher Fetcher, renderer Renderer, sender Sender, cfg Config) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = 10 * time.Second
	}
	return &Runner{
		store:    store,
		fetcher:  fetcher,
		renderer: renderer,
		sender:   sender,
		cfg:      cfg,
	}
}

// Run executes one full processing run and returns its summary. The only
// error it returns is a catalog listing failure; per-product failures are
// aggregated into the summary. An empty catalog is a successful run with
// Total == 0.
func (r *Runner) Run(ctx context.Context) (models.RunSummary, error) {
	start := time.Now()
	summary := models.RunSummary{
		RunID:     uuid.New().String(),
		StartedAt: start,
	}

	products, err := r.store.ListAll(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to get all products: %w", err)
	}
	summary.Total = len(products)

	if len(products) == 0 {
		logger.Info("Run %s: no products fetched", summary.RunID)
		summary.Elapsed = time.Since(start)
		return summary, nil
	}

	logger.Info("Run %s: processing %d products in batches of %d (deadline %v)",
		summary.RunID, len(products), r.cfg.BatchSize, r.cfg.Deadline)

	for _, batch := range Partition(products, r.cfg.BatchSize) {
		if ctx.Err() != nil || time.Since(start) >= r.cfg.Deadline {
			summary.Partial = true
			logger.Warn("Run %s: deadline exhausted after %d batches, returning partial summary",
				summary.RunID, summary.Batches)
			break
		}

		for _, result := range r.processBatch(ctx, batch) {
			switch {
			case result.Skipped:
				summary.Skipped++
			case result.Err != nil:
				summary.Failed++
				logger.Error("Run %s: product %s failed at stage %s: %v",
					summary.RunID, result.URL, result.Stage, result.Err)
			default:
				summary.Processed++
				if result.Event != models.EventNone {
					logger.Info("Run %s: product %s notified watchers (%s)",
						summary.RunID, result.URL, result.Event)
				}
			}
		}
		summary.Batches++
	}

	summary.Elapsed = time.Since(start)
	logger.Info("Run %s completed in %v: %d processed, %d failed, %d skipped",
		summary.RunID, summary.Elapsed, summary.Processed, summary.Failed, summary.Skipped)
	return summary, nil
}

// processBatch runs one batch with concurrency bounded by the batch size, so
// load on the fetch source never exceeds it. Results are positional; items
// within a batch have no ordering guarantees among themselves.
func (r *Runner) processBatch(ctx context.Context, batch []models.Product) []models.ProcessResult {
	results := make([]models.ProcessResult, len(batch))

	var g errgroup.Group
	g.SetLimit(r.cfg.BatchSize)
	for i := range batch {
		g.Go(func() error {
			results[i] = r.processItem(ctx, batch[i])
			return nil
		})
	}
	_ = g.Wait() // workers report through results, never through errors

	return results
}

// processItem drives one product through the pipeline. Every failure is
// converted into a stage-tagged result at this boundary.
func (r *Runner) processItem(ctx context.Context, product models.Product) models.ProcessResult {
	snapshot, err := r.fetcher.Fetch(ctx, product.URL)
	if err != nil {
		return models.Failed(product.URL, models.StageFetch, err)
	}
	if snapshot == nil {
		logger.Debug("Product %s: nothing to update, skipping", product.URL)
		return models.Skip(product.URL)
	}

	now := time.Now()
	history, stats := ledger.Update(product.PriceHistory, snapshot.CurrentPrice, now)

	prev := notify.Snapshot{
		Price:        product.CurrentPrice,
		DiscountRate: product.DiscountRate,
		InStock:      product.InStock,
	}
	next := notify.Snapshot{
		Price:        snapshot.CurrentPrice,
		DiscountRate: snapshot.DiscountRate,
		InStock:      snapshot.InStock,
	}
	priorLowest := product.LowestPrice
	hasHistory := len(product.PriceHistory) > 0

	merged := merge(product, snapshot, history, stats, now)
	stored, err := r.store.UpsertByURL(ctx, product.URL, &merged)
	if err != nil {
		return models.Failed(product.URL, models.StagePersist, err)
	}

	event := notify.Classify(prev, next, priorLowest, hasHistory, r.cfg.DropThreshold)
	if event != models.EventNone && len(stored.Watchers) > 0 {
		subject, body := r.renderer.Render(models.ProductInfo{Title: stored.Title, URL: stored.URL}, event)
		if err := r.sender.Send(ctx, subject, body, stored.WatcherEmails()); err != nil {
			// The persisted update stands: data freshness is not rolled back
			// by a downstream notification problem.
			return models.Failed(product.URL, models.StageDispatch, err)
		}
	}

	return models.Updated(stored, event)
}

// merge combines the stored product, the fresh snapshot, and the updated
// ledger into the record to persist. Watchers are left untouched; the store
// resolves them on upsert.
func merge(product models.Product, snapshot *models.ScrapedProduct, history []models.PricePoint, stats ledger.Stats, now time.Time) models.Product {
	updated := product
	if snapshot.Title != "" {
		updated.Title = snapshot.Title
	}
	updated.Currency = snapshot.Currency
	updated.CurrentPrice = snapshot.CurrentPrice
	updated.OriginalPrice = snapshot.OriginalPrice
	updated.DiscountRate = snapshot.DiscountRate
	updated.InStock = snapshot.InStock
	if snapshot.Image != "" {
		updated.Image = snapshot.Image
	}
	if snapshot.Category != "" {
		updated.Category = snapshot.Category
	}
	updated.PriceHistory = history
	updated.LowestPrice = stats.Lowest
	updated.HighestPrice = stats.Highest
	updated.AveragePrice = stats.Average
	updated.UpdatedAt = now
	return updated
}

// Partition splits the catalog snapshot into contiguous batches of at most
// size items, preserving order. The last batch may be shorter.
func Partition(products []models.Product, size int) [][]models.Product {
	if size <= 0 || len(products) == 0 {
		return nil
	}
	batches := make([][]models.Product, 0, (len(products)+size-1)/size)
	for start := 0; start < len(products); start += size {
		end := start + size
		if end > len(products) {
			end = len(products)
		}
		batches = append(batches, products[start:end])
	}
	return batches
}
