// Package store provides catalog persistence for tracked products.
//
// Two backends implement the runner's Store contract: Filestore, a
// mutex-guarded in-memory catalog with atomic JSON file persistence for
// single-node deployments and tests, and Postgres, backed by a pgx
// connection pool. Both key records by product URL and resolve the watcher
// set on upsert, so a record returned from UpsertByURL always carries the
// current subscriptions.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/alexkarev/pricewatch/internal/models"
)

// Filestore is a thread-safe in-memory catalog persisted to a JSON file.
// Writes go through a temp file and rename, so a crash mid-save never
// leaves a truncated catalog behind.
type Filestore struct {
	mu       sync.RWMutex
	products map[string]*models.Product

	filePath        string
	filePermissions os.FileMode
	dirPermissions  os.FileMode
}

// catalogFile is the on-disk layout of the persisted catalog.
type catalogFile struct {
	Version  string                     `json:"version"`
	SavedAt  time.Time                  `json:"saved_at"`
	Products map[string]*models.Product `json:"products"`
}

// NewFilestore creates a Filestore persisting to filePath. If filePath is
// empty, an OS-appropriate tmp location is used.
func NewFilestore(filePath string) *Filestore {
	if filePath == "" {
		filePath = filepath.Join(os.TempDir(), "pricewatch", "catalog.json")
	}
	return &Filestore{
		products:        make(map[string]*models.Product),
		filePath:        filePath,
		filePermissions: 0o600,
		dirPermissions:  0o700,
	}
}

// ListAll returns the full catalog, ordered by URL for determinism.
func (s *Filestore) ListAll(ctx context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, *p)
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].URL < products[j].URL
	})
	return products, nil
}

// Add inserts a new product into the catalog. Used by the subscribe flow,
// not by the processing core.
func (s *Filestore) Add(ctx context.Context, product *models.Product) error {
	if err := product.Validate(); err != nil {
		return fmt.Errorf("invalid product: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.URL]; exists {
		return fmt.Errorf("product already tracked: %s", product.URL)
	}
	stored := *product
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.products[product.URL] = &stored
	return s.save()
}

// UpsertByURL stores the merged record and returns it with the watcher set
// resolved from the catalog. Watchers on the incoming record are ignored;
// subscriptions are owned by flows outside the processing core.
func (s *Filestore) UpsertByURL(ctx context.Context, url string, product *models.Product) (*models.Product, error) {
	if err := product.Validate(); err != nil {
		return nil, fmt.Errorf("invalid product: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *product
	stored.URL = url
	if existing, exists := s.products[url]; exists {
		stored.Watchers = existing.Watchers
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.Watchers = nil
		stored.CreatedAt = time.Now()
	}
	s.products[url] = &stored

	if err := s.save(); err != nil {
		return nil, err
	}
	result := stored
	return &result, nil
}

// AddWatcher subscribes an email to a product. Used by the subscribe flow.
func (s *Filestore) AddWatcher(ctx context.Context, url string, watcher models.Watcher) error {
	if err := watcher.Validate(); err != nil {
		return fmt.Errorf("invalid watcher: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[url]
	if !exists {
		return fmt.Errorf("product not tracked: %s", url)
	}
	for _, w := range product.Watchers {
		if w.Email == watcher.Email {
			return nil // already subscribed
		}
	}
	product.Watchers = append(product.Watchers, watcher)
	return s.save()
}

// Load restores the catalog from disk. A missing file is a fresh start, not
// an error. Stale temp files from a previous crash are cleaned up.
func (s *Filestore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tempPath := s.filePath + ".tmp"
	if _, err := os.Stat(tempPath); err == nil {
		_ = os.Remove(tempPath)
	}

	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal catalog: %w", err)
	}

	s.products = file.Products
	if s.products == nil {
		s.products = make(map[string]*models.Product)
	}
	return nil
}

// Close persists the catalog one final time.
func (s *Filestore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes the catalog to disk atomically. Callers must hold the lock.
func (s *Filestore) save() error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, s.dirPermissions); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	data, err := json.MarshalIndent(catalogFile{
		Version:  "1.0",
		SavedAt:  time.Now(),
		Products: s.products,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	tempPath := s.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, s.filePermissions); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	if err := os.Rename(tempPath, s.filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename catalog file: %w", err)
	}
	return nil
}
