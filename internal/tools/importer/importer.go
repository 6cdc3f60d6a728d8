// Package catalogimporter loads a JSON product catalog into the pos
// database. Products are upserted; inventory records are seeded at zero
// stock for products that have none, never overwriting existing counts.
package catalogimporter

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tillworks/till/internal/services/pos/storage"
	possqlite "github.com/tillworks/till/internal/services/pos/storage/sqlite"
)

// Config holds configuration for the catalog importer.
type Config struct {
	File   string
	DBPath string
	DryRun bool
}

// ParseConfig parses CLI flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{
		DBPath: filepath.Join("data", "pos.db"),
	}

	fs.StringVar(&cfg.File, "file", "", "JSON catalog file to import")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "pos database path")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "validate without writing to the database")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.File) == "" {
		return Config{}, errors.New("file is required")
	}
	return cfg, nil
}

// catalogEntry is one product in the catalog file.
type catalogEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	Category     string `json:"category"`
	Barcode      string `json:"barcode"`
	MinThreshold int64  `json:"min_threshold"`
	Location     string `json:"location"`
}

// Stores is the write surface the importer needs.
type Stores interface {
	storage.CatalogStore
	storage.InventoryStore
}

// Run executes the importer using the provided Config.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = io.Discard
	}

	entries, err := readCatalog(cfg.File)
	if err != nil {
		return err
	}
	if err := validateCatalog(entries); err != nil {
		return err
	}

	if cfg.DryRun {
		_, err = fmt.Fprintf(out, "validated %d product(s)\n", len(entries))
		return err
	}

	store, err := possqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open pos store: %w", err)
	}
	defer store.Close()

	imported, seeded, err := Import(ctx, store, entries)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "imported %d product(s), seeded %d inventory record(s) into %s\n",
		imported, seeded, cfg.DBPath)
	return err
}

// Import upserts catalog entries and seeds missing inventory records. It
// returns the number of products written and records seeded.
func Import(ctx context.Context, store Stores, entries []catalogEntry) (int, int, error) {
	existing, err := store.ListInventory(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list inventory: %w", err)
	}
	tracked := make(map[string]bool, len(existing))
	for _, record := range existing {
		tracked[record.ProductID] = true
	}

	seeded := 0
	for _, entry := range entries {
		product := storage.Product{
			ID:       entry.ID,
			Name:     entry.Name,
			Price:    entry.Price,
			Category: entry.Category,
			Barcode:  entry.Barcode,
		}
		if err := store.UpsertProduct(ctx, product); err != nil {
			return 0, 0, fmt.Errorf("upsert product %s: %w", entry.ID, err)
		}
		if tracked[entry.ID] {
			continue
		}
		record := storage.InventoryRecord{
			ProductID:    entry.ID,
			Stock:        0,
			MinThreshold: entry.MinThreshold,
			Location:     entry.Location,
		}
		if err := store.UpsertInventoryRecord(ctx, record); err != nil {
			return 0, 0, fmt.Errorf("seed inventory for %s: %w", entry.ID, err)
		}
		seeded++
	}
	return len(entries), seeded, nil
}

func readCatalog(path string) ([]catalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var entries []catalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return entries, nil
}

func validateCatalog(entries []catalogEntry) error {
	if len(entries) == 0 {
		return errors.New("catalog has no products")
	}
	seen := make(map[string]bool, len(entries))
	for i, entry := range entries {
		if strings.TrimSpace(entry.ID) == "" {
			return fmt.Errorf("product %d: id is required", i)
		}
		if strings.TrimSpace(entry.Name) == "" {
			return fmt.Errorf("product %s: name is required", entry.ID)
		}
		if entry.Price < 0 {
			return fmt.Errorf("product %s: price must not be negative", entry.ID)
		}
		if entry.MinThreshold < 0 {
			return fmt.Errorf("product %s: min_threshold must not be negative", entry.ID)
		}
		if seen[entry.ID] {
			return fmt.Errorf("product %s: duplicate id", entry.ID)
		}
		seen[entry.ID] = true
	}
	return nil
}
