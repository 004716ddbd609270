package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/social-comb/app/database"
)

// FilterCache keeps the per-feed item filters declared in the seed file, keyed by feed URL.
type FilterCache struct {
	cache map[string][]Filter
	mu    sync.RWMutex
}

func NewFilterCache() *FilterCache {
	return &FilterCache{cache: make(map[string][]Filter)}
}

func (fc *FilterCache) Set(feedURL string, filters []Filter) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if len(filters) == 0 {
		delete(fc.cache, feedURL)
		return
	}
	fc.cache[feedURL] = filters
}

func (fc *FilterCache) Get(feedURL string) []Filter {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.cache[feedURL]
}

func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, f := range seed.Feeds {
		if err := validateSeedFeed(f); err != nil {
			return nil, fmt.Errorf("invalid feed #%d in %s: %w", i+1, path, err)
		}
	}

	return &seed, nil
}

// ApplySeed upserts every seed feed by URL and registers its filters. A missing
// path is not an error.
func ApplySeed(ctx context.Context, path string, feeds database.FeedRepository, filters *FilterCache) (int, error) {
	if path == "" {
		return 0, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Warn("Feeds file not found, skipping seed", "path", path)
		return 0, nil
	}

	seed, err := LoadSeed(path)
	if err != nil {
		return 0, err
	}

	for _, sf := range seed.Feeds {
		active := true
		if sf.Active != nil {
			active = *sf.Active
		}

		_, err := feeds.UpsertFeed(ctx, database.Feed{
			URL:      sf.URL,
			Title:    sf.Title,
			Category: sf.Category,
			IsActive: active,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to seed feed %s: %w", sf.URL, err)
		}

		if filters != nil {
			filters.Set(sf.URL, sf.Filters)
		}

		slog.Debug("Feed seeded", "url", sf.URL, "active", active, "filters", len(sf.Filters))
	}

	return len(seed.Feeds), nil
}

func validateSeedFeed(f SeedFeed) error {
	if f.URL == "" {
		return fmt.Errorf("feed URL is required")
	}

	u, err := url.Parse(f.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("feed URL must be an absolute http(s) URL: %s", f.URL)
	}

	for _, filter := range f.Filters {
		switch filter.Field {
		case "title", "content", "description", "authors", "link", "categories":
		default:
			return fmt.Errorf("unsupported filter field: %s", filter.Field)
		}
	}

	return nil
}
