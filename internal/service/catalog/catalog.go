package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/funnerlife"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xslog"
)

const defaultSort = "category"

var _ Service = (*Manager)(nil)

type Config struct {
	AllowedCategories []string
	TTL               time.Duration
	CacheTTL          time.Duration
}

type Manager struct {
	store    storage.CatalogStore
	cache    storage.CatalogCache
	provider Provider
	allowed  map[string]struct{}
	ttl      time.Duration
	cacheTTL time.Duration
	now      func() time.Time

	syncMu sync.Mutex
}

type Option func(*Manager)

// WithCache puts a read-through cache in front of Resolve.
func WithCache(cache storage.CatalogCache) Option {
	return func(m *Manager) { m.cache = cache }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store storage.CatalogStore, provider Provider, cfg Config, opts ...Option) *Manager {
	allowed := make(map[string]struct{}, len(cfg.AllowedCategories))
	for _, c := range cfg.AllowedCategories {
		if c = strings.TrimSpace(c); c != "" {
			allowed[c] = struct{}{}
		}
	}

	m := &Manager{
		store:    store,
		provider: provider,
		allowed:  allowed,
		ttl:      cfg.TTL,
		cacheTTL: cfg.CacheTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Resolve(ctx context.Context, sku string) (storage.CatalogEntry, error) {
	logger := xslog.FromContext(ctx)

	if m.cache != nil {
		entry, err := m.cache.GetCatalogEntry(ctx, sku)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			logger.WarnContext(ctx, "catalog cache read failed", xslog.SKU(sku), xslog.Error(err))
		}
	}

	entry, err := m.store.GetCatalogEntry(ctx, sku)
	if err != nil {
		return storage.CatalogEntry{}, err
	}

	if m.cache != nil && m.cacheTTL > 0 {
		if err := m.cache.SetCatalogEntry(ctx, entry, m.cacheTTL); err != nil {
			logger.WarnContext(ctx, "catalog cache write failed", xslog.SKU(sku), xslog.Error(err))
		}
	}
	return entry, nil
}

func (m *Manager) Sync(ctx context.Context, force bool) (SyncResult, error) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	logger := xslog.FromContext(ctx)
	now := m.now()

	if !force {
		fresh, err := m.isFresh(ctx, now)
		if err != nil {
			return SyncResult{}, err
		}
		if fresh {
			return SyncResult{Skipped: true}, nil
		}
	}

	services, err := m.provider.ListServices(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("fetch provider catalog: %w", err)
	}

	entries := make([]storage.CatalogEntry, 0, len(services))
	for _, s := range services {
		if _, ok := m.allowed[s.Category]; !ok || s.ID == "" {
			continue
		}
		entries = append(entries, toEntry(s))
	}

	removed, err := m.store.ReplaceCatalog(ctx, entries, now)
	if err != nil {
		return SyncResult{}, fmt.Errorf("store catalog: %w", err)
	}

	if m.cache != nil {
		if err := m.cache.InvalidateCatalog(ctx); err != nil {
			logger.WarnContext(ctx, "catalog cache invalidation failed", xslog.Error(err))
		}
	}

	logger.InfoContext(ctx, "catalog synced",
		slog.Int("fetched", len(services)),
		slog.Int("kept", len(entries)),
		slog.Int64("removed", removed),
	)

	return SyncResult{
		Fetched:  len(services),
		Kept:     len(entries),
		Removed:  removed,
		SyncedAt: now,
	}, nil
}

func (m *Manager) isFresh(ctx context.Context, now time.Time) (bool, error) {
	last, err := m.store.LastCatalogSync(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read last catalog sync: %w", err)
	}
	return now.Sub(last) < m.ttl, nil
}

func (m *Manager) List(ctx context.Context, q Query) (Listing, error) {
	if _, err := m.Sync(ctx, false); err != nil {
		// a stale catalog is still worth serving
		xslog.FromContext(ctx).WarnContext(ctx, "catalog sync failed, serving stored entries", xslog.Error(err))
	}

	all, err := m.store.ListCatalog(ctx)
	if err != nil {
		return Listing{}, err
	}
	all = slices.DeleteFunc(all, func(e storage.CatalogEntry) bool {
		_, ok := m.allowed[e.Category]
		return !ok
	})

	entries := make([]storage.CatalogEntry, 0, len(all))
	search := strings.ToLower(q.Search)
	for _, e := range all {
		if q.Category != "" && !strings.EqualFold(e.Category, q.Category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Name), search) {
			continue
		}
		entries = append(entries, e)
	}

	sortEntries(entries, q.Sort)

	listing := Listing{Entries: entries}
	if q.Counts {
		listing.Counts = countByCategory(all)
	}
	return listing, nil
}

// sortEntries orders by one of name, price or category, prefixed with "-"
// for descending. Unknown keys keep the stored order.
func sortEntries(entries []storage.CatalogEntry, key string) {
	if key == "" {
		key = defaultSort
	}
	desc := strings.HasPrefix(key, "-")
	field := strings.TrimPrefix(key, "-")

	var compare func(a, b storage.CatalogEntry) int
	switch field {
	case "name":
		compare = func(a, b storage.CatalogEntry) int { return strings.Compare(a.Name, b.Name) }
	case "price":
		compare = func(a, b storage.CatalogEntry) int { return cmp.Compare(a.Price, b.Price) }
	case "category":
		compare = func(a, b storage.CatalogEntry) int { return strings.Compare(a.Category, b.Category) }
	default:
		return
	}

	slices.SortStableFunc(entries, func(a, b storage.CatalogEntry) int {
		if desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

func countByCategory(entries []storage.CatalogEntry) []CategoryCount {
	totals := make(map[string]int)
	for _, e := range entries {
		totals[e.Category]++
	}

	counts := make([]CategoryCount, 0, len(totals))
	for category, total := range totals {
		counts = append(counts, CategoryCount{Category: category, Total: total})
	}
	slices.SortFunc(counts, func(a, b CategoryCount) int {
		return strings.Compare(a.Category, b.Category)
	})
	return counts
}

func toEntry(s funnerlife.Service) storage.CatalogEntry {
	return storage.CatalogEntry{
		ServiceID:   string(s.ID),
		Name:        s.Name,
		Category:    s.Category,
		Price:       float64(s.Price),
		PriceGold:   s.PriceGold.Float(),
		PriceSilver: s.PriceSilver.Float(),
		PricePro:    s.PricePro.Float(),
		Status:      s.Status,
	}
}

// DisplayStatus maps the provider's Indonesian status labels to English.
// Other values pass through unchanged.
func DisplayStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "aktif":
		return "active"
	case "tidak aktif":
		return "inactive"
	default:
		return status
	}
}
