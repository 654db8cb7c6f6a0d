package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/storage"
)

// publishKey is where fresh snapshots land in the object store so other
// replicas can seed their disk caches from it.
const publishKey = "schema/warehouse_schema.json"

// Cache serves schema snapshots with a bounded staleness. It reloads from the
// warehouse when the cached snapshot ages out, falls back to a JSON file on
// disk when the warehouse is unreachable, and finally to the built-in
// snapshot. Snapshot never returns an error.
type Cache struct {
	source  Source
	logger  *slog.Logger
	path    string
	ttl     time.Duration
	publish storage.ObjectStore

	mu       sync.Mutex
	snapshot Snapshot
	loaded   bool
}

// CacheOptions configures a Cache.
type CacheOptions struct {
	Source Source
	Logger *slog.Logger
	Path   string
	TTL    time.Duration

	// Publish, when set, receives every fresh warehouse snapshot as a JSON
	// object alongside the disk cache.
	Publish storage.ObjectStore
}

// NewCache builds a Cache. Source may be nil when no warehouse is configured.
func NewCache(opts CacheOptions) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		source:  opts.Source,
		logger:  logger,
		path:    opts.Path,
		ttl:     ttl,
		publish: opts.Publish,
	}
}

// Snapshot returns the current schema snapshot, refreshing it when stale.
func (c *Cache) Snapshot(ctx context.Context) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded && time.Since(c.snapshot.LoadedAt) < c.ttl {
		return c.snapshot
	}
	c.snapshot = c.load(ctx)
	c.loaded = true
	return c.snapshot
}

// Refresh forces a reload from the warehouse, bypassing the staleness check.
// The returned snapshot reflects whatever source the reload ended up using.
func (c *Cache) Refresh(ctx context.Context) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = c.load(ctx)
	c.loaded = true
	return c.snapshot
}

func (c *Cache) load(ctx context.Context) Snapshot {
	if c.source != nil {
		snap, err := c.loadLive(ctx)
		if err == nil {
			observability.ObserveSchemaLoad("warehouse")
			c.persist(ctx, snap)
			return snap
		}
		c.logger.WarnContext(ctx, "schema reload from warehouse failed", "error", err)
	}
	if snap, err := c.loadDisk(); err == nil {
		observability.ObserveSchemaLoad("disk")
		c.logger.InfoContext(ctx, "schema loaded from disk cache", "path", c.path, "tables", len(snap.Tables))
		return snap
	}
	observability.ObserveSchemaLoad("fallback")
	c.logger.WarnContext(ctx, "schema unavailable, using built-in fallback")
	return FallbackSnapshot()
}

func (c *Cache) loadLive(ctx context.Context) (Snapshot, error) {
	tables, err := c.source.ListTables(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list tables: %w", err)
	}
	if len(tables) == 0 {
		return Snapshot{}, fmt.Errorf("warehouse reported no tables")
	}
	snap := Snapshot{
		LoadedAt: time.Now().UTC(),
		Source:   "warehouse",
		Tables:   make(map[string][]Column, len(tables)),
	}
	for _, table := range tables {
		cols, err := c.source.DescribeTable(ctx, table)
		if err != nil {
			return Snapshot{}, fmt.Errorf("describe table %s: %w", table, err)
		}
		snap.Tables[strings.ToLower(table)] = cols
	}
	return snap, nil
}

func (c *Cache) loadDisk() (Snapshot, error) {
	if c.path == "" {
		return Snapshot{}, fmt.Errorf("no disk cache path configured")
	}
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read schema cache: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode schema cache: %w", err)
	}
	if len(snap.Tables) == 0 {
		return Snapshot{}, fmt.Errorf("schema cache holds no tables")
	}
	snap.Source = "disk"
	return snap, nil
}

func (c *Cache) persist(ctx context.Context, snap Snapshot) {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		c.logger.Warn("encode schema cache failed", "error", err)
		return
	}
	if c.path != "" {
		if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
			c.logger.Warn("create schema cache directory failed", "path", c.path, "error", err)
		} else if err := os.WriteFile(c.path, raw, 0o644); err != nil {
			c.logger.Warn("write schema cache failed", "path", c.path, "error", err)
		}
	}
	if c.publish != nil {
		opts := storage.PutOptions{ContentType: "application/json"}
		if _, err := c.publish.Put(ctx, publishKey, bytes.NewReader(raw), int64(len(raw)), opts); err != nil {
			c.logger.WarnContext(ctx, "publish schema snapshot failed", "key", publishKey, "error", err)
		}
	}
}
