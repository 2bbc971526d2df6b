package schema

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sonnix-labs/pgease/internal/database"
	"github.com/sonnix-labs/pgease/internal/logger"
)

// DialFunc opens a fresh session for the cache. The cache owns every
// session it opens and closes it before Refresh returns.
type DialFunc func(ctx context.Context) (database.Session, error)

// snapshot is one immutable generation of reflected metadata. It is never
// mutated after install; Refresh replaces the whole thing.
type snapshot struct {
	names  []string // configured order
	tables map[string]*TableMeta
}

// Cache holds lazily refreshed metadata for a configured set of tables.
//
// Refresh is serialized by a mutex and installs a complete new snapshot or
// nothing (last refresh wins, no merging of partial results). Reads operate
// lock-free on whatever snapshot is currently installed.
type Cache struct {
	schemaName string
	tables     []string
	dial       DialFunc
	introspect func(database.Session) Introspector
	log        *logger.Logger

	mu   sync.Mutex // serializes Refresh
	snap atomic.Pointer[snapshot]
}

// Option customizes a Cache.
type Option func(*Cache)

// WithIntrospector overrides how the cache builds an Introspector from a
// session. Used by tests and alternative reflection backends.
func WithIntrospector(fn func(database.Session) Introspector) Option {
	return func(c *Cache) { c.introspect = fn }
}

// WithLogger overrides the cache's logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// NewCache creates a cache for the given schema and table set. An empty
// schema name resolves against the default public schema. The cache starts
// empty; nothing is reflected until the first Refresh.
func NewCache(schemaName string, tables []string, dial DialFunc, opts ...Option) *Cache {
	if schemaName == "" {
		schemaName = "public"
	}
	c := &Cache{
		schemaName: schemaName,
		tables:     tables,
		dial:       dial,
		introspect: func(s database.Session) Introspector { return NewPgIntrospector(s) },
		log:        logger.Global(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh reflects every configured table and atomically installs the new
// snapshot. Only one refresh runs at a time; concurrent callers serialize.
//
// Refresh is best-effort: on any failure the previous snapshot is retained
// unchanged and the error is logged, not returned. Callers needing strict
// freshness must track it separately.
func (c *Cache) Refresh(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, err := c.dial(ctx)
	if err != nil {
		c.log.ErrorErr("error refreshing metadata cache", err)
		return
	}
	defer func() {
		if err := sess.Close(ctx); err != nil {
			c.log.ErrorErr("error closing metadata cache session", err)
		}
	}()

	ins := c.introspect(sess)
	next := &snapshot{tables: make(map[string]*TableMeta, len(c.tables))}
	for _, table := range c.tables {
		meta, err := ins.InspectTable(ctx, c.schemaName, table)
		if err != nil {
			c.log.ErrorErr("error refreshing metadata cache", err)
			return
		}
		next.names = append(next.names, table)
		next.tables[table] = meta
	}

	c.snap.Store(next)
	c.log.Info("metadata cache refreshed")
}

// Populated reports whether a refresh has ever succeeded.
func (c *Cache) Populated() bool {
	return c.snap.Load() != nil
}

// Tables returns the cached table names in configured order, or nil while
// the cache is empty.
func (c *Cache) Tables() []string {
	snap := c.snap.Load()
	if snap == nil {
		return nil
	}
	return snap.names
}

// Lookup returns the cached metadata for one table.
func (c *Cache) Lookup(table string) (*TableMeta, bool) {
	snap := c.snap.Load()
	if snap == nil {
		return nil, false
	}
	meta, ok := snap.tables[table]
	return meta, ok
}

// DDL returns the rendered CREATE TABLE statement for a cached table.
// ok is false while the cache is empty or when the table is not cached.
func (c *Cache) DDL(table string) (string, bool) {
	meta, ok := c.Lookup(table)
	if !ok {
		return "", false
	}
	return meta.DDL(), true
}

// Display logs the CREATE TABLE statement for every cached table. While the
// cache is empty it logs a notice instead of failing.
func (c *Cache) Display() {
	snap := c.snap.Load()
	if snap == nil {
		c.log.Info("metadata cache is empty, refresh it first")
		return
	}
	for _, name := range snap.names {
		c.log.Info(snap.tables[name].DDL())
	}
}
