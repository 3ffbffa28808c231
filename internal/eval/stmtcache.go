package eval

import (
	"container/list"
	"context"
	"database/sql"
	"sync"
)

// defaultStmtCacheCapacity matches the implementation guideline in the
// concurrency & resource model section: a bounded, process-local cache of
// prepared statements per connection.
const defaultStmtCacheCapacity = 512

// stmtCache is an LRU cache of *sql.Stmt, prepared against the owning
// *sql.DB so they can be bound into any transaction via tx.StmtContext.
type stmtCache struct {
	mu       sync.Mutex
	db       *sql.DB
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

type stmtCacheEntry struct {
	key  string
	stmt *sql.Stmt
}

func newStmtCache(db *sql.DB, capacity int) *stmtCache {
	if capacity <= 0 {
		capacity = defaultStmtCacheCapacity
	}
	return &stmtCache{
		db:       db,
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

// get returns a prepared *sql.Stmt for query, preparing and caching it on
// first use and evicting the least-recently-used entry once the cache is
// at capacity. The returned statement is prepared against the cache's
// *sql.DB; bind it into a transaction with tx.StmtContext before use.
func (c *stmtCache) get(ctx context.Context, query string) (*sql.Stmt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[query]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*stmtCacheEntry).stmt, nil
	}

	stmt, err := c.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	el := c.ll.PushFront(&stmtCacheEntry{key: query, stmt: stmt})
	c.items[query] = el

	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			entry := oldest.Value.(*stmtCacheEntry)
			delete(c.items, entry.key)
			_ = entry.stmt.Close()
		}
	}
	return stmt, nil
}

// closeAll closes every cached statement. Safe to call once, typically from
// Eval.Close.
func (c *stmtCache) closeAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, el := range c.items {
		entry := el.Value.(*stmtCacheEntry)
		if err := entry.stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.items = make(map[string]*list.Element)
	c.ll.Init()
	return firstErr
}
