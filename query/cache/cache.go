// Package cache provides an LRU cache of prepared statements.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"sync"
)

// Preparer prepares statements on a connection pool.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Stats represents cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	Size      int
	MaxSize   int
	Evictions int64
	HitRate   float64
}

// StatementCache keeps the most recently used prepared statements open.
// Evicted statements are closed.
type StatementCache struct {
	mu      sync.Mutex
	db      Preparer
	data    map[string]*cacheNode
	maxSize int
	head    *cacheNode
	tail    *cacheNode
	stats   Stats
}

// cacheNode represents a node in the doubly-linked list for LRU
type cacheNode struct {
	key  string
	stmt *sql.Stmt
	prev *cacheNode
	next *cacheNode
}

// NewStatementCache creates a cache holding at most maxSize statements
// prepared on db.
func NewStatementCache(db Preparer, maxSize int) *StatementCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &StatementCache{
		db:      db,
		data:    make(map[string]*cacheNode),
		maxSize: maxSize,
		stats:   Stats{MaxSize: maxSize},
	}
}

// Prepare returns a cached statement for query, preparing it on a miss.
// The returned statement must not be closed by the caller.
func (c *StatementCache) Prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	key := statementKey(query)

	c.mu.Lock()
	if node, ok := c.data[key]; ok {
		c.moveToFront(node)
		c.stats.Hits++
		c.updateHitRate()
		c.mu.Unlock()
		return node.stmt, nil
	}
	c.stats.Misses++
	c.updateHitRate()
	c.mu.Unlock()

	stmt, err := c.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have prepared the same query meanwhile.
	if node, ok := c.data[key]; ok {
		stmt.Close()
		c.moveToFront(node)
		return node.stmt, nil
	}

	if len(c.data) >= c.maxSize {
		c.evictLRU()
	}

	node := &cacheNode{key: key, stmt: stmt}
	c.addToFront(node)
	c.data[key] = node
	c.stats.Size = len(c.data)
	return stmt, nil
}

// Lookup returns the cached statement for query without preparing it on a
// miss. Only hits are counted.
func (c *StatementCache) Lookup(query string) (*sql.Stmt, bool) {
	key := statementKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()
	node, ok := c.data[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(node)
	c.stats.Hits++
	c.updateHitRate()
	return node.stmt, true
}

// Close closes every cached statement and empties the cache.
func (c *StatementCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, node := range c.data {
		if err := node.stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.data = make(map[string]*cacheNode)
	c.head = nil
	c.tail = nil
	c.stats.Size = 0
	return firstErr
}

// GetStats returns cache statistics
func (c *StatementCache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.data)
	return stats
}

// addToFront adds a node to the front of the list
func (c *StatementCache) addToFront(node *cacheNode) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

// moveToFront moves a node to the front of the list
func (c *StatementCache) moveToFront(node *cacheNode) {
	if node == c.head {
		return
	}
	c.unlink(node)
	c.addToFront(node)
}

// unlink removes a node from the list without touching the map
func (c *StatementCache) unlink(node *cacheNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}

	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
}

// evictLRU closes and drops the least recently used statement
func (c *StatementCache) evictLRU() {
	node := c.tail
	if node == nil {
		return
	}
	c.unlink(node)
	delete(c.data, node.key)
	node.stmt.Close()
	c.stats.Evictions++
}

// updateHitRate updates the hit rate statistic
func (c *StatementCache) updateHitRate() {
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		c.stats.HitRate = float64(c.stats.Hits) / float64(total) * 100
	}
}

// statementKey hashes a query so that long statements make short keys.
func statementKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}
