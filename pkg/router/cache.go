package router

import (
	"sync"
	"sync/atomic"

	"github.com/vango-dev/vroute/pkg/pathexp"
)

// Cache holds compiled patterns and path generators. Entries are never
// evicted; the key space is bounded by the application's route table.
// Concurrent first use of a key may compile twice, and the first stored
// artifact wins.
type Cache struct {
	patterns sync.Map // cacheKey -> *Compiled
	paths    sync.Map // string -> *pathexp.PathFunc

	hits     atomic.Uint64
	misses   atomic.Uint64
	compiles atomic.Uint64
	size     atomic.Int64
}

type cacheKey struct {
	pattern string
	opts    Options
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Compiles uint64 `json:"compiles"`
	Size     int64  `json:"size"`
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// compiled returns the recognizer for pattern and opts, compiling on a miss.
func (c *Cache) compiled(pattern string, opts Options) (*Compiled, bool, error) {
	key := cacheKey{pattern: pattern, opts: opts}
	if v, ok := c.patterns.Load(key); ok {
		c.hits.Add(1)
		return v.(*Compiled), true, nil
	}
	c.misses.Add(1)

	re, err := pathexp.Compile(pattern, opts.compileOptions())
	if err != nil {
		return nil, false, err
	}
	c.compiles.Add(1)

	v, loaded := c.patterns.LoadOrStore(key, &Compiled{
		Pattern: pattern,
		Options: opts,
		re:      re,
	})
	if !loaded {
		c.size.Add(1)
	}
	return v.(*Compiled), false, nil
}

// pathFunc returns the generator for pattern, preparing it on a miss.
func (c *Cache) pathFunc(pattern string) (*pathexp.PathFunc, bool, error) {
	if v, ok := c.paths.Load(pattern); ok {
		c.hits.Add(1)
		return v.(*pathexp.PathFunc), true, nil
	}
	c.misses.Add(1)

	fn, err := pathexp.ToPath(pattern)
	if err != nil {
		return nil, false, err
	}
	c.compiles.Add(1)

	v, loaded := c.paths.LoadOrStore(pattern, fn)
	if !loaded {
		c.size.Add(1)
	}
	return v.(*pathexp.PathFunc), false, nil
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Compiles: c.compiles.Load(),
		Size:     c.size.Load(),
	}
}

// Len returns the number of cached artifacts.
func (c *Cache) Len() int {
	return int(c.size.Load())
}
