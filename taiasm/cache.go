package taiasm

import (
	"sync"

	"github.com/reusee/tairepl/taivm"
	"github.com/zeebo/blake3"
)

type cacheEntry struct {
	fn      *taivm.Function
	imp     *taivm.Import
	exports []string
}

// Cache keeps assembled functions keyed by the digest of their source text.
// Accumulated function text is reassembled on every run, so hits are the common case.
type Cache struct {
	mu      sync.Mutex
	entries map[[32]byte]*cacheEntry
	hits    int
	misses  int
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[[32]byte]*cacheEntry),
	}
}

func (c *Cache) key(text string) [32]byte {
	return blake3.Sum256([]byte(text))
}

func (c *Cache) get(key [32]byte) (*cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return entry, ok
}

func (c *Cache) put(key [32]byte, entry *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
}

// Parse assembles module text, reusing cached functions. A nil Cache assembles everything.
func (c *Cache) Parse(src string) (*taivm.Module, error) {
	forms, err := readForms(src)
	if err != nil {
		return nil, err
	}
	a := &assembler{
		src:    src,
		cache:  c,
		module: new(taivm.Module),
	}
	if err := a.fields(forms); err != nil {
		return nil, err
	}
	return a.module, nil
}

type CacheStats struct {
	Entries int
	Hits    int
	Misses  int
}

func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}

func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.hits = 0
	c.misses = 0
}
