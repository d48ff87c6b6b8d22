package labels

import (
	"container/list"
	"fmt"
	"io/fs"
	"sync"
	"time"
	"unsafe"
)

// Cache keeps built indexes in memory with LRU eviction.
//
// Entries are keyed by input path, build settings and parse options. A cached index is
// reused only while the file's size and modification time are unchanged,
// so a rewritten file is rebuilt on the next Init. Only valid indexes are
// cached.
//
// Memory accounting is approximate, based on label and node counts.
//
// Example:
//
//	cache := labels.NewCache(512 * 1024 * 1024) // 512MB
//	h := labels.Init("data/germany.ce", labels.WithCache(cache))
type Cache struct {
	maxMemory  int64 // Maximum memory in bytes, 0 for unlimited
	usedMemory int64
	entries    map[cacheKey]*cacheEntry
	lru        *list.List // most recent at front
	mu         sync.RWMutex
}

// cacheKey identifies one build of one file.
type cacheKey struct {
	path       string
	template   Template
	fanOut     int
	geographic bool
	parse      ParseOptions
}

type cacheEntry struct {
	key          cacheKey
	index        *Index
	size         int64
	modTime      time.Time
	memorySize   int64
	element      *list.Element
	lastAccessed time.Time
	accessCount  int
}

// NewCache creates a cache with the given memory limit in bytes.
// Set to 0 for an unlimited cache.
func NewCache(maxMemoryBytes int64) *Cache {
	return &Cache{
		maxMemory: maxMemoryBytes,
		entries:   make(map[cacheKey]*cacheEntry),
		lru:       list.New(),
	}
}

// Get returns the cached index for path, or calls loader and caches its
// result. info must describe the file at path as it is now.
func (c *Cache) Get(path string, info fs.FileInfo, build BuildOptions, parse ParseOptions, loader func() (*Index, error)) (*Index, error) {
	key := cacheKey{
		path:       path,
		template:   build.Template,
		fanOut:     build.FanOut,
		geographic: build.Geographic,
		parse:      parse,
	}

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		if entry.size == info.Size() && entry.modTime.Equal(info.ModTime()) {
			entry.lastAccessed = time.Now()
			entry.accessCount++
			c.lru.MoveToFront(entry.element)
			c.mu.Unlock()
			return entry.index, nil
		}
		c.removeLocked(entry)
	}
	c.mu.Unlock()

	idx, err := loader()
	if err != nil {
		return nil, err
	}
	if idx.Valid() {
		// An index too large for the cache is still returned.
		_ = c.add(key, info, idx)
	}
	return idx, nil
}

func (c *Cache) add(key cacheKey, info fs.FileInfo, idx *Index) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.removeLocked(entry)
	}

	memSize := estimateIndexMemory(idx)
	if c.maxMemory > 0 && memSize > c.maxMemory {
		return fmt.Errorf("index too large for cache (%d bytes > %d bytes max)",
			memSize, c.maxMemory)
	}
	if c.maxMemory > 0 {
		for c.usedMemory+memSize > c.maxMemory && c.lru.Len() > 0 {
			c.evictLRU()
		}
	}

	entry := &cacheEntry{
		key:          key,
		index:        idx,
		size:         info.Size(),
		modTime:      info.ModTime(),
		memorySize:   memSize,
		lastAccessed: time.Now(),
		accessCount:  1,
	}
	entry.element = c.lru.PushFront(entry)
	c.entries[key] = entry
	c.usedMemory += memSize
	return nil
}

// evictLRU removes the least recently used index.
// Must be called with c.mu locked.
func (c *Cache) evictLRU() {
	elem := c.lru.Back()
	if elem == nil {
		return
	}
	c.removeLocked(elem.Value.(*cacheEntry))
}

func (c *Cache) removeLocked(entry *cacheEntry) {
	c.lru.Remove(entry.element)
	delete(c.entries, entry.key)
	c.usedMemory -= entry.memorySize
}

// Remove drops every cached build of path.
func (c *Cache) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if key.path == path {
			c.removeLocked(entry)
		}
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[cacheKey]*cacheEntry)
	c.lru.Init()
	c.usedMemory = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	totalAccess := 0
	for _, entry := range c.entries {
		totalAccess += entry.accessCount
	}

	return CacheStats{
		IndexCount:  len(c.entries),
		UsedMemory:  c.usedMemory,
		MaxMemory:   c.maxMemory,
		TotalAccess: totalAccess,
	}
}

// CacheStats holds cache usage figures.
type CacheStats struct {
	IndexCount  int   // Number of indexes currently cached
	UsedMemory  int64 // Estimated memory usage in bytes
	MaxMemory   int64 // Maximum memory limit in bytes
	TotalAccess int   // Total number of accesses across all cached indexes
}

// estimateIndexMemory approximates the heap held by idx: the label and
// node arrays, label text and the id map.
func estimateIndexMemory(idx *Index) int64 {
	if idx == nil {
		return 0
	}

	size := int64(1024)
	size += int64(len(idx.labels)) * int64(unsafe.Sizeof(Label{}))
	size += int64(len(idx.nodes)) * int64(unsafe.Sizeof(node{}))
	size += int64(len(idx.byID)) * 16
	for i := range idx.labels {
		size += int64(len(idx.labels[i].Text))
	}
	return size
}
