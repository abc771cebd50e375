package analyzer

import (
	"sync"
	"time"

	"code-intel/internal/types"
)

// cacheEntry 절대 경로별 분석 결과와 분석 시점의 mtime
type cacheEntry struct {
	module   *types.ModuleAnalysis
	warnings []string
	mtime    time.Time
}

type moduleCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

func newModuleCache() *moduleCache {
	return &moduleCache{entries: make(map[string]*cacheEntry)}
}

// get mtime 이 캐시된 mtime 보다 새롭지 않으면 적중
func (c *moduleCache) get(path string, mtime time.Time) (*cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[path]
	if !ok || mtime.After(entry.mtime) {
		return nil, false
	}
	return entry, true
}

func (c *moduleCache) put(path string, entry *cacheEntry) {
	c.mu.Lock()
	c.entries[path] = entry
	c.mu.Unlock()
}

func (c *moduleCache) delete(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

func (c *moduleCache) clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

func (c *moduleCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
