package cache

import (
	"sync"

	"github.com/damon-houk/fx-rate-dashboard/internal/infrastructure/chart"
)

// FigureCache memoizes figures built from the read-only rate table.
// Entries never go stale because the table is not updated after load.
type FigureCache struct {
	figures map[string]chart.Figure
	mutex   sync.RWMutex
	hits    int64
	misses  int64
}

// NewFigureCache creates an empty figure cache
func NewFigureCache() *FigureCache {
	return &FigureCache{
		figures: make(map[string]chart.Figure),
	}
}

// Get returns a cached figure
func (c *FigureCache) Get(key string) (chart.Figure, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	fig, ok := c.figures[key]
	return fig, ok
}

// Put stores a figure
func (c *FigureCache) Put(key string, fig chart.Figure) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.figures[key] = fig
}

// GetOrBuild returns the cached figure or builds, stores and returns it.
// Build errors are not cached.
func (c *FigureCache) GetOrBuild(key string, build func() (chart.Figure, error)) (chart.Figure, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if fig, ok := c.figures[key]; ok {
		c.hits++
		return fig, nil
	}

	c.misses++
	fig, err := build()
	if err != nil {
		return chart.Figure{}, err
	}
	c.figures[key] = fig
	return fig, nil
}

// Stats returns the hit and miss counters
func (c *FigureCache) Stats() (hits, misses int64) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.hits, c.misses
}

// Clear clears all entries from the cache
func (c *FigureCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.figures = make(map[string]chart.Figure)
}

// Size returns the number of items in the cache
func (c *FigureCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.figures)
}
