package render

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of rendered pages kept by CachingRenderer.
const DefaultCacheSize = 256

// CachingRenderer remembers successful renders so a page discovered during
// the crawl is not rendered again during analysis. Failures are not cached.
type CachingRenderer struct {
	next  Renderer
	cache *lru.Cache[string, Result]
}

// NewCachingRenderer wraps next with an LRU cache of the given size.
func NewCachingRenderer(next Renderer, size int) (*CachingRenderer, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, Result](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create render cache: %w", err)
	}
	return &CachingRenderer{next: next, cache: cache}, nil
}

// Render returns the cached result for url or renders it.
func (c *CachingRenderer) Render(ctx context.Context, url string) Result {
	if cached, ok := c.cache.Get(url); ok {
		return cached
	}
	result := c.next.Render(ctx, url)
	if result.Success {
		c.cache.Add(url, result)
	}
	return result
}

// Invalidate drops url from the cache.
func (c *CachingRenderer) Invalidate(url string) {
	c.cache.Remove(url)
}

// Len returns the number of cached pages.
func (c *CachingRenderer) Len() int {
	return c.cache.Len()
}

// Purge empties the cache.
func (c *CachingRenderer) Purge() {
	c.cache.Purge()
}
