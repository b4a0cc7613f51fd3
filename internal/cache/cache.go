// Package cache holds the process-wide caches: published posts, rendered
// markdown, syntax CSS and static file hashes.
package cache

import (
	"sync"

	"github.com/mmarkdown/mmark/v2/mast"
)

// Cache is a map guarded by an RWMutex.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]V),
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.items[key]
	return val, ok
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]V)
}

// SetTo replaces the whole map. The caller must not modify items afterwards.
func (c *Cache[K, V]) SetTo(items map[K]V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
}

// RenderedContent is one post body rendered with one syntax theme.
type RenderedContent struct {
	HTML  []byte
	Title *mast.TitleData
}

type renderKey struct {
	contentHash string
	syntaxTheme string
}

var renderedMarkdownCache = NewCache[renderKey, *RenderedContent]()

func GetRenderedMarkdown(contentHash, syntaxTheme string) (*RenderedContent, bool) {
	return renderedMarkdownCache.Get(renderKey{contentHash, syntaxTheme})
}

func SetRenderedMarkdown(contentHash, syntaxTheme string, html []byte, title *mast.TitleData) {
	renderedMarkdownCache.Set(renderKey{contentHash, syntaxTheme}, &RenderedContent{
		HTML:  html,
		Title: title,
	})
}

func ClearRenderedMarkdownCache() {
	renderedMarkdownCache.Clear()
}
