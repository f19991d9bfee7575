package source

import (
	"container/list"
	"sync"
	"teleaiposter/internal/domain"
	"time"
)

const (
	itemCacheMaxEntries = 32
	itemCacheTTL        = time.Minute
)

// itemCache keeps the newest item per feed URL for a short while so that
// repeated fetches do not hit the feed server. Least recently used entries
// are evicted first.
type itemCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
}

type itemCacheEntry struct {
	feedURL   string
	item      domain.SourceItem
	expiresAt time.Time
}

func newItemCache(maxEntries int) *itemCache {
	if maxEntries <= 0 {
		return nil
	}

	return &itemCache{
		entries:    make(map[string]*list.Element, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
	}
}

func (c *itemCache) get(feedURL string, now time.Time) (domain.SourceItem, bool) {
	if c == nil || feedURL == "" {
		return domain.SourceItem{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[feedURL]
	if !ok {
		return domain.SourceItem{}, false
	}

	entry := elem.Value.(*itemCacheEntry) //nolint:forcetypeassert // Only entries are stored.
	if !now.Before(entry.expiresAt) {
		c.remove(elem)

		return domain.SourceItem{}, false
	}

	c.order.MoveToFront(elem)

	return entry.item, true
}

func (c *itemCache) set(feedURL string, item domain.SourceItem, now time.Time) {
	if c == nil || feedURL == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := now.Add(itemCacheTTL)

	if elem, ok := c.entries[feedURL]; ok {
		entry := elem.Value.(*itemCacheEntry) //nolint:forcetypeassert // Only entries are stored.
		entry.item = item
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)

		return
	}

	c.entries[feedURL] = c.order.PushFront(&itemCacheEntry{
		feedURL:   feedURL,
		item:      item,
		expiresAt: expiresAt,
	})

	c.evictExpiredLocked(now)

	for len(c.entries) > c.maxEntries {
		c.remove(c.order.Back())
	}
}

func (c *itemCache) evictExpiredLocked(now time.Time) {
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if entry := elem.Value.(*itemCacheEntry); !now.Before(entry.expiresAt) { //nolint:forcetypeassert // Only entries are stored.
			c.remove(elem)
		}
		elem = prev
	}
}

func (c *itemCache) remove(elem *list.Element) {
	entry := elem.Value.(*itemCacheEntry) //nolint:forcetypeassert // Only entries are stored.
	delete(c.entries, entry.feedURL)
	c.order.Remove(elem)
}
