package inventory

import "github.com/goliatone/go-inventory/element"

type cacheKey struct {
	store     element.StoreID
	canonical string
}

// lookupCache memoizes store lookups, including misses. Hits are kept in
// step with every Main mutation; misses are dropped wholesale whenever an
// element is inserted, since any insertion may make a missing chain
// resolvable.
type lookupCache struct {
	hits   map[cacheKey]*element.Element
	misses map[cacheKey]struct{}
}

func newLookupCache() *lookupCache {
	return &lookupCache{
		hits:   map[cacheKey]*element.Element{},
		misses: map[cacheKey]struct{}{},
	}
}

// get returns the cached element and whether the lookup was cached at all.
// A cached miss returns (nil, true).
func (c *lookupCache) get(store element.StoreID, key element.Key) (*element.Element, bool) {
	ck := cacheKey{store: store, canonical: key.Canonical()}
	if el, ok := c.hits[ck]; ok {
		return el, true
	}
	_, missed := c.misses[ck]
	return nil, missed
}

// put records el for key; a nil el records a miss.
func (c *lookupCache) put(store element.StoreID, key element.Key, el *element.Element) {
	ck := cacheKey{store: store, canonical: key.Canonical()}
	if el == nil {
		delete(c.hits, ck)
		c.misses[ck] = struct{}{}
		return
	}
	delete(c.misses, ck)
	c.hits[ck] = el
}

func (c *lookupCache) drop(store element.StoreID, key element.Key) {
	ck := cacheKey{store: store, canonical: key.Canonical()}
	delete(c.hits, ck)
	delete(c.misses, ck)
}

func (c *lookupCache) dropMisses() {
	if len(c.misses) > 0 {
		c.misses = map[cacheKey]struct{}{}
	}
}

func (c *lookupCache) len() int {
	return len(c.hits) + len(c.misses)
}
