package browse

import "sync"

type pageKey struct {
	path string
	page int
}

// PageCache remembers the continuation token needed to fetch a given page of
// a directory. Tokens are process-scoped and the map is unbounded.
type PageCache struct {
	mu     sync.Mutex
	tokens map[pageKey]string
}

// NewPageCache returns an empty cache.
func NewPageCache() *PageCache {
	return &PageCache{tokens: make(map[pageKey]string)}
}

// Get returns the token that fetches page of path.
func (c *PageCache) Get(path string, page int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tok, ok := c.tokens[pageKey{path: path, page: page}]

	return tok, ok
}

// Put stores the token for page of path. Empty tokens are ignored.
func (c *PageCache) Put(path string, page int, token string) {
	if token == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.tokens[pageKey{path: path, page: page}] = token
}

// Forget drops every token held for path.
func (c *PageCache) Forget(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.tokens {
		if k.path == path {
			delete(c.tokens, k)
		}
	}
}

// Len returns the number of stored tokens.
func (c *PageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.tokens)
}
