package translate

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedTranslator memoises successful translations of another Translator.
// Failures are not cached.
type CachedTranslator struct {
	next  Translator
	cache *gocache.Cache
}

// NewCachedTranslator wraps next. Entries expire after ttl; a non-positive
// ttl keeps them for the life of the process.
func NewCachedTranslator(next Translator, ttl time.Duration) *CachedTranslator {
	if ttl <= 0 {
		return &CachedTranslator{next: next, cache: gocache.New(gocache.NoExpiration, 0)}
	}
	return &CachedTranslator{next: next, cache: gocache.New(ttl, 2*ttl)}
}

// Translate implements Translator.
func (c *CachedTranslator) Translate(ctx context.Context, text, language string) (string, error) {
	key := language + "\x1f" + text
	if v, ok := c.cache.Get(key); ok {
		return v.(string), nil
	}

	out, err := c.next.Translate(ctx, text, language)
	if err != nil {
		return "", err
	}
	c.cache.SetDefault(key, out)
	return out, nil
}

// Len returns the number of cached translations.
func (c *CachedTranslator) Len() int {
	return c.cache.ItemCount()
}
