package store

import (
	"context"
	"fmt"
	"net/url"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const credentialCacheKeyPrefix = "storefront::credential::v1"

// tokenSnapshot is the cached read result. Present distinguishes an absent
// credential from an empty one so misses are cacheable too.
type tokenSnapshot struct {
	Token   string
	Present bool
}

// CachedBackend decorates a backend with a read-through cache keyed by
// storage key. Writes go to the base first and then invalidate the entry, so
// the next read observes the durable value.
type CachedBackend struct {
	base       Backend
	cache      repositorycache.CacheService
	storageKey string
}

func NewCachedBackend(
	base Backend,
	cacheService repositorycache.CacheService,
	storageKey string,
) (*CachedBackend, error) {
	if base == nil {
		return nil, fmt.Errorf("store: base credential backend is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("store: credential cache service is required")
	}
	if storageKey == "" {
		return nil, fmt.Errorf("store: storage key is required")
	}
	return &CachedBackend{
		base:       base,
		cache:      cacheService,
		storageKey: storageKey,
	}, nil
}

// CredentialCacheKey returns the deterministic cache key contract for
// credential reads: storefront::credential::v1::<storage_key> with the
// storage key URL-path escaped.
func CredentialCacheKey(storageKey string) string {
	return credentialCacheKeyPrefix + "::" + url.PathEscape(storageKey)
}

func (b *CachedBackend) Load(ctx context.Context) (string, bool, error) {
	if b == nil || b.base == nil || b.cache == nil {
		return "", false, fmt.Errorf("store: cached credential backend is not configured")
	}
	snapshot, err := repositorycache.GetOrFetch(ctx, b.cache, CredentialCacheKey(b.storageKey), func(ctx context.Context) (tokenSnapshot, error) {
		token, present, fetchErr := b.base.Load(ctx)
		if fetchErr != nil {
			return tokenSnapshot{}, fetchErr
		}
		return tokenSnapshot{Token: token, Present: present}, nil
	})
	if err != nil {
		return "", false, err
	}
	return snapshot.Token, snapshot.Present, nil
}

func (b *CachedBackend) Save(ctx context.Context, token string) error {
	if b == nil || b.base == nil || b.cache == nil {
		return fmt.Errorf("store: cached credential backend is not configured")
	}
	if err := b.base.Save(ctx, token); err != nil {
		return err
	}
	return b.cache.Delete(ctx, CredentialCacheKey(b.storageKey))
}

func (b *CachedBackend) Delete(ctx context.Context) error {
	if b == nil || b.base == nil || b.cache == nil {
		return fmt.Errorf("store: cached credential backend is not configured")
	}
	if err := b.base.Delete(ctx); err != nil {
		return err
	}
	return b.cache.Delete(ctx, CredentialCacheKey(b.storageKey))
}

var _ Backend = (*CachedBackend)(nil)
