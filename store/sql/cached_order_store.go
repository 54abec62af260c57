package sqlstore

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-paytoken/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const orderCacheKeyPrefix = "go-paytoken::order::v1"

// OrderPersistence is the write-capable order contract the cache wraps.
type OrderPersistence interface {
	GetOrder(ctx context.Context, tokenUUID string) (core.Order, error)
	SaveOrder(ctx context.Context, order core.Order) (core.Order, error)
	RevokeOrder(ctx context.Context, tokenUUID string, at time.Time) error
}

// CachedOrderStore is a read-through cache in front of the order store.
// Orders are immutable between generation and revocation, so cached
// reads stay correct until RevokeOrder or SaveOrder invalidates them.
type CachedOrderStore struct {
	base  OrderPersistence
	cache repositorycache.CacheService
}

func NewCachedOrderStore(base OrderPersistence, cacheService repositorycache.CacheService) (*CachedOrderStore, error) {
	if base == nil {
		return nil, core.NewBadInputError("sqlstore: base order store is required")
	}
	if cacheService == nil {
		return nil, core.NewBadInputError("sqlstore: order cache service is required")
	}
	return &CachedOrderStore{base: base, cache: cacheService}, nil
}

// OrderCacheKey returns the deterministic cache key for one order:
// go-paytoken::order::v1::<token_uuid> with the token URL-path escaped.
func OrderCacheKey(tokenUUID string) (string, error) {
	tokenUUID = strings.TrimSpace(tokenUUID)
	if tokenUUID == "" {
		return "", core.NewBadInputError("sqlstore: token uuid is required")
	}
	return orderCacheKeyPrefix + "::" + url.PathEscape(tokenUUID), nil
}

func (s *CachedOrderStore) GetOrder(ctx context.Context, tokenUUID string) (core.Order, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Order{}, core.NewInternalError("sqlstore: cached order store is not configured")
	}
	cacheKey, err := OrderCacheKey(tokenUUID)
	if err != nil {
		return core.Order{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Order, error) {
		return s.base.GetOrder(ctx, tokenUUID)
	})
}

func (s *CachedOrderStore) SaveOrder(ctx context.Context, order core.Order) (core.Order, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Order{}, core.NewInternalError("sqlstore: cached order store is not configured")
	}
	saved, err := s.base.SaveOrder(ctx, order)
	if err != nil {
		return core.Order{}, err
	}
	if err := s.invalidate(ctx, saved.TokenUUID); err != nil {
		return core.Order{}, err
	}
	return saved, nil
}

func (s *CachedOrderStore) RevokeOrder(ctx context.Context, tokenUUID string, at time.Time) error {
	if s == nil || s.base == nil || s.cache == nil {
		return core.NewInternalError("sqlstore: cached order store is not configured")
	}
	if err := s.base.RevokeOrder(ctx, tokenUUID, at); err != nil {
		return err
	}
	return s.invalidate(ctx, tokenUUID)
}

func (s *CachedOrderStore) invalidate(ctx context.Context, tokenUUID string) error {
	cacheKey, err := OrderCacheKey(tokenUUID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}
