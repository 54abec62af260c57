// Package sqlstore is the bun-backed persistence layer: payment orders
// and the pending authorization set the reconciler drains.
package sqlstore

import (
	"context"
	"fmt"

	"github.com/goliatone/go-paytoken/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

// Store bundles the order and pending-authorization stores behind the
// read contracts the webhook pipeline and the reconciler consume.
type Store struct {
	db      *bun.DB
	orders  *OrderStore
	pending *PendingAuthorizationStore
	cached  *CachedOrderStore
}

// StoreOption configures optional store collaborators.
type StoreOption func(*storeConfig)

type storeConfig struct {
	cacheService repositorycache.CacheService
}

// WithOrderCache wraps order reads in a read-through cache.
func WithOrderCache(cacheService repositorycache.CacheService) StoreOption {
	return func(cfg *storeConfig) {
		cfg.cacheService = cacheService
	}
}

// NewStore builds the store set from a bun DB or any persistence client
// exposing DB() *bun.DB.
func NewStore(persistenceClient any, options ...StoreOption) (*Store, error) {
	db, err := resolveBunDB(persistenceClient)
	if err != nil {
		return nil, err
	}

	cfg := &storeConfig{}
	for _, option := range options {
		option(cfg)
	}

	orders, err := NewOrderStore(db)
	if err != nil {
		return nil, err
	}
	pending, err := NewPendingAuthorizationStore(db)
	if err != nil {
		return nil, err
	}

	store := &Store{db: db, orders: orders, pending: pending}
	if cfg.cacheService != nil {
		cached, cacheErr := NewCachedOrderStore(orders, cfg.cacheService)
		if cacheErr != nil {
			return nil, cacheErr
		}
		store.cached = cached
	}
	return store, nil
}

func (s *Store) DB() *bun.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Orders returns the order store, cached when a cache service was
// supplied.
func (s *Store) Orders() OrderPersistence {
	if s == nil {
		return nil
	}
	if s.cached != nil {
		return s.cached
	}
	return s.orders
}

func (s *Store) Pending() *PendingAuthorizationStore {
	if s == nil {
		return nil
	}
	return s.pending
}

func (s *Store) GetOrder(ctx context.Context, tokenUUID string) (core.Order, error) {
	if s == nil {
		return core.Order{}, core.NewInternalError("sqlstore: store is not configured")
	}
	if s.cached != nil {
		return s.cached.GetOrder(ctx, tokenUUID)
	}
	return s.orders.GetOrder(ctx, tokenUUID)
}

func (s *Store) PendingAuthorizations(ctx context.Context) ([]core.AuthorizeOrder, error) {
	if s == nil {
		return nil, core.NewInternalError("sqlstore: store is not configured")
	}
	return s.pending.PendingAuthorizations(ctx)
}

func (s *Store) CountAuthorizations(ctx context.Context, tokenUUID string) (core.ReuseCount, error) {
	if s == nil {
		return core.ReuseUnknown(), core.NewInternalError("sqlstore: store is not configured")
	}
	return s.pending.CountAuthorizations(ctx, tokenUUID)
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, core.NewBadInputError("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, core.NewInternalError("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, core.NewBadInputError(fmt.Sprintf("sqlstore: unsupported persistence client %T", candidate))
	}
}
