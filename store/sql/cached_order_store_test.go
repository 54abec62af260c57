package sqlstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-paytoken/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type stubOrderPersistence struct {
	mu          sync.Mutex
	order       core.Order
	getCalls    int
	saveCalls   int
	revokeCalls int
	getErr      error
}

func (s *stubOrderPersistence) GetOrder(_ context.Context, tokenUUID string) (core.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return core.Order{}, s.getErr
	}
	if s.order.TokenUUID != tokenUUID {
		return core.Order{}, core.NewOrderNotFoundError(tokenUUID)
	}
	return s.order, nil
}

func (s *stubOrderPersistence) SaveOrder(_ context.Context, order core.Order) (core.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	s.order = order
	return order, nil
}

func (s *stubOrderPersistence) RevokeOrder(_ context.Context, _ string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokeCalls++
	s.order.RevokedAt = &at
	return nil
}

func newTestOrderCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

func TestCachedOrderStore_Get_MissFetchThenHit(t *testing.T) {
	cacheService := newTestOrderCacheService(t)
	base := &stubOrderPersistence{order: core.Order{TokenUUID: "tok-1", UserID: "usr-1", Amount: 1500}}

	store, err := NewCachedOrderStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached order store: %v", err)
	}

	if _, err := store.GetOrder(context.Background(), "tok-1"); err != nil {
		t.Fatalf("first get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected first get to fetch base store once, got %d", base.getCalls)
	}

	loaded, err := store.GetOrder(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected second get to be cache hit, base get calls=%d", base.getCalls)
	}
	if loaded.Amount != 1500 {
		t.Fatalf("unexpected cached order: %+v", loaded)
	}
}

func TestCachedOrderStore_RevokeInvalidatesCache(t *testing.T) {
	cacheService := newTestOrderCacheService(t)
	base := &stubOrderPersistence{order: core.Order{TokenUUID: "tok-1", UserID: "usr-1"}}

	store, err := NewCachedOrderStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached order store: %v", err)
	}

	if _, err := store.GetOrder(context.Background(), "tok-1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if err := store.RevokeOrder(context.Background(), "tok-1", time.Now().UTC()); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	loaded, err := store.GetOrder(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("get after revoke: %v", err)
	}
	if base.getCalls != 2 {
		t.Fatalf("expected revoke to invalidate the cache, base get calls=%d", base.getCalls)
	}
	if !loaded.IsRevoked() {
		t.Fatalf("expected revoked order after invalidation")
	}
}

func TestCachedOrderStore_SaveInvalidatesCache(t *testing.T) {
	cacheService := newTestOrderCacheService(t)
	base := &stubOrderPersistence{order: core.Order{TokenUUID: "tok-1", UserID: "usr-1", Amount: 1000}}

	store, err := NewCachedOrderStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached order store: %v", err)
	}

	if _, err := store.GetOrder(context.Background(), "tok-1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if _, err := store.SaveOrder(context.Background(), core.Order{TokenUUID: "tok-1", UserID: "usr-1", Amount: 2000}); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.GetOrder(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("get after save: %v", err)
	}
	if loaded.Amount != 2000 {
		t.Fatalf("expected refreshed amount, got %d", loaded.Amount)
	}
}

func TestOrderCacheKey_EscapesToken(t *testing.T) {
	key, err := OrderCacheKey("tok/with spaces")
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	if key != "go-paytoken::order::v1::tok%2Fwith%20spaces" {
		t.Fatalf("unexpected key %q", key)
	}

	if _, err := OrderCacheKey("  "); err == nil {
		t.Fatalf("expected empty token rejection")
	}
}
