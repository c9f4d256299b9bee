package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafeteria-storefront/internal/domain"
	kv "cafeteria-storefront/internal/repository"
)

type countingStore struct {
	*kv.MemoryKVRepository
	sets int
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte) error {
	s.sets++
	return s.MemoryKVRepository.Set(ctx, key, value)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errors.New("quota exceeded") }
func (brokenStore) Set(context.Context, string, []byte) error  { return errors.New("quota exceeded") }
func (brokenStore) Delete(context.Context, string) error        { return nil }

func order(id string, at time.Time) domain.OrderRecord {
	return domain.OrderRecord{ID: id, CustomerName: "Ana", PickupTime: "12:30", OrderedAt: at, Total: decimal.RequireFromString("4.00")}
}

func TestHistory_SaveAndRead(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	h := NewHistoryRepository(kv.NewMemoryKVRepository())
	h.now = func() time.Time { return now }

	_, err := h.SaveOrder(ctx, order("a", now.Add(-time.Hour)))
	require.NoError(t, err)
	saved, err := h.SaveOrder(ctx, domain.OrderRecord{ID: "b"})
	require.NoError(t, err)
	assert.Equal(t, now.UTC(), saved.OrderedAt)

	got, err := h.GetRecentOrders(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.True(t, got[0].Total.Equal(decimal.RequireFromString("4.00")))
}

func TestHistory_EvictsExpiredOnRead(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &countingStore{MemoryKVRepository: kv.NewMemoryKVRepository()}
	h := NewHistoryRepository(store)
	h.now = func() time.Time { return now }

	for id, age := range map[string]time.Duration{"old": 7 * time.Hour, "edge": Retention, "fresh": time.Minute} {
		_, err := h.SaveOrder(ctx, order(id, now.Add(-age)))
		require.NoError(t, err)
	}
	require.Equal(t, 3, store.sets)

	got, err := h.GetRecentOrders(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].ID)
	assert.Equal(t, 4, store.sets, "expired records rewrite the list")

	// nothing left to drop
	_, err = h.GetRecentOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, store.sets)
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistoryRepository(kv.NewMemoryKVRepository())
	got, err := h.GetRecentOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistory_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	base := NewHistoryRepository(kv.NewMemoryKVRepository())
	a, b := base.ForSession("a"), base.ForSession("b")

	_, err := a.SaveOrder(ctx, order("1", time.Now()))
	require.NoError(t, err)

	got, err := b.GetRecentOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistory_StoreFailures(t *testing.T) {
	ctx := context.Background()
	h := NewHistoryRepository(brokenStore{})

	_, err := h.SaveOrder(ctx, order("a", time.Now()))
	assert.Error(t, err)
	_, err = h.GetRecentOrders(ctx)
	assert.Error(t, err)
}

func TestHistory_CorruptPayload(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryKVRepository()
	require.NoError(t, store.Set(ctx, keyPrefix, []byte("{not json")))

	_, err := NewHistoryRepository(store).GetRecentOrders(ctx)
	assert.Error(t, err)
}
