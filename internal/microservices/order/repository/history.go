package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"cafeteria-storefront/internal/domain"
	kv "cafeteria-storefront/internal/repository"
)

// Retention is how long a submitted order stays visible in the history.
const Retention = 6 * time.Hour

const keyPrefix = "cafeteria_recent_orders"

type OrderHistoryInterface interface {
	SaveOrder(ctx context.Context, rec domain.OrderRecord) (domain.OrderRecord, error)
	GetRecentOrders(ctx context.Context) ([]domain.OrderRecord, error)
}

// HistoryRepository is one session's order history. Expired records are only
// dropped when the history is read.
type HistoryRepository struct {
	store kv.KVRepositoryInterface
	key   string
	now   func() time.Time

	mu sync.Mutex
}

func NewHistoryRepository(store kv.KVRepositoryInterface) *HistoryRepository {
	return &HistoryRepository{store: store, key: keyPrefix, now: time.Now}
}

// ForSession returns a history namespaced to one session.
func (r *HistoryRepository) ForSession(sessionID string) *HistoryRepository {
	return &HistoryRepository{store: r.store, key: keyPrefix + ":" + sessionID, now: r.now}
}

func (r *HistoryRepository) SaveOrder(ctx context.Context, rec domain.OrderRecord) (domain.OrderRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.OrderedAt.IsZero() {
		rec.OrderedAt = r.now().UTC()
	}

	all, err := r.load(ctx)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	all = append(all, rec)
	if err := r.save(ctx, all); err != nil {
		return domain.OrderRecord{}, err
	}
	return rec, nil
}

// GetRecentOrders returns the orders younger than Retention, oldest first,
// and rewrites the stored list when something expired.
func (r *HistoryRepository) GetRecentOrders(ctx context.Context) ([]domain.OrderRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	now := r.now()
	recent := make([]domain.OrderRecord, 0, len(all))
	for _, o := range all {
		if now.Sub(o.OrderedAt) < Retention {
			recent = append(recent, o)
		}
	}

	if len(recent) != len(all) {
		if err := r.save(ctx, recent); err != nil {
			return nil, err
		}
	}
	return recent, nil
}

func (r *HistoryRepository) load(ctx context.Context) ([]domain.OrderRecord, error) {
	raw, err := r.store.Get(ctx, r.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}
	var out []domain.OrderRecord
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode order history: %w", err)
	}
	return out, nil
}

func (r *HistoryRepository) save(ctx context.Context, orders []domain.OrderRecord) error {
	if orders == nil {
		orders = []domain.OrderRecord{}
	}
	raw, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("failed to encode order history: %w", err)
	}
	if err := r.store.Set(ctx, r.key, raw); err != nil {
		return fmt.Errorf("failed to store order history: %w", err)
	}
	return nil
}
