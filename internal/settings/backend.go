package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"cafeteria-storefront/internal/domain"
	"cafeteria-storefront/internal/repository"
)

// KeyAdminSettings is the KV key of the settings override.
const KeyAdminSettings = "cafeteria_admin_settings"

// Backend is where the admin settings live. Fetch returns
// repository.ErrNotFound when nothing was ever stored.
type Backend interface {
	Fetch(ctx context.Context) (domain.AdminSettings, error)
	Update(ctx context.Context, s domain.AdminSettings) error
}

type KVBackend struct {
	store repository.KVRepositoryInterface
}

func NewKVBackend(store repository.KVRepositoryInterface) *KVBackend {
	return &KVBackend{store: store}
}

func (b *KVBackend) Fetch(ctx context.Context) (domain.AdminSettings, error) {
	raw, err := b.store.Get(ctx, KeyAdminSettings)
	if err != nil {
		return domain.AdminSettings{}, err
	}
	var s domain.AdminSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.AdminSettings{}, fmt.Errorf("decode admin settings: %w", err)
	}
	return s, nil
}

func (b *KVBackend) Update(ctx context.Context, s domain.AdminSettings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode admin settings: %w", err)
	}
	return b.store.Set(ctx, KeyAdminSettings, raw)
}

// GormBackend maps the settings onto the postgres admin row.
type GormBackend struct {
	repo repository.AdminRepositoryInterface
}

func NewGormBackend(repo repository.AdminRepositoryInterface) *GormBackend {
	return &GormBackend{repo: repo}
}

func (b *GormBackend) Fetch(ctx context.Context) (domain.AdminSettings, error) {
	row, err := b.repo.Fetch(ctx)
	if err != nil {
		return domain.AdminSettings{}, err
	}
	return domain.AdminSettings{IsOpen: row.Status, Message: row.Message, AuthorizedIPs: repository.SplitIPs(row.AuthorizedIPs)}, nil
}

func (b *GormBackend) Update(ctx context.Context, s domain.AdminSettings) error {
	return b.repo.Update(ctx, repository.AdminRow{Status: s.IsOpen, Message: s.Message, AuthorizedIPs: repository.JoinIPs(s.AuthorizedIPs)})
}
