package settings

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"cafeteria-storefront/internal/common/logger"
	"cafeteria-storefront/internal/domain"
	"cafeteria-storefront/internal/repository"
)

const DefaultMessage = "Welcome to the University Cafeteria!"

var ErrUnauthorized = errors.New("admin password rejected")

// Default is used until the backend answers, and whenever it cannot.
func Default(message string) domain.AdminSettings {
	if message == "" {
		message = DefaultMessage
	}
	return domain.AdminSettings{IsOpen: true, Message: message}
}

// Relay forwards applied settings to the background worker.
type Relay interface {
	SettingsChanged(s domain.AdminSettings) error
}

type ChannelInterface interface {
	Current() domain.AdminSettings
	IsOpen() bool
	Subscribe() (<-chan domain.AdminSettings, func())
	Authenticate(password string) bool
	Update(ctx context.Context, password string, isOpen *bool, message *string) (domain.AdminSettings, error)
}

var _ ChannelInterface = (*Channel)(nil)

// Channel holds the live admin settings. It is the cart gate.
type Channel struct {
	backend  Backend
	broker   Broker
	relay    Relay
	password string
	lg       *logger.Logger

	mu      sync.RWMutex
	current domain.AdminSettings
	subs    map[int]chan domain.AdminSettings
	nextSub int
}

func NewChannel(backend Backend, broker Broker, relay Relay, password string, defaults domain.AdminSettings, lg *logger.Logger) *Channel {
	return &Channel{
		backend:  backend,
		broker:   broker,
		relay:    relay,
		password: password,
		lg:       lg,
		current:  defaults,
		subs:     make(map[int]chan domain.AdminSettings),
	}
}

// Start loads the stored settings and follows the broker until ctx is done.
// A broken backend or broker degrades to the last known value.
func (c *Channel) Start(ctx context.Context) {
	c.Sync(ctx)
	if c.broker == nil {
		return
	}
	updates, err := c.broker.Subscribe(ctx)
	if err != nil {
		c.lg.Error("settings_subscribe_failed", err, nil)
		return
	}
	go func() {
		for s := range updates {
			c.apply(s)
		}
	}()
}

// Sync refetches the settings from the backend.
func (c *Channel) Sync(ctx context.Context) {
	if c.backend == nil {
		return
	}
	s, err := c.backend.Fetch(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		c.lg.Info("settings_not_stored", map[string]any{"is_open": c.IsOpen()})
		return
	}
	if err != nil {
		c.lg.Warn("settings_sync_failed", err, map[string]any{"fallback_is_open": c.IsOpen()})
		return
	}
	c.apply(s)
}

func (c *Channel) Current() domain.AdminSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.current)
}

func (c *Channel) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.IsOpen
}

// Subscribe streams applied changes. Only the newest unread value is kept.
func (c *Channel) Subscribe() (<-chan domain.AdminSettings, func()) {
	ch := make(chan domain.AdminSettings, 1)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			close(ch)
			c.mu.Unlock()
		})
	}
}

// Authenticate compares against the configured admin password. An empty
// configured password disables the admin surface.
func (c *Channel) Authenticate(password string) bool {
	if c.password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(c.password)) == 1
}

// Update stores the changed fields, applies them locally and publishes them
// to the other instances.
func (c *Channel) Update(ctx context.Context, password string, isOpen *bool, message *string) (domain.AdminSettings, error) {
	if !c.Authenticate(password) {
		c.lg.Warn("admin_auth_failed", ErrUnauthorized, nil)
		return domain.AdminSettings{}, ErrUnauthorized
	}

	next := c.Current()
	if isOpen != nil {
		next.IsOpen = *isOpen
	}
	if message != nil {
		next.Message = *message
	}

	if c.backend != nil {
		if err := c.backend.Update(ctx, next); err != nil {
			return domain.AdminSettings{}, fmt.Errorf("store admin settings: %w", err)
		}
	}
	c.apply(next)

	if c.broker != nil {
		if err := c.broker.Publish(ctx, next); err != nil {
			c.lg.Error("settings_publish_failed", err, nil)
		}
	}
	c.lg.Info("admin_settings_updated", map[string]any{"is_open": next.IsOpen})
	return next, nil
}

func (c *Channel) apply(s domain.AdminSettings) bool {
	c.mu.Lock()
	if c.current.Equal(s) {
		c.mu.Unlock()
		return false
	}
	c.current = clone(s)
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- clone(s)
	}
	c.mu.Unlock()

	if c.relay != nil {
		if err := c.relay.SettingsChanged(s); err != nil {
			c.lg.Warn("settings_relay_failed", err, nil)
		}
	}
	c.lg.Debug("settings_applied", map[string]any{"is_open": s.IsOpen})
	return true
}

func clone(s domain.AdminSettings) domain.AdminSettings {
	if s.AuthorizedIPs != nil {
		s.AuthorizedIPs = append([]string(nil), s.AuthorizedIPs...)
	}
	return s
}
