package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"cafeteria-storefront/internal/cart"
	"cafeteria-storefront/internal/common/logger"
	"cafeteria-storefront/internal/domain"
	"cafeteria-storefront/internal/menu"
	notifyservice "cafeteria-storefront/internal/microservices/notificator/service"
	orderrepo "cafeteria-storefront/internal/microservices/order/repository"
	orderservice "cafeteria-storefront/internal/microservices/order/service"
	"cafeteria-storefront/internal/worker"
)

var ErrNotFound = errors.New("session not found")

type Deps struct {
	Catalog  *menu.Catalog
	Gate     cart.Gate
	History  *orderrepo.HistoryRepository
	Relay    orderservice.Relay
	Worker   *worker.Worker
	Currency string
	Notify   notifyservice.Config
	Clock    notifyservice.Clock
	Logger   *logger.Logger
}

type Manager struct {
	deps Deps
	ttl  time.Duration
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(deps Deps, ttl time.Duration) *Manager {
	if deps.Clock == nil {
		deps.Clock = notifyservice.RealClock
	}
	return &Manager{deps: deps, ttl: ttl, now: time.Now, sessions: make(map[string]*Session)}
}

// Open resumes the session named in req or starts a new one. A well-formed
// but unknown id is adopted so the page keeps its stored order history.
func (m *Manager) Open(ctx context.Context, req domain.OpenSessionRequest) (*Session, bool) {
	id := req.SessionID
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	perm := notifyservice.ParsePermission(req.CurrentPermission)

	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		s = m.newSession(id, req.NotificationsAPI, perm)
		m.sessions[id] = s
	}
	m.mu.Unlock()

	s.touch(m.now())
	if ok {
		s.platform.Report(req.NotificationsAPI, perm)
	}
	s.notify.Initialize(ctx)
	if !ok {
		s.lg.Info("session_opened", nil)
	}
	return s, !ok
}

func (m *Manager) newSession(id string, supported bool, perm notifyservice.Permission) *Session {
	lg := m.deps.Logger.With(map[string]any{"session_id": id})
	w := m.deps.Worker
	port := w.Port(id)
	platform := notifyservice.NewBrowserPlatform(supported, perm, func(context.Context) error { return w.Ready() })
	repo := &orderrepo.Repository{History: m.deps.History.ForSession(id)}

	return &Session{
		ID:       id,
		lg:       lg,
		catalog:  m.deps.Catalog,
		history:  repo.History,
		orders:   orderservice.New(repo, m.deps.Relay, m.deps.Currency, lg).OrderService,
		notify:   notifyservice.NewNotificatorService(platform, port, m.deps.Clock, m.deps.Notify, lg),
		platform: platform,
		worker:   w,
		port:     port,
		cart:     cart.New(m.deps.Gate),
	}
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Close drops the session and cancels its pending reminders.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.close()
		s.lg.Info("session_closed", nil)
	}
	return ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the ttl.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)
	var idle []string
	m.mu.RLock()
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range idle {
		m.Close(id)
	}
	return len(idle)
}

// RunJanitor sweeps every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				m.deps.Logger.Info("sessions_expired", map[string]any{"count": n})
			}
		}
	}
}
