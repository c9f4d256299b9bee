package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"cafeteria-storefront/internal/common/logger"
	"cafeteria-storefront/internal/domain"
)

const (
	// ImmediateWindow: pickups closer than this are announced right away.
	ImmediateWindow = 60 * time.Second
	EarlyLead       = 5 * time.Minute

	notificationTag = "meal-ready"
)

type State string

const (
	StateUnarmed   State = "unarmed"
	StateScheduled State = "scheduled"
	StateFired     State = "fired"
	StateCancelled State = "cancelled"
)

// Displayer hands a notification to the page's notification surface.
type Displayer interface {
	ShowNotification(n domain.Notification) error
}

type Config struct {
	Icon     string
	Badge    string
	Location *time.Location
}

type NotificatorServiceInterface interface {
	Initialize(ctx context.Context) bool
	RequestPermission(ctx context.Context) bool
	SchedulePickupReminder(pickupTime, orderID, customerName string) error
	CancelNotification(orderID string)
	CancelAll()
	State(orderID string) State
	PendingAll() []domain.ScheduledNotification
	Registered() bool
	Permission() Permission
}

var _ NotificatorServiceInterface = (*NotificatorService)(nil)

type armed struct {
	note  domain.ScheduledNotification
	timer Timer
}

type reminder struct {
	state   State
	pending []armed
}

type NotificatorService struct {
	platform Platform
	display  Displayer
	clock    Clock
	cfg      Config
	lg       *logger.Logger

	mu         sync.Mutex
	registered bool
	orders     map[string]*reminder
}

func NewNotificatorService(platform Platform, display Displayer, clock Clock, cfg Config, lg *logger.Logger) *NotificatorService {
	if clock == nil {
		clock = RealClock
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &NotificatorService{
		platform: platform,
		display:  display,
		clock:    clock,
		cfg:      cfg,
		lg:       lg,
		orders:   make(map[string]*reminder),
	}
}

// Initialize registers the background worker and reports whether permission
// is already granted. It never prompts.
func (s *NotificatorService) Initialize(ctx context.Context) bool {
	if !s.platform.Supported() {
		s.lg.Debug("notifications_unsupported", nil)
		return false
	}
	if err := s.platform.RegisterWorker(ctx); err != nil {
		s.lg.Warn("worker_registration_failed", err, nil)
		return false
	}
	s.mu.Lock()
	s.registered = true
	s.mu.Unlock()
	return s.platform.Permission() == PermissionGranted
}

func (s *NotificatorService) RequestPermission(ctx context.Context) bool {
	if !s.platform.Supported() {
		return false
	}
	if s.platform.RequestPermission(ctx) != PermissionGranted {
		s.lg.Info("notification_permission_denied", nil)
		return false
	}
	s.show(s.payload("🔔 Notifications Enabled!", "You will now receive alerts when your meal is ready.", "/"))
	return true
}

// SchedulePickupReminder arms the meal-ready notification for pickupTime
// ("HH:MM" today) and, when there is room, an early reminder five minutes
// before. Without permission or a registered worker it does nothing, not
// even parse pickupTime.
func (s *NotificatorService) SchedulePickupReminder(pickupTime, orderID, customerName string) error {
	s.mu.Lock()
	if !s.registered || s.platform.Permission() != PermissionGranted {
		s.mu.Unlock()
		s.lg.Debug("reminder_skipped", map[string]any{"order_id": orderID})
		return nil
	}

	now := s.clock.Now().In(s.cfg.Location)
	fireAt, err := pickupInstant(pickupTime, now)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.cancelLocked(orderID)

	ready := s.payload("🍽️ Your Meal is Ready!",
		fmt.Sprintf("Hi %s! Your food is ready for pickup at the cafeteria.", customerName),
		"/orders/"+orderID)

	until := fireAt.Sub(now)
	if until <= ImmediateWindow {
		s.orders[orderID] = &reminder{state: StateFired}
		s.mu.Unlock()
		s.show(ready)
		return nil
	}

	r := &reminder{state: StateScheduled}
	s.orders[orderID] = r
	r.pending = append(r.pending, s.arm(r, orderID, domain.NotificationReadyNow, fireAt, until, ready))
	if until > EarlyLead {
		early := s.payload("⏰ Meal Ready Soon!",
			fmt.Sprintf("Hi %s! Your meal will be ready in 5 minutes.", customerName),
			"/orders/"+orderID)
		r.pending = append(r.pending, s.arm(r, orderID, domain.NotificationEarlyReminder, fireAt.Add(-EarlyLead), until-EarlyLead, early))
	}
	s.mu.Unlock()

	s.lg.Info("reminder_scheduled", map[string]any{"order_id": orderID, "fires_at": fireAt, "timers": len(r.pending)})
	return nil
}

// CancelNotification stops every pending timer for orderID.
func (s *NotificatorService) CancelNotification(orderID string) {
	s.mu.Lock()
	s.cancelLocked(orderID)
	s.mu.Unlock()
}

// CancelAll stops every pending timer. Used when the page goes away.
func (s *NotificatorService) CancelAll() {
	s.mu.Lock()
	for id := range s.orders {
		s.cancelLocked(id)
	}
	s.mu.Unlock()
}

func (s *NotificatorService) State(orderID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.orders[orderID]
	if !ok {
		return StateUnarmed
	}
	return r.state
}

func (s *NotificatorService) Pending(orderID string) []domain.ScheduledNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.orders[orderID]
	if !ok {
		return nil
	}
	out := make([]domain.ScheduledNotification, 0, len(r.pending))
	for _, a := range r.pending {
		out = append(out, a.note)
	}
	return out
}

// PendingAll lists every armed notification of this page.
func (s *NotificatorService) PendingAll() []domain.ScheduledNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ScheduledNotification
	for _, r := range s.orders {
		for _, a := range r.pending {
			out = append(out, a.note)
		}
	}
	return out
}

func (s *NotificatorService) Registered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registered
}

func (s *NotificatorService) Permission() Permission { return s.platform.Permission() }

func (s *NotificatorService) cancelLocked(orderID string) {
	r, ok := s.orders[orderID]
	if !ok || r.state != StateScheduled {
		return
	}
	for _, a := range r.pending {
		a.timer.Stop()
	}
	r.pending = nil
	r.state = StateCancelled
	s.lg.Debug("reminder_cancelled", map[string]any{"order_id": orderID})
}

func (s *NotificatorService) arm(r *reminder, orderID string, kind domain.NotificationKind, at time.Time, d time.Duration, n domain.Notification) armed {
	note := domain.ScheduledNotification{OrderID: orderID, FiresAt: at, Kind: kind}
	t := s.clock.AfterFunc(d, func() { s.fire(r, orderID, kind, n) })
	return armed{note: note, timer: t}
}

// fire acts only on the reminder that armed it. A timer that lost the race
// with a reschedule finds a different reminder under orderID and stops.
func (s *NotificatorService) fire(armedBy *reminder, orderID string, kind domain.NotificationKind, n domain.Notification) {
	s.mu.Lock()
	r, ok := s.orders[orderID]
	if !ok || r != armedBy || r.state != StateScheduled {
		s.mu.Unlock()
		return
	}
	kept := r.pending[:0]
	for _, a := range r.pending {
		if a.note.Kind != kind {
			kept = append(kept, a)
		}
	}
	r.pending = kept
	if kind == domain.NotificationReadyNow {
		r.state = StateFired
	}
	granted := s.platform.Permission() == PermissionGranted
	s.mu.Unlock()

	if granted {
		s.show(n)
	}
}

func (s *NotificatorService) payload(title, body, url string) domain.Notification {
	return domain.Notification{
		Title:              title,
		Body:               body,
		Icon:               s.cfg.Icon,
		Badge:              s.cfg.Badge,
		Tag:                notificationTag,
		RequireInteraction: true,
		Data:               domain.NotificationData{URL: url},
	}
}

func (s *NotificatorService) show(n domain.Notification) {
	if s.display == nil {
		return
	}
	if err := s.display.ShowNotification(n); err != nil {
		s.lg.Warn("notification_display_failed", err, map[string]any{"title": n.Title})
	}
}

// pickupInstant resolves "HH:MM" to that wall-clock time on now's date.
func pickupInstant(hhmm string, now time.Time) (time.Time, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid pickup time %q: %w", hhmm, err)
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, now.Location()), nil
}
