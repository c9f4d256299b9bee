package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"cafeteria-storefront/internal/cart"
	"cafeteria-storefront/internal/common/logger"
	"cafeteria-storefront/internal/discount"
	"cafeteria-storefront/internal/domain"
	"cafeteria-storefront/internal/menu"
	notifyservice "cafeteria-storefront/internal/microservices/notificator/service"
	orderrepo "cafeteria-storefront/internal/microservices/order/repository"
	orderservice "cafeteria-storefront/internal/microservices/order/service"
	"cafeteria-storefront/internal/worker"
)

var (
	ErrSubmissionInFlight = errors.New("an order is already being submitted")
	ErrUnknownItem        = errors.New("menu item not found")
)

// Session is one browser page: its cart, order history, reminders and
// worker connection. Cart and checkout state are guarded by mu.
type Session struct {
	ID string

	lg       *logger.Logger
	catalog  *menu.Catalog
	history  orderrepo.OrderHistoryInterface
	orders   orderservice.OrderServiceInterface
	notify   notifyservice.NotificatorServiceInterface
	platform *notifyservice.BrowserPlatform
	worker   *worker.Worker
	port     worker.Port

	mu       sync.Mutex
	cart     *cart.Cart
	inFlight bool
	lastSeen time.Time
}

// AddItem adds one unit of itemID. accepted is false when the cafeteria is
// closed; the cart is then unchanged.
func (s *Session) AddItem(itemID string) (domain.CartResponse, error) {
	item, ok := s.catalog.Get(itemID)
	if !ok {
		return domain.CartResponse{}, ErrUnknownItem
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	accepted := s.cart.AddItem(item)
	resp := s.cartLocked()
	resp.Accepted = &accepted
	return resp, nil
}

// UpdateItem changes quantity and/or notes of a line. Quantity <= 0 removes it.
func (s *Session) UpdateItem(itemID string, quantity *int, notes *string) domain.CartResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if notes != nil {
		s.cart.UpdateNotes(itemID, *notes)
	}
	if quantity != nil {
		s.cart.UpdateQuantity(itemID, *quantity)
	}
	return s.cartLocked()
}

func (s *Session) RemoveItem(itemID string) domain.CartResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.RemoveItem(itemID)
	return s.cartLocked()
}

func (s *Session) Cart() domain.CartResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartLocked()
}

func (s *Session) cartLocked() domain.CartResponse {
	return domain.CartResponse{
		Items:     s.cart.Lines(),
		ItemCount: s.cart.ItemCount(),
		Subtotal:  s.cart.Subtotal(),
	}
}

// Discount previews code against the current cart.
func (s *Session) Discount(code string) domain.DiscountResponse {
	s.mu.Lock()
	sub := s.cart.Subtotal()
	s.mu.Unlock()
	pct := discount.Resolve(code)
	return domain.DiscountResponse{Code: code, Percent: pct, Subtotal: sub, Total: discount.Apply(sub, pct)}
}

// Checkout submits the cart. Only one submission per session runs at a time.
// Once staff received it the submitted lines leave the cart and a pickup
// reminder is scheduled; items added meanwhile stay for the next order.
func (s *Session) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return domain.CheckoutResponse{}, ErrSubmissionInFlight
	}
	s.inFlight = true
	lines := s.cart.Lines()
	s.mu.Unlock()

	rec, err := s.orders.Submit(ctx, orderservice.SubmitRequest{
		Lines:           lines,
		CustomerName:    req.CustomerName,
		IsTakeaway:      req.IsTakeaway,
		PickupTime:      req.PickupTime,
		DiscountPercent: discount.Resolve(req.DiscountCode),
	})

	s.mu.Lock()
	s.inFlight = false
	if err == nil {
		s.cart.Deduct(lines)
	}
	s.mu.Unlock()
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	if err := s.notify.SchedulePickupReminder(rec.PickupTime, rec.ID, rec.CustomerName); err != nil {
		s.lg.Warn("reminder_schedule_failed", err, map[string]any{"order_id": rec.ID})
	}
	return domain.CheckoutResponse{
		Order:             rec,
		ReminderScheduled: s.notify.State(rec.ID) != notifyservice.StateUnarmed,
	}, nil
}

// RecentOrders never fails: a broken store reads as an empty history.
func (s *Session) RecentOrders(ctx context.Context) []domain.OrderRecord {
	orders, err := s.history.GetRecentOrders(ctx)
	if err != nil {
		s.lg.Error("order_history_read_failed", err, nil)
		return []domain.OrderRecord{}
	}
	if orders == nil {
		orders = []domain.OrderRecord{}
	}
	return orders
}

func (s *Session) CancelReminder(orderID string) {
	s.notify.CancelNotification(orderID)
}

// ReportPermission records what the browser says about notifications and,
// when granted, confirms with a notification.
func (s *Session) ReportPermission(ctx context.Context, supported bool, perm notifyservice.Permission) bool {
	s.platform.Report(supported, perm)
	if !s.notify.Registered() {
		s.notify.Initialize(ctx)
	}
	return s.notify.RequestPermission(ctx)
}

func (s *Session) NotificationStatus() domain.NotificationStatusResponse {
	pending := s.notify.PendingAll()
	if pending == nil {
		pending = []domain.ScheduledNotification{}
	}
	return domain.NotificationStatusResponse{
		Permission: string(s.notify.Permission()),
		Registered: s.notify.Registered(),
		Pending:    pending,
	}
}

// Connect attaches a page client to the background worker.
func (s *Session) Connect() *worker.Client { return s.worker.Connect(s.ID) }

// Post sends a page message to the background worker.
func (s *Session) Post(msg domain.WorkerMessage) error { return s.port.Post(msg) }

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.notify.CancelAll()
}
