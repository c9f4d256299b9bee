package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cafeteria-storefront/internal/cart"
	"cafeteria-storefront/internal/common/logger"
	"cafeteria-storefront/internal/discount"
	"cafeteria-storefront/internal/domain"
)

// ErrDeliveryFailed wraps every relay failure: non-2xx answers and transport errors.
var ErrDeliveryFailed = errors.New("order delivery failed")

// ValidationError blocks a submission before anything reaches the network.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Reason }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Relay forwards the formatted order text to staff.
type Relay interface {
	Send(ctx context.Context, text string) error
}

// HistoryWriter persists successfully delivered orders.
type HistoryWriter interface {
	SaveOrder(ctx context.Context, rec domain.OrderRecord) (domain.OrderRecord, error)
}

type OrderServiceInterface interface {
	Submit(ctx context.Context, req SubmitRequest) (domain.OrderRecord, error)
}

type SubmitRequest struct {
	Lines           []domain.CartLine
	CustomerName    string
	IsTakeaway      bool
	PickupTime      string
	DiscountPercent int
}

type OrderService struct {
	relay    Relay
	history  HistoryWriter
	currency string
	lg       *logger.Logger

	now   func() time.Time
	newID func() string
}

func NewOrderService(relay Relay, history HistoryWriter, currency string, lg *logger.Logger) *OrderService {
	return &OrderService{
		relay:    relay,
		history:  history,
		currency: currency,
		lg:       lg,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// Submit makes at most one delivery attempt. Nothing is retried or queued.
func (s *OrderService) Submit(ctx context.Context, req SubmitRequest) (domain.OrderRecord, error) {
	// 1. Boundary validation
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return domain.OrderRecord{}, &ValidationError{Field: "customer_name", Reason: "is required"}
	}
	pickup := strings.TrimSpace(req.PickupTime)
	if pickup == "" {
		return domain.OrderRecord{}, &ValidationError{Field: "pickup_time", Reason: "is required"}
	}
	if len(req.Lines) == 0 {
		return domain.OrderRecord{}, &ValidationError{Field: "items", Reason: "cart is empty"}
	}
	for _, l := range req.Lines {
		if l.Quantity <= 0 {
			return domain.OrderRecord{}, &ValidationError{Field: "items", Reason: fmt.Sprintf("invalid quantity for %s", l.Name)}
		}
	}
	if !discount.Valid(req.DiscountPercent) {
		return domain.OrderRecord{}, &ValidationError{Field: "discount_percent", Reason: fmt.Sprintf("unsupported value %d", req.DiscountPercent)}
	}

	// 2. Totals
	subtotal := cart.Subtotal(req.Lines)
	total := discount.Apply(subtotal, req.DiscountPercent)

	// 3. Message
	text := FormatMessage(MessageInput{
		CustomerName:    name,
		IsTakeaway:      req.IsTakeaway,
		PickupTime:      pickup,
		Summary:         FormatSummary(req.Lines),
		DiscountPercent: req.DiscountPercent,
		Total:           total,
		Currency:        s.currency,
	})

	// 4. Relay
	if err := s.relay.Send(ctx, text); err != nil {
		s.lg.Error("order_delivery_failed", err, map[string]any{"customer_name": name})
		return domain.OrderRecord{}, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	// 5. Record + history
	items := make([]domain.CartLine, len(req.Lines))
	copy(items, req.Lines)
	rec := domain.OrderRecord{
		ID:              s.newID(),
		CustomerName:    name,
		IsTakeaway:      req.IsTakeaway,
		PickupTime:      pickup,
		Items:           items,
		OrderedAt:       s.now().UTC(),
		Total:           total,
		DiscountPercent: req.DiscountPercent,
	}
	if s.history != nil {
		saved, err := s.history.SaveOrder(ctx, rec)
		if err != nil {
			// the order already reached staff; losing the local copy is not a failure
			s.lg.Error("order_history_save_failed", err, map[string]any{"order_id": rec.ID})
		} else {
			rec = saved
		}
	}

	s.lg.Info("order_submitted", map[string]any{
		"order_id": rec.ID, "items": len(rec.Items), "total": rec.Total.StringFixed(2), "discount": rec.DiscountPercent,
	})
	return rec, nil
}
