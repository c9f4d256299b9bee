package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryBreakfast Category = "Breakfast"
	CategoryLunch     Category = "Lunch"
	CategoryDinner    Category = "Dinner"
	CategoryDrinks    Category = "Drinks"
)

// Categories in menu display order.
var Categories = []Category{CategoryBreakfast, CategoryLunch, CategoryDinner, CategoryDrinks}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type MenuItem struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Category      Category        `json:"category"`
	TimeAvailable string          `json:"time_available"`
	Description   string          `json:"description"`
}

type CartLine struct {
	MenuItem
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

// LineTotal is price*quantity for one cart line.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type OrderRecord struct {
	ID              string          `json:"id"`
	CustomerName    string          `json:"customer_name"`
	IsTakeaway      bool            `json:"is_takeaway"`
	PickupTime      string          `json:"pickup_time"` // HH:MM, local
	Items           []CartLine      `json:"items"`
	OrderedAt       time.Time       `json:"ordered_at"`
	Total           decimal.Decimal `json:"total"`
	DiscountPercent int             `json:"discount_percent"`
}

type AdminSettings struct {
	IsOpen  bool   `json:"is_open"`
	Message string `json:"message"`
	// AuthorizedIPs is kept for compatibility with stored settings; it never grants access.
	AuthorizedIPs []string `json:"authorized_ips"`
}

func (s AdminSettings) Equal(o AdminSettings) bool {
	if s.IsOpen != o.IsOpen || s.Message != o.Message || len(s.AuthorizedIPs) != len(o.AuthorizedIPs) {
		return false
	}
	for i := range s.AuthorizedIPs {
		if s.AuthorizedIPs[i] != o.AuthorizedIPs[i] {
			return false
		}
	}
	return true
}

type NotificationKind string

const (
	NotificationEarlyReminder NotificationKind = "early_reminder"
	NotificationReadyNow      NotificationKind = "ready_now"
)

type ScheduledNotification struct {
	OrderID string           `json:"order_id"`
	FiresAt time.Time        `json:"fires_at"`
	Kind    NotificationKind `json:"kind"`
}
