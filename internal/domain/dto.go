package domain

import "github.com/shopspring/decimal"

type SessionResponse struct {
	SessionID         string `json:"session_id"`
	NotificationsOn   bool   `json:"notifications_on"`
	NotificationState string `json:"notification_permission"`
}

type OpenSessionRequest struct {
	SessionID         string `json:"session_id,omitempty"`
	NotificationsAPI  bool   `json:"notifications_supported"`
	CurrentPermission string `json:"permission,omitempty"`
}

type AddCartItemRequest struct {
	ItemID string `json:"item_id"`
}

type UpdateCartItemRequest struct {
	Quantity *int    `json:"quantity,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

type CartResponse struct {
	Items     []CartLine      `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Accepted  *bool           `json:"accepted,omitempty"`
	Notice    string          `json:"notice,omitempty"`
}

type DiscountResponse struct {
	Code     string          `json:"code"`
	Percent  int             `json:"percent"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Total    decimal.Decimal `json:"total"`
}

type CheckoutRequest struct {
	CustomerName string `json:"customer_name"`
	IsTakeaway   bool   `json:"is_takeaway"`
	PickupTime   string `json:"pickup_time"`
	DiscountCode string `json:"discount_code"`
}

type CheckoutResponse struct {
	Order             OrderRecord `json:"order"`
	ReminderScheduled bool        `json:"reminder_scheduled"`
}

type PermissionRequest struct {
	Permission string `json:"permission"`
	Supported  *bool  `json:"supported,omitempty"`
}

type NotificationStatusResponse struct {
	Permission string                  `json:"permission"`
	Registered bool                    `json:"registered"`
	Pending    []ScheduledNotification `json:"pending"`
}

type AdminLoginRequest struct {
	Password string `json:"password"`
}

type AdminSettingsRequest struct {
	Password string  `json:"password"`
	IsOpen   *bool   `json:"is_open,omitempty"`
	Message  *string `json:"message,omitempty"`
}
