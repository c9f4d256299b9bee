package domain

// MessageType tags every message crossing the page/worker boundary.
type MessageType string

const (
	// page -> worker
	MsgAdminSettingsChanged MessageType = "ADMIN_SETTINGS_CHANGED"
	MsgShowNotification     MessageType = "SHOW_NOTIFICATION"

	// worker -> page
	MsgAdminSettingsUpdate MessageType = "ADMIN_SETTINGS_UPDATE"
	MsgNotification        MessageType = "NOTIFICATION"
)

// WorkerMessage is the envelope exchanged with the background worker.
// Settings is set on ADMIN_SETTINGS_CHANGED. Data carries AdminSettings for
// ADMIN_SETTINGS_UPDATE and Notification for SHOW_NOTIFICATION / NOTIFICATION.
type WorkerMessage struct {
	Type     MessageType    `json:"type"`
	Settings *AdminSettings `json:"settings,omitempty"`
	Data     any            `json:"data,omitempty"`
}

type NotificationData struct {
	URL string `json:"url"`
}

// Notification is the display payload handed to the notification surface.
type Notification struct {
	Title              string           `json:"title"`
	Body               string           `json:"body"`
	Icon               string           `json:"icon"`
	Badge              string           `json:"badge"`
	Tag                string           `json:"tag"`
	RequireInteraction bool             `json:"requireInteraction"`
	Data               NotificationData `json:"data"`
}
