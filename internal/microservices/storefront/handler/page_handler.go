package handler

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"cafeteria-storefront/internal/common/logger"
	"cafeteria-storefront/internal/domain"
	"cafeteria-storefront/internal/session"
	"cafeteria-storefront/internal/settings"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// PageHandler is the page end of the background worker channel.
type PageHandler struct {
	sessions *session.Manager
	settings settings.ChannelInterface
	lg       *logger.Logger
}

func NewPageHandler(m *session.Manager, s settings.ChannelInterface, lg *logger.Logger) *PageHandler {
	return &PageHandler{sessions: m, settings: s, lg: lg}
}

// Connect upgrades to a websocket. Worker messages for the session are
// written as JSON; JSON frames from the page are posted to the worker.
func (h *PageHandler) Connect(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "sid"))
	if err != nil {
		fail(w, h.lg, "session_lookup_failed", err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the request
		h.lg.Warn("ws_upgrade_failed", err, map[string]any{"session_id": s.ID})
		return
	}
	client := s.Connect()
	lg := h.lg.With(map[string]any{"session_id": s.ID})
	lg.Debug("ws_connected", nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer conn.Close()
		current := h.settings.Current()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(domain.WorkerMessage{Type: domain.MsgAdminSettingsUpdate, Data: current}); err != nil {
			return
		}
		for msg := range client.Messages() {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				lg.Debug("ws_write_failed", map[string]any{"error": err.Error()})
				return
			}
		}
	}()

	conn.SetReadLimit(maxFrameSize)
	for {
		var msg domain.WorkerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type == domain.MsgAdminSettingsChanged {
			// pages only signal; the broadcast carries the authoritative value
			current := h.settings.Current()
			msg.Settings = &current
		}
		if err := client.Post(msg); err != nil {
			lg.Warn("ws_post_failed", err, map[string]any{"type": msg.Type})
			break
		}
	}
	client.Close()
	<-done
	lg.Debug("ws_disconnected", nil)
}

// OrderRedirect is the notification click target.
func (h *PageHandler) OrderRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/?order="+url.QueryEscape(chi.URLParam(r, "orderID")), http.StatusFound)
}
