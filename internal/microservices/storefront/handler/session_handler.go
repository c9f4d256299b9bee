package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"cafeteria-storefront/internal/common/logger"
	"cafeteria-storefront/internal/domain"
	notifyservice "cafeteria-storefront/internal/microservices/notificator/service"
	"cafeteria-storefront/internal/session"
	"cafeteria-storefront/internal/settings"
)

type SessionHandler struct {
	sessions *session.Manager
	settings settings.ChannelInterface
	lg       *logger.Logger
}

func NewSessionHandler(m *session.Manager, s settings.ChannelInterface, lg *logger.Logger) *SessionHandler {
	return &SessionHandler{sessions: m, settings: s, lg: lg}
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "sid"))
	if err != nil {
		fail(w, h.lg, "session_lookup_failed", err)
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req domain.OpenSessionRequest
	if err := decode(w, r, &req, true); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	s, created := h.sessions.Open(r.Context(), req)
	status := s.NotificationStatus()
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	writeJSON(w, code, domain.SessionResponse{
		SessionID:         s.ID,
		NotificationsOn:   status.Registered && status.Permission == string(notifyservice.PermissionGranted),
		NotificationState: status.Permission,
	})
}

func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Close(chi.URLParam(r, "sid")) {
		writeProblem(w, http.StatusNotFound, "not_found", session.ErrNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Cart())
}

// AddItem answers 200 even when the cafeteria is closed; accepted=false and
// the admin message tell the page why nothing changed.
func (h *SessionHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req domain.AddCartItemRequest
	if err := decode(w, r, &req, false); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	resp, err := s.AddItem(req.ItemID)
	if err != nil {
		fail(w, h.lg, "cart_add_failed", err)
		return
	}
	if resp.Accepted != nil && !*resp.Accepted {
		resp.Notice = h.settings.Current().Message
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req domain.UpdateCartItemRequest
	if err := decode(w, r, &req, false); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.UpdateItem(chi.URLParam(r, "itemID"), req.Quantity, req.Notes))
}

func (h *SessionHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.RemoveItem(chi.URLParam(r, "itemID")))
}

func (h *SessionHandler) Discount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Discount(r.URL.Query().Get("code")))
}

func (h *SessionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req domain.CheckoutRequest
	if err := decode(w, r, &req, false); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	resp, err := s.Checkout(r.Context(), req)
	if err != nil {
		fail(w, h.lg, "checkout_failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *SessionHandler) Orders(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": s.RecentOrders(r.Context())})
}

func (h *SessionHandler) CancelReminder(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.CancelReminder(chi.URLParam(r, "orderID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.NotificationStatus())
}

// Permission records the outcome of the browser's permission prompt.
func (h *SessionHandler) Permission(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req domain.PermissionRequest
	if err := decode(w, r, &req, false); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	supported := true
	if req.Supported != nil {
		supported = *req.Supported
	}
	s.ReportPermission(r.Context(), supported, notifyservice.ParsePermission(req.Permission))
	writeJSON(w, http.StatusOK, s.NotificationStatus())
}
