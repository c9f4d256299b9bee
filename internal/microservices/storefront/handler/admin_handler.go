package handler

import (
	"net/http"

	"cafeteria-storefront/internal/common/logger"
	"cafeteria-storefront/internal/domain"
	"cafeteria-storefront/internal/settings"
)

type AdminHandler struct {
	settings settings.ChannelInterface
	lg       *logger.Logger
}

func NewAdminHandler(s settings.ChannelInterface, lg *logger.Logger) *AdminHandler {
	return &AdminHandler{settings: s, lg: lg}
}

// Current is public: every page needs isOpen and the banner message.
func (h *AdminHandler) Current(w http.ResponseWriter, _ *http.Request) {
	s := h.settings.Current()
	writeJSON(w, http.StatusOK, map[string]any{"is_open": s.IsOpen, "message": s.Message})
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.AdminLoginRequest
	if err := decode(w, r, &req, false); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if !h.settings.Authenticate(req.Password) {
		h.lg.Warn("admin_login_failed", nil, map[string]any{"remote": r.RemoteAddr})
		writeProblem(w, http.StatusUnauthorized, "unauthorized", "incorrect password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "settings": h.settings.Current()})
}

func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.AdminSettingsRequest
	if err := decode(w, r, &req, false); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	s, err := h.settings.Update(r.Context(), req.Password, req.IsOpen, req.Message)
	if err != nil {
		fail(w, h.lg, "admin_update_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
