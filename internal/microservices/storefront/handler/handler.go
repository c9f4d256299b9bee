package handler

import (
	"context"
	"net/http"
	"time"

	"cafeteria-storefront/internal/common/logger"
	"cafeteria-storefront/internal/menu"
	"cafeteria-storefront/internal/session"
	"cafeteria-storefront/internal/settings"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Catalog       *menu.Catalog
	Sessions      *session.Manager
	Settings      settings.ChannelInterface
	Health        map[string]HealthCheck
	Assets        http.Handler
	MaxConcurrent int
	Logger        *logger.Logger
	Now           func() time.Time
}

type Handler struct {
	Menu    *MenuHandler
	Session *SessionHandler
	Admin   *AdminHandler
	Page    *PageHandler

	health        map[string]HealthCheck
	assets        http.Handler
	maxConcurrent int
	lg            *logger.Logger
}

func New(d Deps) *Handler {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Handler{
		Menu:          NewMenuHandler(d.Catalog, d.Now),
		Session:       NewSessionHandler(d.Sessions, d.Settings, d.Logger),
		Admin:         NewAdminHandler(d.Settings, d.Logger),
		Page:          NewPageHandler(d.Sessions, d.Settings, d.Logger),
		health:        d.Health,
		assets:        d.Assets,
		maxConcurrent: d.MaxConcurrent,
		lg:            d.Logger,
	}
}

// Healthz runs every registered check. Any failure answers 503 with the
// failing dependencies listed.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range h.health {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
			h.lg.Warn("health_check_failed", err, map[string]any{"dependency": name})
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
