package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cafeteria-storefront/internal/common/logger"
)

func Router(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.lg))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Get("/orders/{orderID}", h.Page.OrderRedirect)

	r.Route("/api", func(r chi.Router) {
		// long-lived, must not hold a throttle slot
		r.Get("/sessions/{sid}/ws", h.Page.Connect)

		r.Group(func(r chi.Router) {
			if h.maxConcurrent > 0 {
				r.Use(middleware.Throttle(h.maxConcurrent))
			}
			r.Use(middleware.NoCache)

			r.Get("/menu", h.Menu.List)
			r.Get("/menu/categories", h.Menu.Categories)
			r.Get("/settings", h.Admin.Current)

			r.Post("/sessions", h.Session.Open)
			r.Route("/sessions/{sid}", func(r chi.Router) {
				r.Delete("/", h.Session.Close)
				r.Get("/cart", h.Session.GetCart)
				r.Post("/cart/items", h.Session.AddItem)
				r.Patch("/cart/items/{itemID}", h.Session.UpdateItem)
				r.Delete("/cart/items/{itemID}", h.Session.RemoveItem)
				r.Get("/discount", h.Session.Discount)
				r.Post("/checkout", h.Session.Checkout)
				r.Get("/orders", h.Session.Orders)
				r.Delete("/orders/{orderID}/reminder", h.Session.CancelReminder)
				r.Get("/notifications", h.Session.Notifications)
				r.Post("/notifications/permission", h.Session.Permission)
			})

			r.Post("/admin/login", h.Admin.Login)
			r.Put("/admin/settings", h.Admin.Update)
		})
	})

	if h.assets != nil {
		r.Handle("/*", h.assets)
	}
	return r
}

func requestLogger(lg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			lg.Info("http_request", map[string]any{
				"request_id":  middleware.GetReqID(r.Context()),
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}
