package handler

import (
	"net/http"
	"time"

	"cafeteria-storefront/internal/domain"
	"cafeteria-storefront/internal/menu"
)

type MenuHandler struct {
	catalog *menu.Catalog
	now     func() time.Time
}

func NewMenuHandler(c *menu.Catalog, now func() time.Time) *MenuHandler {
	return &MenuHandler{catalog: c, now: now}
}

// List returns the menu, optionally filtered by ?category=.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	c := r.URL.Query().Get("category")
	if c == "" {
		writeJSON(w, http.StatusOK, map[string]any{"items": h.catalog.Items()})
		return
	}
	cat := domain.Category(c)
	if !cat.Valid() {
		writeProblem(w, http.StatusBadRequest, "unknown_category", "unknown category "+c)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": cat, "items": h.catalog.ByCategory(cat)})
}

// Categories lists the categories and the one to preselect at this hour.
func (h *MenuHandler) Categories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": h.catalog.Categories(),
		"current":    menu.DefaultCategory(h.now()),
	})
}
