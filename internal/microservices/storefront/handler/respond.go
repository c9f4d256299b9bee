package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cafeteria-storefront/internal/common/logger"
	orderservice "cafeteria-storefront/internal/microservices/order/service"
	"cafeteria-storefront/internal/session"
	"cafeteria-storefront/internal/settings"
)

const maxBody = 1 << 20

// writeJSON sends v with the given status.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem is the single error shape (simplified RFC 7807 problem+json).
func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}

// decode reads a JSON body. An empty body leaves v untouched when optional.
func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// fail maps domain errors onto HTTP problems.
func fail(w http.ResponseWriter, lg *logger.Logger, action string, err error) {
	var verr *orderservice.ValidationError
	switch {
	case errors.As(err, &verr):
		writeProblem(w, http.StatusBadRequest, "validation_error", verr.Error())
	case errors.Is(err, orderservice.ErrDeliveryFailed):
		writeProblem(w, http.StatusBadGateway, "delivery_failed", "order failed, try again")
	case errors.Is(err, session.ErrSubmissionInFlight):
		writeProblem(w, http.StatusConflict, "submission_in_flight", err.Error())
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrUnknownItem):
		writeProblem(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, settings.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "unauthorized", err.Error())
	default:
		lg.Error(action, err, nil)
		writeProblem(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
