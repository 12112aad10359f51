// Package api holds the response helpers shared by the HTTP handlers.
package api

import (
	"errors"
	"net/http"

	"carousel-studio/core"
	"carousel-studio/export"
	"carousel-studio/middleware"

	"github.com/go-chi/render"
)

// Error writes a JSON {"error": msg} body with status.
func Error(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// StatusFor maps a domain error onto an HTTP status code.
func StatusFor(err error) int {
	var expErr *core.ExportError
	switch {
	case errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrCapacityExceeded),
		errors.Is(err, core.ErrUnknownElement),
		errors.Is(err, core.ErrInvalidSlideIndex):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrCarouselNotFound),
		errors.Is(err, core.ErrTemplateNotFound),
		errors.Is(err, export.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrBusy),
		errors.Is(err, export.ErrJobNotReady):
		return http.StatusConflict
	case errors.Is(err, core.ErrNoSlots), errors.As(err, &expErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrGenerationFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// UserID returns the authenticated user or writes a 401 and returns false.
func UserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := middleware.UserID(r.Context())
	if id == "" {
		Error(w, r, http.StatusUnauthorized, "User claims not found")
		return "", false
	}
	return id, true
}
