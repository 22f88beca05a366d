// Package api holds what the HTTP handler packages share.
package api

import (
	"errors"
	"moodboard-server/core"
	"net/http"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error string         `json:"error"`
	Kind  core.ErrorKind `json:"kind,omitempty"`
}

// StatusFor maps an error to the HTTP status it is reported with.
func StatusFor(err error) int {
	if errors.Is(err, core.ErrNotFound) {
		return http.StatusNotFound
	}
	switch core.KindOf(err) {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindAuth:
		return http.StatusUnauthorized
	case core.KindGeneration, core.KindTransport:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// WriteError logs err and renders it as a JSON error body. Classified errors carry
// their own user-facing message; anything else is reported as fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := StatusFor(err)
	resp := ErrorResponse{Error: fallback}

	var classified *core.Error
	if errors.As(err, &classified) {
		resp.Error = classified.Message
		resp.Kind = classified.Kind
	} else if status == http.StatusNotFound {
		resp.Error = err.Error()
	}

	entry := logrus.WithFields(logrus.Fields{
		"error":  err,
		"path":   r.URL.Path,
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error(fallback)
	} else {
		entry.Warn(fallback)
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}
