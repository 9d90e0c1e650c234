// Package http provides the JSON API server and its handlers.
//
// This file implements the JSON response helpers and the mapping from domain
// errors to HTTP status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"stephly/internal/auth"
	"stephly/internal/core"
	"stephly/internal/log"
	"stephly/internal/services"
	"stephly/internal/store"
)

// errorBody is the shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

var validationErrors = []error{
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrInvalidYear,
	core.ErrInvalidAmount,
	core.ErrEmptyTitle,
	core.ErrTitleTooLong,
	core.ErrEmptyCategory,
	core.ErrInvalidType,
	core.ErrInvalidEmail,
	core.ErrEmptyName,
	core.ErrInvalidInsightType,
	core.ErrInvalidRiskTolerance,
	core.ErrEmptyMessage,
	auth.ErrWeakPassword,
}

// errorStatus maps a service error to its HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, services.ErrTodoAlreadyCompleted):
		return http.StatusConflict
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// writeError maps err to a status and writes it. Internal errors are logged
// and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		msg = "internal server error"
	case http.StatusConflict:
		if errors.Is(err, store.ErrConflict) {
			msg = "already exists"
		}
	case http.StatusNotFound:
		msg = "not found"
	}
	writeErrorMessage(w, status, msg)
}
