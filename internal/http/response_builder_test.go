package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"stephly/internal/auth"
	"stephly/internal/core"
	"stephly/internal/services"
	"stephly/internal/store"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{badRequest("oops"), http.StatusBadRequest},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("%w: expired", auth.ErrInvalidToken), http.StatusUnauthorized},
		{store.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("create user: %w", store.ErrConflict), http.StatusConflict},
		{services.ErrTodoAlreadyCompleted, http.StatusConflict},
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{auth.ErrWeakPassword, http.StatusUnprocessableEntity},
		{core.ErrEmptyMessage, http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteError_HidesInternalErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, httptest.NewRequest(http.MethodGet, "/x", nil), errors.New("pq: password authentication failed"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "internal server error" {
		t.Fatalf("internal error leaked: %q", body.Error)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestWriteError_Validation(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, httptest.NewRequest(http.MethodPost, "/x", nil), core.ErrEmptyTitle)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rr.Code)
	}
	var body errorBody
	_ = json.NewDecoder(rr.Body).Decode(&body)
	if body.Error != core.ErrEmptyTitle.Error() {
		t.Fatalf("error = %q", body.Error)
	}
}
