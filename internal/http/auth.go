package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"stephly/internal/auth"
	"stephly/internal/log"
	"stephly/internal/services"
)

type contextKey string

const userIDKey contextKey = "user_id"

// authenticate requires a valid bearer token and stores the user ID in the
// request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeErrorMessage(w, http.StatusUnauthorized, err.Error())
			return
		}
		claims, err := s.issuer.Parse(token)
		if err != nil {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Rejected token", log.FieldError, err)
			writeErrorMessage(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, claims.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID returns the authenticated user. Only valid behind authenticate.
func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      userView  `json:"user"`
}

func newSessionResponse(sess services.Session) sessionResponse {
	return sessionResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.UTC(),
		User:      newUserView(sess.User),
	}
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.svc.Users.SignUp(r.Context(), sanitizeInput(req.Name), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.svc.Users.SignIn(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

type profileRequest struct {
	Name              *string `json:"name"`
	PreferredCurrency *string `json:"preferredCurrency"`
	MonthlyIncome     Amount  `json:"monthlyIncome"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.Users.GetProfile(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(u))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	upd := services.ProfileUpdate{Name: req.Name, PreferredCurrency: req.PreferredCurrency}
	if req.MonthlyIncome.IsSet() {
		income, err := req.MonthlyIncome.Money(true)
		if err != nil {
			writeError(w, r, err)
			return
		}
		upd.MonthlyIncome = &income
	}
	u, err := s.svc.Users.UpdateProfile(r.Context(), userID(r), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// income feeds the analytics summary
	s.invalidateUser(u.ID)
	writeJSON(w, http.StatusOK, newUserView(u))
}
