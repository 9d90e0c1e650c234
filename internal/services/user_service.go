package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stephly/internal/auth"
	"stephly/internal/core"
	"stephly/internal/log"
	"stephly/internal/store"
)

// Session is returned by SignUp and SignIn.
type Session struct {
	User      core.UserProfile
	Token     string
	ExpiresAt time.Time
}

// ProfileUpdate carries the editable profile fields; nil leaves a field as is.
type ProfileUpdate struct {
	Name              *string
	PreferredCurrency *string
	MonthlyIncome     *core.Money
}

type UserService struct {
	users  store.UserRepository
	issuer *auth.Issuer
	logger *log.Logger
}

func NewUserService(users store.UserRepository, issuer *auth.Issuer, logger *log.Logger) *UserService {
	if logger == nil {
		logger = log.Discard()
	}
	return &UserService{
		users:  users,
		issuer: issuer,
		logger: logger.WithComponent(log.ComponentUser),
	}
}

// SignUp creates a profile with default currency and zero income and signs
// the user in.
func (s *UserService) SignUp(ctx context.Context, name, email, password string) (Session, error) {
	u := core.UserProfile{
		Name:              strings.TrimSpace(name),
		Email:             core.NormalizeEmail(email),
		PreferredCurrency: core.DefaultPreferredCurrency,
	}
	if err := u.Validate(); err != nil {
		return Session{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, err
	}
	u.PasswordHash = hash

	created, err := s.users.CreateUser(ctx, u)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "User signed up", log.FieldUserID, created.ID)
	return s.session(created)
}

func (s *UserService) SignIn(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, auth.ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		s.logger.WarnContext(ctx, "Failed sign in", log.FieldUserID, u.ID)
		return Session{}, auth.ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *UserService) session(u core.UserProfile) (Session, error) {
	token, err := s.issuer.Issue(u.ID, u.Email)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{User: u, Token: token, ExpiresAt: time.Now().Add(s.issuer.TTL())}, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID int64) (core.UserProfile, error) {
	return s.users.GetUser(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (core.UserProfile, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return core.UserProfile{}, err
	}
	if upd.Name != nil {
		u.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.PreferredCurrency != nil {
		u.PreferredCurrency = strings.ToUpper(strings.TrimSpace(*upd.PreferredCurrency))
	}
	if upd.MonthlyIncome != nil {
		u.MonthlyIncome = *upd.MonthlyIncome
	}
	if err := u.Validate(); err != nil {
		return core.UserProfile{}, err
	}
	return s.users.UpdateUser(ctx, u)
}
