package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrylevesque/primetrade/internal/auth"
	"github.com/harrylevesque/primetrade/internal/metrics"
	"github.com/harrylevesque/primetrade/internal/models"
	"github.com/harrylevesque/primetrade/internal/store"
	"github.com/harrylevesque/primetrade/internal/utils"
	"github.com/harrylevesque/primetrade/internal/validation"
)

const (
	MsgUserExists         = "User already exists"
	MsgInvalidCredentials = "Invalid credentials"
	MsgUserNotFound       = "User not found"
	MsgEmailInUse         = "Email already in use"
	MsgNoFieldsToUpdate   = "No fields to update"
	MsgWrongPassword      = "Current password is incorrect"
)

// SignupInput is a registration request.
type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginInput is a sign-in request.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult carries the issued session.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.PublicUser
}

// ProfileUpdate changes the fields that are non-nil. A non-nil CurrentPassword must match.
type ProfileUpdate struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	CurrentPassword *string `json:"currentPassword"`
}

// AccountService registers users, signs them in and out and edits profiles.
type AccountService struct {
	users      UserRepository
	tokens     *auth.TokenManager
	bcryptCost int
	metrics    *metrics.Metrics
	logger     utils.Logger
}

func NewAccountService(users UserRepository, tokens *auth.TokenManager, bcryptCost int, m *metrics.Metrics, logger utils.Logger) *AccountService {
	return &AccountService{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		metrics:    m,
		logger:     logger.WithPrefix("account"),
	}
}

// Signup creates an account and returns its profile.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*models.Profile, error) {
	email := validation.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if err := validation.Struct(validation.Signup{Email: email, Password: in.Password, Name: name}); err != nil {
		return nil, badRequest(err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, utils.BadRequest(MsgUserExists)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, email, hash, name)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return nil, utils.BadRequest(MsgUserExists)
		}
		return nil, err
	}

	s.metrics.Signups.Inc()
	s.logger.Info("user signed up", map[string]interface{}{"user_id": user.ID})
	return user.Profile(), nil
}

// Login checks the credentials and issues a session token.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := validation.NormalizeEmail(in.Email)
	if err := validation.Struct(validation.Login{Email: email, Password: in.Password}); err != nil {
		return nil, badRequest(err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.Logins.WithLabelValues("failure").Inc()
			return nil, utils.Unauthorized(MsgInvalidCredentials)
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(in.Password, user.PasswordHash) {
		s.metrics.Logins.WithLabelValues("failure").Inc()
		return nil, utils.Unauthorized(MsgInvalidCredentials)
	}

	token, claims, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	s.metrics.Logins.WithLabelValues("success").Inc()
	s.logger.Info("login succeeded", map[string]interface{}{"email": user.Email})
	return &LoginResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user.Public(),
	}, nil
}

// Logout revokes the session described by claims. A nil claims is a no-op.
func (s *AccountService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return nil
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return err
	}
	s.metrics.Logouts.Inc()
	return nil
}

// Profile returns the user's public profile.
func (s *AccountService) Profile(ctx context.Context, userID int64) (*models.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, utils.NotFound(MsgUserNotFound)
		}
		return nil, err
	}
	return user.Profile(), nil
}

// UpdateProfile applies a partial profile change.
func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, in ProfileUpdate) (*models.Profile, error) {
	if in.Name == nil && in.Email == nil {
		return nil, utils.BadRequest(MsgNoFieldsToUpdate)
	}

	var name, email *string
	if in.Name != nil {
		if err := validation.ProfileName(*in.Name); err != nil {
			return nil, badRequest(err)
		}
		trimmed := strings.TrimSpace(*in.Name)
		name = &trimmed
	}
	if in.Email != nil {
		normalized := validation.NormalizeEmail(*in.Email)
		if err := validation.Email(normalized); err != nil {
			return nil, badRequest(err)
		}
		taken, err := s.users.EmailTaken(ctx, normalized, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, utils.BadRequest(MsgEmailInUse)
		}
		email = &normalized
	}

	if in.CurrentPassword != nil {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, utils.NotFound(MsgUserNotFound)
			}
			return nil, err
		}
		if !auth.CheckPasswordHash(*in.CurrentPassword, user.PasswordHash) {
			return nil, utils.BadRequest(MsgWrongPassword)
		}
	}

	profile, err := s.users.UpdateProfile(ctx, userID, name, email)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, utils.NotFound(MsgUserNotFound)
		case errors.Is(err, store.ErrEmailTaken):
			return nil, utils.BadRequest(MsgEmailInUse)
		}
		return nil, err
	}
	return profile, nil
}
