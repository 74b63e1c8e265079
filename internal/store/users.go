package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/harrylevesque/primetrade/internal/models"
)

const uniqueViolation = "23505"

// UserStore handles user data access.
type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Create inserts a user. The email must already be normalized.
func (s *UserStore) Create(ctx context.Context, email, passwordHash, name string) (*models.User, error) {
	var u models.User
	query := `
		INSERT INTO users (email, password, name)
		VALUES ($1, $2, $3)
		RETURNING id, email, password, name, created_at`

	if err := s.db.GetContext(ctx, &u, query, email, passwordHash, name); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &u, nil
}

// GetByEmail loads a user including the password hash.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	query := `SELECT id, email, password, name, created_at FROM users WHERE email = $1`

	if err := s.db.GetContext(ctx, &u, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

// GetByID loads a user including the password hash.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	query := `SELECT id, email, password, name, created_at FROM users WHERE id = $1`

	if err := s.db.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// EmailTaken reports whether another account than excludeID uses email.
func (s *UserStore) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	var taken bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND id <> $2)`

	if err := s.db.GetContext(ctx, &taken, query, email, excludeID); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return taken, nil
}

// UpdateProfile sets the non-nil fields in one statement and returns the new profile.
func (s *UserStore) UpdateProfile(ctx context.Context, id int64, name, email *string) (*models.Profile, error) {
	var (
		sets []string
		args []interface{}
	)
	if name != nil {
		args = append(args, *name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if email != nil {
		args = append(args, *email)
		sets = append(sets, fmt.Sprintf("email = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil, errors.New("no fields to update")
	}
	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE users SET %s
		WHERE id = $%d
		RETURNING id, email, name, created_at`, strings.Join(sets, ", "), len(args))

	var p models.Profile
	if err := s.db.GetContext(ctx, &p, query, args...); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		case isUniqueViolation(err):
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return &p, nil
}

// Count returns the number of registered users.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// List returns every user's public profile ordered by id.
func (s *UserStore) List(ctx context.Context) ([]*models.Profile, error) {
	var profiles []*models.Profile
	query := `SELECT id, email, name, created_at FROM users ORDER BY id`
	if err := s.db.SelectContext(ctx, &profiles, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return profiles, nil
}
