// Package service holds the account and task rules shared by the JSON API and the HTML pages.
package service

import (
	"context"

	"github.com/harrylevesque/primetrade/internal/models"
	"github.com/harrylevesque/primetrade/internal/utils"
	"github.com/harrylevesque/primetrade/internal/validation"
)

// UserRepository is the user storage the account service needs.
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash, name string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	UpdateProfile(ctx context.Context, id int64, name, email *string) (*models.Profile, error)
}

// TaskRepository is the task storage the task service needs.
type TaskRepository interface {
	List(ctx context.Context, userID int64, f models.TaskFilter) ([]*models.Task, error)
	Create(ctx context.Context, userID int64, title, description string, status models.TaskStatus) (*models.Task, error)
	Get(ctx context.Context, id, userID int64) (*models.Task, error)
	Update(ctx context.Context, id, userID int64, title, description string, status models.TaskStatus) (*models.Task, error)
	Delete(ctx context.Context, id, userID int64) error
}

// badRequest turns a validation failure into a 400 and passes other errors through.
func badRequest(err error) error {
	if msg, ok := validation.Message(err); ok {
		return utils.BadRequest(msg)
	}
	return err
}
