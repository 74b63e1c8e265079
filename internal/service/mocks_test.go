package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/harrylevesque/primetrade/internal/models"
)

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) Create(ctx context.Context, email, passwordHash, name string) (*models.User, error) {
	args := m.Called(ctx, email, passwordHash, name)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUsers) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	args := m.Called(ctx, email, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockUsers) UpdateProfile(ctx context.Context, id int64, name, email *string) (*models.Profile, error) {
	args := m.Called(ctx, id, name, email)
	p, _ := args.Get(0).(*models.Profile)
	return p, args.Error(1)
}

type mockTasks struct {
	mock.Mock
}

func (m *mockTasks) List(ctx context.Context, userID int64, f models.TaskFilter) ([]*models.Task, error) {
	args := m.Called(ctx, userID, f)
	tasks, _ := args.Get(0).([]*models.Task)
	return tasks, args.Error(1)
}

func (m *mockTasks) Create(ctx context.Context, userID int64, title, description string, status models.TaskStatus) (*models.Task, error) {
	args := m.Called(ctx, userID, title, description, status)
	t, _ := args.Get(0).(*models.Task)
	return t, args.Error(1)
}

func (m *mockTasks) Get(ctx context.Context, id, userID int64) (*models.Task, error) {
	args := m.Called(ctx, id, userID)
	t, _ := args.Get(0).(*models.Task)
	return t, args.Error(1)
}

func (m *mockTasks) Update(ctx context.Context, id, userID int64, title, description string, status models.TaskStatus) (*models.Task, error) {
	args := m.Called(ctx, id, userID, title, description, status)
	t, _ := args.Get(0).(*models.Task)
	return t, args.Error(1)
}

func (m *mockTasks) Delete(ctx context.Context, id, userID int64) error {
	return m.Called(ctx, id, userID).Error(0)
}
