package service

import (
	"context"
	"errors"
	"strings"

	"github.com/harrylevesque/primetrade/internal/metrics"
	"github.com/harrylevesque/primetrade/internal/models"
	"github.com/harrylevesque/primetrade/internal/store"
	"github.com/harrylevesque/primetrade/internal/utils"
	"github.com/harrylevesque/primetrade/internal/validation"
)

const MsgTaskNotFound = "Task not found"

// TaskInput is a create or update payload. Nil fields were absent from the request.
type TaskInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (in TaskInput) description() string {
	if in.Description == nil {
		return ""
	}
	return strings.TrimSpace(*in.Description)
}

// TaskService applies the task rules for one user at a time.
type TaskService struct {
	tasks   TaskRepository
	metrics *metrics.Metrics
}

func NewTaskService(tasks TaskRepository, m *metrics.Metrics) *TaskService {
	return &TaskService{tasks: tasks, metrics: m}
}

// List returns the user's tasks matching f.
func (s *TaskService) List(ctx context.Context, userID int64, f models.TaskFilter) ([]*models.Task, error) {
	return s.tasks.List(ctx, userID, f.Normalize())
}

// Stats summarises a listing for the dashboard.
func (s *TaskService) Stats(tasks []*models.Task) models.TaskStats {
	return models.ComputeStats(tasks)
}

// Create adds a task. A missing or unknown status becomes pending.
func (s *TaskService) Create(ctx context.Context, userID int64, in TaskInput) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if err := validation.Struct(validation.Task{Title: title}); err != nil {
		return nil, badRequest(err)
	}

	status := models.StatusPending
	if in.Status != nil {
		if st, ok := models.ParseTaskStatus(*in.Status); ok {
			status = st
		}
	}

	task, err := s.tasks.Create(ctx, userID, title, in.description(), status)
	if err != nil {
		return nil, err
	}
	s.metrics.TaskOperations.WithLabelValues("create").Inc()
	return task, nil
}

// Get returns one of the user's tasks.
func (s *TaskService) Get(ctx context.Context, userID, id int64) (*models.Task, error) {
	task, err := s.tasks.Get(ctx, id, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return task, nil
}

// Update replaces a task. A missing status becomes pending; an unknown one is rejected.
func (s *TaskService) Update(ctx context.Context, userID, id int64, in TaskInput) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	status := ""
	if in.Status != nil {
		status = *in.Status
	}
	if err := validation.Struct(validation.Task{Title: title, Status: status}); err != nil {
		return nil, badRequest(err)
	}
	if status == "" {
		status = string(models.StatusPending)
	}

	task, err := s.tasks.Update(ctx, id, userID, title, in.description(), models.TaskStatus(status))
	if err != nil {
		return nil, notFound(err)
	}
	s.metrics.TaskOperations.WithLabelValues("update").Inc()
	return task, nil
}

// Delete removes one of the user's tasks.
func (s *TaskService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.tasks.Delete(ctx, id, userID); err != nil {
		return notFound(err)
	}
	s.metrics.TaskOperations.WithLabelValues("delete").Inc()
	return nil
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return utils.NotFound(MsgTaskNotFound)
	}
	return err
}
