package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/harrylevesque/primetrade/internal/models"
)

const taskColumns = `id, user_id, title, description, status, created_at, updated_at`

// TaskStore handles task data access. Every statement is scoped by user_id.
type TaskStore struct {
	db *sqlx.DB
}

func NewTaskStore(db *sqlx.DB) *TaskStore {
	return &TaskStore{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s literally anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// buildListQuery returns the listing statement and its arguments. f must be normalized.
func buildListQuery(userID int64, f models.TaskFilter) (string, []interface{}) {
	var b strings.Builder
	args := []interface{}{userID}

	b.WriteString("SELECT " + taskColumns + " FROM tasks WHERE user_id = $1")
	if f.Search != "" {
		args = append(args, containsPattern(f.Search))
		fmt.Fprintf(&b, " AND (title ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		fmt.Fprintf(&b, " AND status = $%d", len(args))
	}
	// SortBy and Order come from a whitelist in TaskFilter.Normalize.
	fmt.Fprintf(&b, " ORDER BY %s %s, id %s", f.SortBy, f.Order, f.Order)
	return b.String(), args
}

// List returns the user's tasks matching f.
func (s *TaskStore) List(ctx context.Context, userID int64, f models.TaskFilter) ([]*models.Task, error) {
	query, args := buildListQuery(userID, f.Normalize())

	tasks := []*models.Task{}
	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Create inserts a task owned by userID.
func (s *TaskStore) Create(ctx context.Context, userID int64, title, description string, status models.TaskStatus) (*models.Task, error) {
	var t models.Task
	query := `
		INSERT INTO tasks (user_id, title, description, status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + taskColumns

	if err := s.db.GetContext(ctx, &t, query, userID, title, description, status); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &t, nil
}

// Get loads one task. Tasks of other users are reported as ErrNotFound.
func (s *TaskStore) Get(ctx context.Context, id, userID int64) (*models.Task, error) {
	var t models.Task
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`

	if err := s.db.GetContext(ctx, &t, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

// Update replaces title, description and status and bumps updated_at.
func (s *TaskStore) Update(ctx context.Context, id, userID int64, title, description string, status models.TaskStatus) (*models.Task, error) {
	var t models.Task
	query := `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, updated_at = NOW()
		WHERE id = $4 AND user_id = $5
		RETURNING ` + taskColumns

	if err := s.db.GetContext(ctx, &t, query, title, description, status, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return &t, nil
}

// Delete removes one task.
func (s *TaskStore) Delete(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
