package models

import (
	"math"
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// TaskStatuses lists every valid status in display order.
var TaskStatuses = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Label is the human form of the status ("in progress").
func (s TaskStatus) Label() string {
	return strings.ReplaceAll(string(s), "-", " ")
}

// ParseTaskStatus returns the status named by s and whether it was valid.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	st := TaskStatus(s)
	return st, st.Valid()
}

// Task is a row of the tasks table.
type Task struct {
	ID          int64      `json:"id" db:"id"`
	UserID      int64      `json:"user_id" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Status      TaskStatus `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

const (
	SortCreatedAt = "created_at"
	SortUpdatedAt = "updated_at"
	SortTitle     = "title"
	SortStatus    = "status"

	OrderAsc  = "ASC"
	OrderDesc = "DESC"
)

// TaskFilter narrows and orders a task listing.
type TaskFilter struct {
	Search string
	Status string
	SortBy string
	Order  string
}

// Normalize replaces unknown sort fields and orders with the defaults
// (created_at, DESC). SortBy and Order are safe to splice into SQL afterwards.
func (f TaskFilter) Normalize() TaskFilter {
	switch f.SortBy {
	case SortCreatedAt, SortUpdatedAt, SortTitle, SortStatus:
	default:
		f.SortBy = SortCreatedAt
	}
	switch strings.ToUpper(f.Order) {
	case OrderAsc:
		f.Order = OrderAsc
	default:
		f.Order = OrderDesc
	}
	f.Search = strings.TrimSpace(f.Search)
	f.Status = strings.TrimSpace(f.Status)
	return f
}

// TaskStats summarises a task list for the dashboard.
type TaskStats struct {
	Total          int
	Pending        int
	InProgress     int
	Completed      int
	CompletionRate int
}

// ComputeStats counts tasks by status. CompletionRate is a rounded percentage.
func ComputeStats(tasks []*Task) TaskStats {
	var st TaskStats
	for _, t := range tasks {
		st.Total++
		switch t.Status {
		case StatusCompleted:
			st.Completed++
		case StatusInProgress:
			st.InProgress++
		default:
			st.Pending++
		}
	}
	if st.Total > 0 {
		st.CompletionRate = int(math.Round(float64(st.Completed) / float64(st.Total) * 100))
	}
	return st
}
