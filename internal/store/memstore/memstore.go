// Package memstore is an in-process implementation of the user and task stores,
// used by handler tests and local demos without Postgres.
package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harrylevesque/primetrade/internal/models"
	"github.com/harrylevesque/primetrade/internal/store"
)

// Store keeps users and tasks in maps guarded by one mutex.
type Store struct {
	mu      sync.Mutex
	users   map[int64]*models.User
	tasks   map[int64]*models.Task
	userSeq int64
	taskSeq int64
	now     func() time.Time
}

func New() *Store {
	return &Store{
		users: make(map[int64]*models.User),
		tasks: make(map[int64]*models.Task),
		now:   time.Now,
	}
}

// Users returns the user store view.
func (s *Store) Users() *Users { return &Users{s: s} }

// Tasks returns the task store view.
func (s *Store) Tasks() *Tasks { return &Tasks{s: s} }

// nextID advances a per-table sequence like SERIAL does.
func nextID(seq *int64) int64 {
	*seq++
	return *seq
}

// Users implements the user repository.
type Users struct{ s *Store }

func (u *Users) Create(_ context.Context, email, passwordHash, name string) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, existing := range u.s.users {
		if existing.Email == email {
			return nil, store.ErrEmailTaken
		}
	}
	user := &models.User{ID: nextID(&u.s.userSeq), Email: email, PasswordHash: passwordHash, Name: name, CreatedAt: u.s.now()}
	u.s.users[user.ID] = user
	cp := *user
	return &cp, nil
}

func (u *Users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, user := range u.s.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (u *Users) GetByID(_ context.Context, id int64) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (u *Users) EmailTaken(_ context.Context, email string, excludeID int64) (bool, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, user := range u.s.users {
		if user.Email == email && user.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (u *Users) UpdateProfile(_ context.Context, id int64, name, email *string) (*models.Profile, error) {
	if name == nil && email == nil {
		return nil, errors.New("no fields to update")
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if email != nil {
		for _, other := range u.s.users {
			if other.Email == *email && other.ID != id {
				return nil, store.ErrEmailTaken
			}
		}
		user.Email = *email
	}
	if name != nil {
		user.Name = *name
	}
	return user.Profile(), nil
}

// Tasks implements the task repository.
type Tasks struct{ s *Store }

func (t *Tasks) List(_ context.Context, userID int64, f models.TaskFilter) ([]*models.Task, error) {
	f = f.Normalize()
	search := strings.ToLower(f.Search)

	t.s.mu.Lock()
	out := []*models.Task{}
	for _, task := range t.s.tasks {
		if task.UserID != userID {
			continue
		}
		if f.Status != "" && string(task.Status) != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(task.Title), search) &&
			!strings.Contains(strings.ToLower(task.Description), search) {
			continue
		}
		cp := *task
		out = append(out, &cp)
	}
	t.s.mu.Unlock()

	less := func(a, b *models.Task) int {
		switch f.SortBy {
		case models.SortTitle:
			return strings.Compare(a.Title, b.Title)
		case models.SortStatus:
			return strings.Compare(string(a.Status), string(b.Status))
		case models.SortUpdatedAt:
			return a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := less(out[i], out[j])
		if c == 0 {
			c = int(out[i].ID - out[j].ID)
		}
		if f.Order == models.OrderAsc {
			return c < 0
		}
		return c > 0
	})
	return out, nil
}

func (t *Tasks) Create(_ context.Context, userID int64, title, description string, status models.TaskStatus) (*models.Task, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	now := t.s.now()
	task := &models.Task{
		ID: nextID(&t.s.taskSeq), UserID: userID, Title: title, Description: description,
		Status: status, CreatedAt: now, UpdatedAt: now,
	}
	t.s.tasks[task.ID] = task
	cp := *task
	return &cp, nil
}

func (t *Tasks) Get(_ context.Context, id, userID int64) (*models.Task, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	task, ok := t.s.tasks[id]
	if !ok || task.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *task
	return &cp, nil
}

func (t *Tasks) Update(_ context.Context, id, userID int64, title, description string, status models.TaskStatus) (*models.Task, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	task, ok := t.s.tasks[id]
	if !ok || task.UserID != userID {
		return nil, store.ErrNotFound
	}
	task.Title, task.Description, task.Status = title, description, status
	task.UpdatedAt = t.s.now()
	cp := *task
	return &cp, nil
}

func (t *Tasks) Delete(_ context.Context, id, userID int64) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	task, ok := t.s.tasks[id]
	if !ok || task.UserID != userID {
		return store.ErrNotFound
	}
	delete(t.s.tasks, id)
	return nil
}
