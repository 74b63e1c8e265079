package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/primetrade/internal/models"
	"github.com/harrylevesque/primetrade/internal/store"
)

func TestUsers(t *testing.T) {
	s := New()
	users := s.Users()
	ctx := context.Background()

	u, err := users.Create(ctx, "a@b.io", "h", "A")
	require.NoError(t, err)
	_, err = users.Create(ctx, "a@b.io", "h", "")
	assert.ErrorIs(t, err, store.ErrEmailTaken)

	other, err := users.Create(ctx, "c@d.io", "h", "")
	require.NoError(t, err)
	email := "a@b.io"
	_, err = users.UpdateProfile(ctx, other.ID, nil, &email)
	assert.ErrorIs(t, err, store.ErrEmailTaken)

	taken, err := users.EmailTaken(ctx, "a@b.io", u.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestTasksScopedAndSorted(t *testing.T) {
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }
	tasks := s.Tasks()
	ctx := context.Background()

	_, _ = tasks.Create(ctx, 1, "beta", "", models.StatusPending)
	_, _ = tasks.Create(ctx, 1, "alpha", "docs", models.StatusCompleted)
	foreign, _ := tasks.Create(ctx, 2, "gamma", "", models.StatusPending)

	list, err := tasks.List(ctx, 1, models.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Title, "newest first by default")

	list, _ = tasks.List(ctx, 1, models.TaskFilter{SortBy: "title", Order: "asc"})
	assert.Equal(t, "alpha", list[0].Title)

	list, _ = tasks.List(ctx, 1, models.TaskFilter{Search: "DOC"})
	require.Len(t, list, 1)

	_, err = tasks.Get(ctx, foreign.ID, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, tasks.Delete(ctx, foreign.ID, 1), store.ErrNotFound)
}
