package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedJob(id string, createdAt time.Time, status Status) *Job {
	done := createdAt.Add(time.Second)
	return &Job{ID: id, Status: status, CreatedAt: createdAt, CompletedAt: &done}
}

func TestMemoryStore_CRUD(t *testing.T) {
	s := NewMemoryStore(0)
	job := &Job{ID: "a", Status: StatusPending, CreatedAt: time.Now()}
	require.NoError(t, s.Create(job))
	assert.Error(t, s.Create(job))

	got, err := s.Get("a")
	require.NoError(t, err)
	got.Status = StatusRunning

	stored, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status, "Get returns a copy")

	require.NoError(t, s.Update(got))
	stored, err = s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, stored.Status)

	require.NoError(t, s.Delete("a"))
	_, err = s.Get("a")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, s.Delete("a"), ErrJobNotFound)
	assert.ErrorIs(t, s.Update(got), ErrJobNotFound)
}

func TestMemoryStore_List(t *testing.T) {
	s := NewMemoryStore(0)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Create(finishedJob("old", base, StatusCompleted)))
	require.NoError(t, s.Create(finishedJob("mid", base.Add(time.Minute), StatusFailed)))
	require.NoError(t, s.Create(&Job{ID: "new", Status: StatusPending, CreatedAt: base.Add(2 * time.Minute)}))

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all newest first", Filter{}, []string{"new", "mid", "old"}},
		{"by status", Filter{Status: StatusFailed}, []string{"mid"}},
		{"since", Filter{Since: base.Add(time.Minute)}, []string{"new", "mid"}},
		{"limit", Filter{Limit: 1}, []string{"new"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := s.List(tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(jobs))
			for _, j := range jobs {
				ids = append(ids, j.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMemoryStore_Retention(t *testing.T) {
	s := NewMemoryStore(2)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Create(&Job{ID: id, Status: StatusRunning, CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}
	require.NoError(t, s.Create(&Job{ID: "pending", Status: StatusPending, CreatedAt: base}))

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Update(finishedJob(id, base.Add(time.Duration(i)*time.Minute), StatusCompleted)))
	}

	_, err := s.Get("a")
	assert.ErrorIs(t, err, ErrJobNotFound)
	for _, id := range []string{"b", "c", "pending"} {
		_, err := s.Get(id)
		assert.NoError(t, err, id)
	}
}

func TestStatus_Finished(t *testing.T) {
	assert.False(t, StatusPending.Finished())
	assert.False(t, StatusRunning.Finished())
	assert.True(t, StatusCompleted.Finished())
	assert.True(t, StatusFailed.Finished())
	assert.True(t, StatusCancelled.Finished())
}
