package janitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	deleted int64
	err     error
	cutoffs []time.Time
}

func (s *fakeStore) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	if s.err != nil {
		return 0, s.err
	}
	return s.deleted, nil
}

func TestSweepNow(t *testing.T) {
	store := &fakeStore{deleted: 7}
	j := New(store, time.Hour, 14*24*time.Hour)

	deleted, err := j.SweepNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)

	// Cutoff is retention in the past.
	require.Len(t, store.cutoffs, 1)
	wantCutoff := time.Now().Add(-14 * 24 * time.Hour)
	assert.WithinDuration(t, wantCutoff, store.cutoffs[0], time.Minute)

	lastSweep, sweeps, totalDeleted := j.Stats()
	assert.False(t, lastSweep.IsZero())
	assert.Equal(t, int64(1), sweeps)
	assert.Equal(t, int64(7), totalDeleted)
}

func TestSweepNowPropagatesError(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	j := New(store, time.Hour, time.Hour)

	_, err := j.SweepNow(context.Background())
	require.Error(t, err)

	_, sweeps, _ := j.Stats()
	assert.Zero(t, sweeps, "failed sweeps must not count")
}

func TestStartStop(t *testing.T) {
	store := &fakeStore{}
	j := New(store, time.Hour, time.Hour)

	j.Start(context.Background())
	j.Stop()

	// Stop is idempotent.
	j.Stop()
}
