// Package janitor periodically removes stale trial identities. Day-rollover
// itself is lazy: every consume resets counters inside its own transaction
// when the stored day key is out of date, so no scheduled job is needed for
// correctness. The sweeper only reclaims storage from identities that have
// gone quiet.
package janitor

import (
	"context"
	"log"
	"sync"
	"time"
)

// Store is the subset of the trial repository the janitor needs.
type Store interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Janitor runs the periodic sweep loop.
type Janitor struct {
	store     Store
	interval  time.Duration
	retention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}

	mu         sync.Mutex
	running    bool
	lastSweep  time.Time
	sweepCount int64
	deleted    int64
}

// New creates a janitor that deletes identities untouched for retention,
// sweeping every interval.
func New(store Store, interval, retention time.Duration) *Janitor {
	return &Janitor{
		store:     store,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the sweep loop. It returns immediately; the loop runs until
// Stop is called or ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		log.Println("[janitor] Already running")
		return
	}
	j.running = true
	j.mu.Unlock()

	go j.run(ctx)
}

func (j *Janitor) run(ctx context.Context) {
	defer close(j.doneCh)

	log.Printf("[janitor] Sweeping every %s (retention %s)", j.interval, j.retention)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopCh:
			return
		case <-ticker.C:
			if _, err := j.SweepNow(ctx); err != nil {
				log.Printf("[janitor] Sweep failed: %v", err)
			}
		}
	}
}

// SweepNow performs one sweep immediately. Also the backing for the admin
// endpoint.
func (j *Janitor) SweepNow(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-j.retention)
	deleted, err := j.store.DeleteStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	j.mu.Lock()
	j.lastSweep = time.Now()
	j.sweepCount++
	j.deleted += deleted
	j.mu.Unlock()

	if deleted > 0 {
		log.Printf("[janitor] Deleted %d stale trial identities", deleted)
	}
	return deleted, nil
}

// Stop terminates the sweep loop and waits for it to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	j.mu.Unlock()

	close(j.stopCh)
	<-j.doneCh
}

// Stats reports sweep counters for the status endpoint.
func (j *Janitor) Stats() (lastSweep time.Time, sweeps, deleted int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastSweep, j.sweepCount, j.deleted
}
