package scheduler

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	emaildomain "mailboard-backend/internal/email/domain"
)

// Restorer restores every snooze that is due at now
type Restorer interface {
	RestoreDue(ctx context.Context, now time.Time) (*emaildomain.SweepResult, error)
}

// SnoozeSweeper periodically brings snoozed emails back
type SnoozeSweeper struct {
	restorer Restorer
	interval time.Duration
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
}

// NewSnoozeSweeper creates a new sweeper, interval defaults to one minute
func NewSnoozeSweeper(restorer Restorer, interval time.Duration) *SnoozeSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SnoozeSweeper{
		restorer: restorer,
		interval: interval,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// WithClock replaces the time source
func (s *SnoozeSweeper) WithClock(now func() time.Time) *SnoozeSweeper {
	s.now = now
	return s
}

// Start begins the sweep loop
func (s *SnoozeSweeper) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	log.Printf("[SnoozeSweeper] Starting snooze sweeper (interval: %s)", s.interval)

	go func() {
		defer close(s.done)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-s.stopChan:
				cancel()
			case <-ctx.Done():
			}
		}()

		// Run immediately on start
		s.Sweep(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-s.stopChan:
				log.Println("[SnoozeSweeper] Sweeper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweeper and waits for a running pass to finish
func (s *SnoozeSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	if s.started.Load() {
		<-s.done
	}
}

// Sweep runs one pass
func (s *SnoozeSweeper) Sweep(ctx context.Context) *emaildomain.SweepResult {
	result, err := s.restorer.RestoreDue(ctx, s.now())
	if err != nil {
		log.Printf("[SnoozeSweeper] Sweep failed: %v", err)
	}
	if result != nil && (result.Restored > 0 || result.Failed > 0) {
		log.Printf("[SnoozeSweeper] Restored %d, skipped %d, failed %d", result.Restored, result.Skipped, result.Failed)
	}
	return result
}
