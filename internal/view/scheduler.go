package view

import (
	"context"
	"sync"
	"time"
)

// RefreshScheduler coalesces bursts of revision signals into a bounded-rate
// reconciliation loop. A single pending flag and at most one loop guarantee
// that one pass always runs after the last signal of a burst, that pass
// frequency is capped at 1/interval, and that passes never overlap.
type RefreshScheduler struct {
	interval time.Duration
	pass     func(ctx context.Context)

	mu      sync.Mutex
	pending bool
	running bool
	done    chan struct{}
}

func NewRefreshScheduler(interval time.Duration, pass func(ctx context.Context)) *RefreshScheduler {
	if interval <= 0 {
		interval = 80 * time.Millisecond
	}
	return &RefreshScheduler{interval: interval, pass: pass}
}

// Signal marks a refresh as pending and starts the loop if none is running.
// Safe to call from any goroutine at any rate.
func (s *RefreshScheduler) Signal(ctx context.Context) {
	if s == nil || s.pass == nil {
		return
	}
	s.mu.Lock()
	s.pending = true
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.loop(ctx, done)
}

func (s *RefreshScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	for {
		s.mu.Lock()
		s.pending = false
		s.mu.Unlock()

		if ctx.Err() != nil {
			s.stop()
			return
		}
		s.pass(ctx)

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.interval)
		select {
		case <-ctx.Done():
			s.stop()
			return
		case <-timer.C:
		}

		s.mu.Lock()
		if !s.pending {
			s.running = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

func (s *RefreshScheduler) stop() {
	s.mu.Lock()
	s.running = false
	s.pending = false
	s.mu.Unlock()
}

// Wait blocks until the active loop exits. Used on session switch so the
// old view's loop cannot write after the new view takes over, and in tests.
func (s *RefreshScheduler) Wait() {
	if s == nil {
		return
	}
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return
	}
	<-done
}
