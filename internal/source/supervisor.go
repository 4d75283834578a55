// Package source implements the background scan producers and their
// supervision.
package source

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rfidlab/smarttray/internal/obs"
)

// Producer is a long-lived background task feeding the aggregator. Run must
// return promptly once ctx is done.
type Producer interface {
	ID() string
	Run(ctx context.Context) error
}

// Supervisor owns producer lifecycles. Producers are isolated: one
// producer's panic or error never stops another, and never reaches the
// foreground.
type Supervisor struct {
	mu        sync.Mutex
	producers []Producer
	cancel    context.CancelFunc
	g         *errgroup.Group
}

// NewSupervisor creates an empty supervisor.
func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

// Add registers a producer. Call before Start.
func (s *Supervisor) Add(p Producer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.producers = append(s.producers, p)
}

// Start launches every registered producer.
func (s *Supervisor) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.g = new(errgroup.Group)
	for _, p := range s.producers {
		p := p
		s.g.Go(func() error {
			s.run(ctx, p)
			return nil
		})
	}
	obs.Logger.Infow("producers_started", "count", len(s.producers))
}

// run shields the group from a single producer's failure.
func (s *Supervisor) run(ctx context.Context, p Producer) {
	defer func() {
		if r := recover(); r != nil {
			obs.Logger.Errorw("producer_panic", "source", p.ID(), "panic", r)
		}
	}()
	if err := p.Run(ctx); err != nil {
		obs.Logger.Errorw("producer_stopped", "source", p.ID(), "error", err)
		return
	}
	obs.Logger.Infow("producer_stopped", "source", p.ID())
}

// Stop cancels all producers and waits for them to exit. Safe to call more
// than once.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel, g := s.cancel, s.g
	s.cancel, s.g = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	_ = g.Wait()
}
