// Package planner implements the stowage engine: placing items into
// containers, rearranging occupants to make room, and planning retrieval
// and waste-return move sequences over a caller supplied snapshot.
package planner

import (
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/stowage/internal/geometry"
)

// Planner is a stateless planning engine. It is safe for concurrent use as
// long as callers do not share a State between concurrent calls.
type Planner struct {
	logger    *zap.Logger
	clearance float64
	clock     func() time.Time
	observer  Observer
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger used for planning diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClearance overrides the minimum gap between facing boxes.
func WithClearance(clearance float64) Option {
	return func(p *Planner) {
		if clearance > 0 {
			p.clearance = clearance
		}
	}
}

// WithClock overrides the time source used to classify waste.
func WithClock(clock func() time.Time) Option {
	return func(p *Planner) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithObserver registers an observer notified after each plan.
func WithObserver(o Observer) Option {
	return func(p *Planner) {
		p.observer = o
	}
}

// New creates a Planner.
func New(opts ...Option) *Planner {
	p := &Planner{
		logger:    zap.NewNop(),
		clearance: geometry.DefaultClearance,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ Engine = (*Planner)(nil)

// Clearance returns the configured minimum gap between facing boxes.
func (p *Planner) Clearance() float64 {
	return p.clearance
}
