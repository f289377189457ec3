package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/dakshkarigar/marketplace-api/internal/domain"
)

// EventPublisher receives lifecycle events after the transition is persisted.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.OrderEvent) error
}

// CycleRecorder observes reassignment cycles (metrics).
type CycleRecorder interface {
	RecordCycle(report CycleReport)
	RecordScanFailure()
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.OrderEvent) error { return nil }

type nopRecorder struct{}

func (nopRecorder) RecordCycle(CycleReport) {}
func (nopRecorder) RecordScanFailure()      {}

const (
	defaultConcurrency  = 8
	defaultCycleTimeout = 25 * time.Second
	defaultExpiryBudget = 60 * time.Second
)

type serviceOptions struct {
	logger        *slog.Logger
	publisher     EventPublisher
	recorder      CycleRecorder
	concurrency   int
	cycleTimeout  time.Duration
	defaultBudget time.Duration
}

func newServiceOptions(opts []Option) serviceOptions {
	o := serviceOptions{
		logger:        slog.Default(),
		publisher:     nopPublisher{},
		recorder:      nopRecorder{},
		concurrency:   defaultConcurrency,
		cycleTimeout:  defaultCycleTimeout,
		defaultBudget: defaultExpiryBudget,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures the order and reassignment services.
type Option func(*serviceOptions)

func WithLogger(l *slog.Logger) Option {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithEventPublisher(p EventPublisher) Option {
	return func(o *serviceOptions) {
		if p != nil {
			o.publisher = p
		}
	}
}

func WithCycleRecorder(r CycleRecorder) Option {
	return func(o *serviceOptions) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithConcurrency bounds how many orders a single cycle processes at once.
func WithConcurrency(n int) Option {
	return func(o *serviceOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithCycleTimeout bounds a cycle started through RunReassignmentCycle.
func WithCycleTimeout(d time.Duration) Option {
	return func(o *serviceOptions) {
		if d > 0 {
			o.cycleTimeout = d
		}
	}
}

// WithDefaultExpiryBudget sets the budget used when an order is created without one.
func WithDefaultExpiryBudget(d time.Duration) Option {
	return func(o *serviceOptions) {
		if d > 0 {
			o.defaultBudget = d
		}
	}
}
