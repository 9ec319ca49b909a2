package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fingestor/internal/amqp"
	"fingestor/internal/storage"
)

// EventPublisher announces transaction changes to downstream consumers.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, id int64, action amqp.Action) error
	Close() error
}

// FinanceService orchestrates the finance tracker operations on top of the
// store and the billing engine, and publishes change events.
type FinanceService struct {
	store      storage.Store
	events     EventPublisher
	now        func() time.Time
	newGroupID func() string
}

// Option customises a FinanceService.
type Option func(*FinanceService)

// WithClock replaces the wall clock used for "today".
func WithClock(now func() time.Time) Option {
	return func(s *FinanceService) { s.now = now }
}

// WithGroupIDs replaces the installment group id generator.
func WithGroupIDs(gen func() string) Option {
	return func(s *FinanceService) { s.newGroupID = gen }
}

// NewFinanceService wires the service. events may be nil, in which case
// change events are skipped.
func NewFinanceService(store storage.Store, events EventPublisher, opts ...Option) *FinanceService {
	s := &FinanceService{
		store:      store,
		events:     events,
		now:        time.Now,
		newGroupID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FinanceService) publish(ctx context.Context, action amqp.Action, ids ...int64) {
	if s.events == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping transaction events",
			"action", action, "count", len(ids))
		return
	}
	for _, id := range ids {
		// The write already succeeded; a lost event is recovered by the
		// periodic mirror reconciliation.
		if err := s.events.PublishTransactionEvent(ctx, id, action); err != nil {
			slog.ErrorContext(ctx, "Failed to publish transaction event",
				"id", id, "action", action, "error", err)
		}
	}
}

// Close closes both the store and the event publisher.
func (s *FinanceService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close finance service: %v", errs)
	}

	return nil
}
