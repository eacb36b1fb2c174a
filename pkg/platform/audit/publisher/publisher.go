// Package publisher writes compliance audit events synchronously.
//
// Emit blocks until the store accepts the event and returns the store error
// otherwise, so callers decide whether a lost audit event fails their
// operation.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"treasury/pkg/platform/audit"
)

var (
	ErrMissingSubject = errors.New("audit event requires Subject")
	ErrMissingAction  = errors.New("audit event requires Action")
)

// Publisher emits audit events with synchronous semantics.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithClock overrides the timestamp source for events without one.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// New creates a publisher writing to store.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit validates event and writes it to the store.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Subject == "" {
		return ErrMissingSubject
	}
	if event.Action == "" {
		return ErrMissingAction
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	event.Timestamp = event.Timestamp.UTC()

	if err := p.store.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "compliance audit failed",
				"action", event.Action,
				"record_id", event.Subject,
				"error", err,
			)
		}
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
