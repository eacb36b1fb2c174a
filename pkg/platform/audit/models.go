// Package audit records the compliance audit trail: one event per state
// change of a compliance record, keyed by the record id.
package audit

import (
	"context"
	"time"
)

// Event captures one audit-worthy action. Keep it transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	ID        string    // Assigned by the store
	Timestamp time.Time // When the action happened (set by the publisher if zero)
	Subject   string    // The record the action applies to (required)
	Action    string    // The action taken, e.g. "record_reconciled" (required)
	Decision  string    // Outcome, e.g. the resulting KYC/AML status
	RequestID string    // Correlation ID for request tracing
	BatchID   string    // Ingest batch the action belongs to
	ActorIP   string    // Originating client address for HTTP actions
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
