// Package store persists compliance records as flat rows.
//
// Every implementation goes through ToRow on write and FromRow on read, so the
// validated record stays the only authority for derived values. Stores own the
// created_at/updated_at audit columns and report missing or duplicate records
// with the sentinel errors from pkg/platform/sentinel.
package store

import (
	"context"

	"treasury/internal/compliance/models"
	id "treasury/pkg/domain"
)

// Store is the load-by-key and save contract shared by all backends.
type Store interface {
	// Create inserts a new record and fails with sentinel.ErrConflict if the
	// record id is already taken.
	Create(ctx context.Context, rec *models.ComplianceRecord) error
	// Save inserts or replaces a record, keeping the original created_at.
	Save(ctx context.Context, rec *models.ComplianceRecord) error
	// FindByID loads a record or fails with sentinel.ErrNotFound.
	FindByID(ctx context.Context, recordID id.Hash32) (*models.ComplianceRecord, error)
	// ListUnreconciled returns up to limit unreconciled records, oldest first.
	ListUnreconciled(ctx context.Context, limit int) ([]*models.ComplianceRecord, error)
}
