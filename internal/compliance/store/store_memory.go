package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"treasury/internal/compliance/models"
	id "treasury/pkg/domain"
	"treasury/pkg/platform/sentinel"
)

// InMemoryStore keeps rows in a map. Used for tests and the memory driver.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[string]Row
	now  func() time.Time
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		rows: make(map[string]Row),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryStore) Create(_ context.Context, rec *models.ComplianceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rec.RecordID.String()
	if _, ok := s.rows[key]; ok {
		return fmt.Errorf("create compliance record %s: %w", key, sentinel.ErrConflict)
	}
	row := ToRow(rec)
	now := s.now()
	row.CreatedAt = now
	row.UpdatedAt = now
	s.rows[key] = *row
	stampAudit(rec, row)
	return nil
}

func (s *InMemoryStore) Save(_ context.Context, rec *models.ComplianceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rec.RecordID.String()
	row := ToRow(rec)
	now := s.now()
	row.CreatedAt = now
	if existing, ok := s.rows[key]; ok {
		row.CreatedAt = existing.CreatedAt
	}
	row.UpdatedAt = now
	s.rows[key] = *row
	stampAudit(rec, row)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, recordID id.Hash32) (*models.ComplianceRecord, error) {
	s.mu.RLock()
	row, ok := s.rows[recordID.String()]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return FromRow(&row)
}

func (s *InMemoryStore) ListUnreconciled(_ context.Context, limit int) ([]*models.ComplianceRecord, error) {
	s.mu.RLock()
	pending := make([]Row, 0)
	for _, row := range s.rows {
		if !row.Reconciled {
			pending = append(pending, row)
		}
	}
	s.mu.RUnlock()

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Timestamp != pending[j].Timestamp {
			return pending[i].Timestamp < pending[j].Timestamp
		}
		return pending[i].RecordID < pending[j].RecordID
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}

	records := make([]*models.ComplianceRecord, 0, len(pending))
	for i := range pending {
		rec, err := FromRow(&pending[i])
		if err != nil {
			return nil, fmt.Errorf("load compliance record %s: %w", pending[i].RecordID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// stampAudit copies the store-owned audit columns back onto the record.
func stampAudit(rec *models.ComplianceRecord, row *Row) {
	createdAt := row.CreatedAt
	updatedAt := row.UpdatedAt
	rec.CreatedAt = &createdAt
	rec.UpdatedAt = &updatedAt
}
