package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"treasury/pkg/platform/audit"
)

// eventRow is the audit_events table.
type eventRow struct {
	ID        string    `gorm:"column:id;primaryKey;type:uuid"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index:idx_audit_events_subject_ts,priority:2"`
	Subject   string    `gorm:"column:subject;type:varchar(66);not null;index:idx_audit_events_subject_ts,priority:1"`
	Action    string    `gorm:"column:action;type:varchar(64);not null"`
	Decision  string    `gorm:"column:decision;type:varchar(64)"`
	RequestID string    `gorm:"column:request_id;type:varchar(64)"`
	BatchID   string    `gorm:"column:batch_id;type:varchar(64)"`
	ActorIP   string    `gorm:"column:actor_ip;type:varchar(64)"`
}

func (eventRow) TableName() string {
	return "audit_events"
}

// Store implements audit.Store on PostgreSQL through GORM.
type Store struct {
	db *gorm.DB
}

// New creates a PostgreSQL audit store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the audit_events table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&eventRow{}); err != nil {
		return fmt.Errorf("migrate audit_events: %w", err)
	}
	return nil
}

// Append inserts an audit event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	row := eventRow{
		ID:        event.ID,
		Timestamp: event.Timestamp,
		Subject:   event.Subject,
		Action:    event.Action,
		Decision:  event.Decision,
		RequestID: event.RequestID,
		BatchID:   event.BatchID,
		ActorIP:   event.ActorIP,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListBySubject returns the events for subject, oldest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	var rows []eventRow
	err := s.db.WithContext(ctx).
		Where("subject = ?", subject).
		Order(`"timestamp" ASC, id ASC`).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}

	events := make([]audit.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, audit.Event{
			ID:        r.ID,
			Timestamp: r.Timestamp,
			Subject:   r.Subject,
			Action:    r.Action,
			Decision:  r.Decision,
			RequestID: r.RequestID,
			BatchID:   r.BatchID,
			ActorIP:   r.ActorIP,
		})
	}
	return events, nil
}
