package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"treasury/internal/compliance/models"
	id "treasury/pkg/domain"
	"treasury/pkg/platform/sentinel"
)

// pgErrUniqueViolation is the PostgreSQL unique_violation code (class 23).
const pgErrUniqueViolation = "23505"

// mutableColumns are overwritten on upsert; created_at stays with the first write.
var mutableColumns = []string{
	"transaction_hash", "internal_tx_hash", "rule_id", "source", "recipient",
	"usdc_amount", "usdc_amount_formatted", "kyc_status", "aml_status",
	"timestamp", "timestamp_iso", "block_number", "executor",
	"circle_gateway_tx_id", "arc_transparency_id", "reconciled",
	"reconciled_at", "reconciled_at_iso", "metadata", "updated_at",
}

// PostgresStore persists rows in PostgreSQL through GORM.
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects to PostgreSQL using dsn.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgres(db), nil
}

// NewPostgres wraps an existing GORM handle.
func NewPostgres(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates or updates the compliance_records table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Row{}); err != nil {
		return fmt.Errorf("migrate compliance_records: %w", err)
	}
	return nil
}

// DB exposes the connection pool for stores sharing the database.
func (s *PostgresStore) DB() *gorm.DB {
	return s.db
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}

func (s *PostgresStore) Create(ctx context.Context, rec *models.ComplianceRecord) error {
	row := ToRow(rec)
	clearAudit(row)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create compliance record %s: %w", row.RecordID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create compliance record: %w", err)
	}
	stampAudit(rec, row)
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *models.ComplianceRecord) error {
	row := ToRow(rec)
	clearAudit(row)
	err := s.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns:   []clause.Column{{Name: "record_id"}},
				DoUpdates: clause.AssignmentColumns(mutableColumns),
			},
			clause.Returning{Columns: []clause.Column{{Name: "created_at"}}},
		).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("save compliance record: %w", err)
	}
	stampAudit(rec, row)
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, recordID id.Hash32) (*models.ComplianceRecord, error) {
	var row Row
	err := s.db.WithContext(ctx).Where("record_id = ?", recordID.String()).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find compliance record: %w", err)
	}
	return FromRow(&row)
}

func (s *PostgresStore) ListUnreconciled(ctx context.Context, limit int) ([]*models.ComplianceRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	var rows []Row
	err := s.db.WithContext(ctx).
		Where("reconciled = ?", false).
		Order(`"timestamp" ASC, record_id ASC`).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query unreconciled records: %w", err)
	}

	records := make([]*models.ComplianceRecord, 0, len(rows))
	for i := range rows {
		rec, err := FromRow(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("load compliance record %s: %w", rows[i].RecordID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// clearAudit lets GORM stamp created_at/updated_at on write.
func clearAudit(row *Row) {
	row.CreatedAt = time.Time{}
	row.UpdatedAt = time.Time{}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}
