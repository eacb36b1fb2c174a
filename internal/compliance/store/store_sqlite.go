package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"treasury/internal/compliance/models"
	id "treasury/pkg/domain"
	"treasury/pkg/platform/sentinel"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

const rowColumns = `record_id, transaction_hash, internal_tx_hash, rule_id, source,
	recipient, usdc_amount, usdc_amount_formatted, kyc_status, aml_status,
	timestamp, timestamp_iso, block_number, executor, circle_gateway_tx_id,
	arc_transparency_id, reconciled, reconciled_at, reconciled_at_iso, metadata,
	created_at, updated_at`

// SQLiteStore persists rows in a single SQLite file. It suits single-node
// deployments and local development.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite creates or opens a SQLite database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, rec *models.ComplianceRecord) error {
	row := ToRow(rec)
	now := s.now()
	row.CreatedAt = now
	row.UpdatedAt = now

	args, err := rowArgs(row)
	if err != nil {
		return err
	}
	query := `INSERT INTO compliance_records (` + rowColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("create compliance record %s: %w", row.RecordID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create compliance record: %w", err)
	}
	stampAudit(rec, row)
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec *models.ComplianceRecord) error {
	row := ToRow(rec)
	now := s.now()
	row.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx,
		`SELECT created_at FROM compliance_records WHERE record_id = ?`, row.RecordID,
	).Scan(&row.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		row.CreatedAt = now
	case err != nil:
		return fmt.Errorf("load created_at: %w", err)
	}

	args, err := rowArgs(row)
	if err != nil {
		return err
	}
	query := `INSERT OR REPLACE INTO compliance_records (` + rowColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save compliance record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	stampAudit(rec, row)
	return nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, recordID id.Hash32) (*models.ComplianceRecord, error) {
	query := `SELECT ` + rowColumns + ` FROM compliance_records WHERE record_id = ?`
	row, err := scanRow(s.db.QueryRowContext(ctx, query, recordID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find compliance record: %w", err)
	}
	return FromRow(row)
}

func (s *SQLiteStore) ListUnreconciled(ctx context.Context, limit int) ([]*models.ComplianceRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + rowColumns + ` FROM compliance_records
		WHERE reconciled = 0
		ORDER BY timestamp ASC, record_id ASC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unreconciled records: %w", err)
	}
	defer rows.Close()

	var records []*models.ComplianceRecord
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan compliance record: %w", err)
		}
		rec, err := FromRow(row)
		if err != nil {
			return nil, fmt.Errorf("load compliance record %s: %w", row.RecordID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compliance records: %w", err)
	}
	return records, nil
}

func rowArgs(row *Row) ([]any, error) {
	var metadata sql.NullString
	if row.Metadata != nil {
		b, err := json.Marshal(row.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}
	var reconciledAtISO sql.NullTime
	if row.ReconciledAtISO != nil {
		reconciledAtISO = sql.NullTime{Time: *row.ReconciledAtISO, Valid: true}
	}
	return []any{
		row.RecordID,
		row.TransactionHash,
		row.InternalTxHash,
		row.RuleID,
		row.Source,
		row.Recipient,
		row.USDCAmount,
		row.USDCAmountFormatted.StringFixed(formattedScale),
		row.KYCStatus,
		row.AMLStatus,
		row.Timestamp,
		row.TimestampISO,
		row.BlockNumber,
		row.Executor,
		row.CircleGatewayTxID,
		row.ArcTransparencyID,
		row.Reconciled,
		row.ReconciledAt,
		reconciledAtISO,
		metadata,
		row.CreatedAt,
		row.UpdatedAt,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(scanner rowScanner) (*Row, error) {
	var (
		row             Row
		gatewayTxID     sql.NullString
		transparencyID  sql.NullString
		reconciledAtISO sql.NullTime
		metadata        sql.NullString
	)
	err := scanner.Scan(
		&row.RecordID,
		&row.TransactionHash,
		&row.InternalTxHash,
		&row.RuleID,
		&row.Source,
		&row.Recipient,
		&row.USDCAmount,
		&row.USDCAmountFormatted,
		&row.KYCStatus,
		&row.AMLStatus,
		&row.Timestamp,
		&row.TimestampISO,
		&row.BlockNumber,
		&row.Executor,
		&gatewayTxID,
		&transparencyID,
		&row.Reconciled,
		&row.ReconciledAt,
		&reconciledAtISO,
		&metadata,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if gatewayTxID.Valid {
		row.CircleGatewayTxID = &gatewayTxID.String
	}
	if transparencyID.Valid {
		row.ArcTransparencyID = &transparencyID.String
	}
	if reconciledAtISO.Valid {
		row.ReconciledAtISO = &reconciledAtISO.Time
	}
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &row.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &row, nil
}
