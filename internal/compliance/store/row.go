package store

import (
	"time"

	"github.com/shopspring/decimal"

	"treasury/internal/compliance/models"
)

// formattedScale is the scale written to usdc_amount_formatted. The column is
// an unconstrained numeric so amounts of any length round-trip.
const formattedScale = models.USDCDecimals

// Row is the flat storage projection of a compliance record. It is never more
// authoritative than the validated record: FromRow rebuilds every derived
// value from the canonical columns.
type Row struct {
	RecordID            string            `gorm:"column:record_id;primaryKey;type:varchar(66)"`
	TransactionHash     string            `gorm:"column:transaction_hash;type:varchar(66);not null;index"`
	InternalTxHash      string            `gorm:"column:internal_tx_hash;type:varchar(66);not null;index"`
	RuleID              int64             `gorm:"column:rule_id;not null;default:0;index"`
	Source              string            `gorm:"column:source;type:varchar(50);not null;index"`
	Recipient           string            `gorm:"column:recipient;type:varchar(42);not null;index"`
	USDCAmount          string            `gorm:"column:usdc_amount;type:text;not null"`
	USDCAmountFormatted decimal.Decimal   `gorm:"column:usdc_amount_formatted;type:numeric;not null"`
	KYCStatus           string            `gorm:"column:kyc_status;type:varchar(20);not null;default:'UNKNOWN';index"`
	AMLStatus           string            `gorm:"column:aml_status;type:varchar(20);not null;default:'UNKNOWN';index"`
	Timestamp           int64             `gorm:"column:timestamp;not null;index"`
	TimestampISO        time.Time         `gorm:"column:timestamp_iso;not null;index"`
	BlockNumber         int64             `gorm:"column:block_number;not null;index"`
	Executor            string            `gorm:"column:executor;type:varchar(42);not null"`
	CircleGatewayTxID   *string           `gorm:"column:circle_gateway_tx_id;type:varchar(100);index"`
	ArcTransparencyID   *string           `gorm:"column:arc_transparency_id;type:varchar(100);index"`
	Reconciled          bool              `gorm:"column:reconciled;not null;default:false;index"`
	ReconciledAt        int64             `gorm:"column:reconciled_at;not null;default:0"`
	ReconciledAtISO     *time.Time        `gorm:"column:reconciled_at_iso"`
	Metadata            map[string]string `gorm:"column:metadata;serializer:json"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Row) TableName() string {
	return "compliance_records"
}

// ToRow projects a validated record onto its storage row.
func ToRow(rec *models.ComplianceRecord) *Row {
	row := &Row{
		RecordID:            rec.RecordID.String(),
		TransactionHash:     rec.TransactionHash.String(),
		InternalTxHash:      rec.InternalTxHash.String(),
		RuleID:              rec.RuleID,
		Source:              rec.Source.String(),
		Recipient:           rec.Recipient.String(),
		USDCAmount:          rec.USDCAmount,
		USDCAmountFormatted: rec.USDCAmountFormatted.Round(formattedScale),
		KYCStatus:           rec.KYCStatus.String(),
		AMLStatus:           rec.AMLStatus.String(),
		Timestamp:           rec.Timestamp,
		TimestampISO:        rec.TimestampISO,
		BlockNumber:         rec.BlockNumber,
		Executor:            rec.Executor.String(),
		CircleGatewayTxID:   copyString(rec.CircleGatewayTxID),
		ArcTransparencyID:   copyString(rec.ArcTransparencyID),
		Reconciled:          rec.Reconciled,
		ReconciledAt:        rec.ReconciledAt,
		ReconciledAtISO:     copyTime(rec.ReconciledAtISO),
	}
	if rec.Metadata != nil {
		row.Metadata = rec.Metadata.ToMap()
	}
	if rec.CreatedAt != nil {
		row.CreatedAt = *rec.CreatedAt
	}
	if rec.UpdatedAt != nil {
		row.UpdatedAt = *rec.UpdatedAt
	}
	return row
}

// FromRow rebuilds a validated record from a storage row. The stored
// formatted amount and ISO columns are ignored and re-derived from
// usdc_amount, timestamp and reconciled_at.
//
// Errors: returns the same CodeValidation error as NewComplianceRecord when
// the row holds corrupted values.
func FromRow(row *Row) (*models.ComplianceRecord, error) {
	raw := models.RawRecord{
		RecordID:          row.RecordID,
		TransactionHash:   row.TransactionHash,
		InternalTxHash:    row.InternalTxHash,
		RuleID:            row.RuleID,
		Source:            row.Source,
		Recipient:         row.Recipient,
		USDCAmount:        row.USDCAmount,
		KYCStatus:         row.KYCStatus,
		AMLStatus:         row.AMLStatus,
		Timestamp:         row.Timestamp,
		BlockNumber:       row.BlockNumber,
		Executor:          row.Executor,
		CircleGatewayTxID: copyString(row.CircleGatewayTxID),
		ArcTransparencyID: copyString(row.ArcTransparencyID),
		Reconciled:        row.Reconciled,
		ReconciledAt:      row.ReconciledAt,
		Metadata:          models.MetadataFromMap(row.Metadata),
	}
	if !row.CreatedAt.IsZero() {
		createdAt := row.CreatedAt
		raw.CreatedAt = &createdAt
	}
	if !row.UpdatedAt.IsZero() {
		updatedAt := row.UpdatedAt
		raw.UpdatedAt = &updatedAt
	}
	return models.NewComplianceRecord(raw)
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
