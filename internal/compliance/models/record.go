package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "treasury/pkg/domain"
	dErrors "treasury/pkg/domain-errors"
)

const ruleNonNegative = "must be non-negative"

// Metadata carries optional regulatory reporting annotations. A nil field
// is absent; a non-nil empty string is a present, empty annotation.
type Metadata struct {
	Jurisdiction       *string `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`
	RegulatoryCategory *string `json:"regulatoryCategory,omitempty" yaml:"regulatoryCategory,omitempty"`
	ReportingPeriod    *string `json:"reportingPeriod,omitempty" yaml:"reportingPeriod,omitempty"`
	Notes              *string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// ToMap flattens the metadata into the opaque blob used by storage.
// Absent annotations are dropped; empty ones are kept.
func (m *Metadata) ToMap() map[string]string {
	out := make(map[string]string, 4)
	for key, v := range m.fields() {
		if *v != nil {
			out[key] = **v
		}
	}
	return out
}

// MetadataFromMap is the inverse of ToMap. Unknown keys are ignored.
func MetadataFromMap(blob map[string]string) *Metadata {
	if blob == nil {
		return nil
	}
	md := &Metadata{}
	for key, v := range md.fields() {
		if value, ok := blob[key]; ok {
			*v = &value
		}
	}
	return md
}

func (m *Metadata) fields() map[string]**string {
	return map[string]**string{
		"jurisdiction":       &m.Jurisdiction,
		"regulatoryCategory": &m.RegulatoryCategory,
		"reportingPeriod":    &m.ReportingPeriod,
		"notes":              &m.Notes,
	}
}

func (m *Metadata) clone() *Metadata {
	return &Metadata{
		Jurisdiction:       cloneString(m.Jurisdiction),
		RegulatoryCategory: cloneString(m.RegulatoryCategory),
		ReportingPeriod:    cloneString(m.ReportingPeriod),
		Notes:              cloneString(m.Notes),
	}
}

func (m *Metadata) validate() error {
	if m.Jurisdiction != nil {
		if _, err := id.ParseJurisdiction(*m.Jurisdiction); err != nil {
			return dErrors.Validation("metadata.jurisdiction", id.RuleJurisdiction, *m.Jurisdiction)
		}
	}
	return nil
}

// RawRecord is the structurally shaped, unvalidated input for a record, as
// decoded from a chain event, an interchange document or a storage row.
// Derived fields are deliberately absent: they are always recomputed.
type RawRecord struct {
	RecordID          string     `json:"recordId" yaml:"recordId"`
	TransactionHash   string     `json:"transactionHash" yaml:"transactionHash"`
	InternalTxHash    string     `json:"internalTxHash" yaml:"internalTxHash"`
	RuleID            int64      `json:"ruleId" yaml:"ruleId"`
	Source            string     `json:"source" yaml:"source"`
	Recipient         string     `json:"recipient" yaml:"recipient"`
	USDCAmount        string     `json:"usdcAmount" yaml:"usdcAmount"`
	KYCStatus         string     `json:"kycStatus,omitempty" yaml:"kycStatus,omitempty"`
	AMLStatus         string     `json:"amlStatus,omitempty" yaml:"amlStatus,omitempty"`
	Timestamp         int64      `json:"timestamp" yaml:"timestamp"`
	BlockNumber       int64      `json:"blockNumber" yaml:"blockNumber"`
	Executor          string     `json:"executor" yaml:"executor"`
	CircleGatewayTxID *string    `json:"circleGatewayTxId,omitempty" yaml:"circleGatewayTxId,omitempty"`
	ArcTransparencyID *string    `json:"arcTransparencyId,omitempty" yaml:"arcTransparencyId,omitempty"`
	Reconciled        bool       `json:"reconciled,omitempty" yaml:"reconciled,omitempty"`
	ReconciledAt      int64      `json:"reconciledAt,omitempty" yaml:"reconciledAt,omitempty"`
	Metadata          *Metadata  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt         *time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// ComplianceRecord is the validated, canonical form of a treasury compliance
// transaction.
//
// Invariants:
//   - RecordID, TransactionHash, InternalTxHash match ^0x[0-9a-fA-F]{64}$
//   - Recipient, Executor match ^0x[0-9a-fA-F]{40}$
//   - USDCAmount matches ^[0-9]+$ and USDCAmountFormatted == USDCAmount / 10^6 exactly
//   - TimestampISO is derived from Timestamp
//   - ReconciledAtISO is set iff Reconciled && ReconciledAt > 0
//   - RuleID, Timestamp, BlockNumber, ReconciledAt are non-negative
//   - Metadata.Jurisdiction, when set, matches ^[A-Z]{2}$
//   - Source, KYCStatus, AMLStatus hold only values from their enumerations
//
// Mutation happens only through MarkReconciled and UpdateComplianceStatus.
// Records are not safe for concurrent mutation; callers serialize access per RecordID.
type ComplianceRecord struct {
	RecordID            id.Hash32
	TransactionHash     id.Hash32
	InternalTxHash      id.Hash32
	RuleID              int64
	Source              TransactionSource
	Recipient           id.Address
	USDCAmount          string
	USDCAmountFormatted decimal.Decimal
	KYCStatus           ComplianceStatus
	AMLStatus           ComplianceStatus
	Timestamp           int64
	TimestampISO        time.Time
	BlockNumber         int64
	Executor            id.Address
	CircleGatewayTxID   *string
	ArcTransparencyID   *string
	Reconciled          bool
	ReconciledAt        int64
	ReconciledAtISO     *time.Time
	Metadata            *Metadata

	// Audit timestamps are owned by the persistence layer.
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// NewComplianceRecord validates raw input and derives the computed fields.
// Checks run in a fixed order and stop at the first violation: formats and
// enumerations, then integer ranges, then derivations, then metadata.
//
// Errors: returns a CodeValidation error naming the offending field. No
// partially valid record is ever returned.
func NewComplianceRecord(raw RawRecord) (*ComplianceRecord, error) {
	rec := &ComplianceRecord{
		RuleID:            raw.RuleID,
		USDCAmount:        raw.USDCAmount,
		Timestamp:         raw.Timestamp,
		BlockNumber:       raw.BlockNumber,
		CircleGatewayTxID: cloneString(raw.CircleGatewayTxID),
		ArcTransparencyID: cloneString(raw.ArcTransparencyID),
		Reconciled:        raw.Reconciled,
		ReconciledAt:      raw.ReconciledAt,
		CreatedAt:         cloneTime(raw.CreatedAt),
		UpdatedAt:         cloneTime(raw.UpdatedAt),
	}

	var err error
	if rec.RecordID, err = parseHash("recordId", raw.RecordID); err != nil {
		return nil, err
	}
	if rec.TransactionHash, err = parseHash("transactionHash", raw.TransactionHash); err != nil {
		return nil, err
	}
	if rec.InternalTxHash, err = parseHash("internalTxHash", raw.InternalTxHash); err != nil {
		return nil, err
	}
	if rec.Source, err = ParseTransactionSource(raw.Source); err != nil {
		return nil, dErrors.Validation("source", ruleSource, raw.Source)
	}
	if rec.Recipient, err = parseAddress("recipient", raw.Recipient); err != nil {
		return nil, err
	}
	if rec.Executor, err = parseAddress("executor", raw.Executor); err != nil {
		return nil, err
	}
	if !amountPattern.MatchString(raw.USDCAmount) {
		return nil, dErrors.Validation("usdcAmount", ruleAmount, raw.USDCAmount)
	}
	if rec.KYCStatus, err = ParseComplianceStatus(raw.KYCStatus); err != nil {
		return nil, dErrors.Validation("kycStatus", ruleStatus, raw.KYCStatus)
	}
	if rec.AMLStatus, err = ParseComplianceStatus(raw.AMLStatus); err != nil {
		return nil, dErrors.Validation("amlStatus", ruleStatus, raw.AMLStatus)
	}

	for _, f := range []struct {
		name  string
		value int64
	}{
		{"ruleId", raw.RuleID},
		{"timestamp", raw.Timestamp},
		{"blockNumber", raw.BlockNumber},
		{"reconciledAt", raw.ReconciledAt},
	} {
		if f.value < 0 {
			return nil, dErrors.Validation(f.name, ruleNonNegative, f.value)
		}
	}

	rec.USDCAmountFormatted = FormatUSDCAmount(rec.USDCAmount)
	rec.TimestampISO = DeriveTime(rec.Timestamp)
	rec.ReconciledAtISO = deriveReconciledAtISO(rec.Reconciled, rec.ReconciledAt)

	if raw.Metadata != nil {
		md := raw.Metadata.clone()
		if err := md.validate(); err != nil {
			return nil, err
		}
		rec.Metadata = md
	}

	return rec, nil
}

// State reports the reconciliation state.
func (r *ComplianceRecord) State() ReconciliationState {
	if r.Reconciled {
		return StateReconciled
	}
	return StateUnreconciled
}

// MarkReconciled transitions the record to RECONCILED at the current wall-clock time.
func (r *ComplianceRecord) MarkReconciled() *ComplianceRecord {
	return r.MarkReconciledAt(time.Now())
}

// MarkReconciledAt transitions the record to RECONCILED at now. Calling it on
// an already reconciled record refreshes ReconciledAt and ReconciledAtISO.
// There is no transition back to UNRECONCILED.
func (r *ComplianceRecord) MarkReconciledAt(now time.Time) *ComplianceRecord {
	at := now.Unix()
	if at < 0 {
		at = 0
	}
	r.Reconciled = true
	r.ReconciledAt = at
	r.ReconciledAtISO = deriveReconciledAtISO(r.Reconciled, r.ReconciledAt)
	return r
}

// UpdateComplianceStatus overwrites both statuses unconditionally, including
// regressions such as VERIFIED to REJECTED. External identifiers are replaced
// only when a non-empty value is supplied; they cannot be cleared.
func (r *ComplianceRecord) UpdateComplianceStatus(kyc, aml ComplianceStatus, gatewayTxID, transparencyID string) *ComplianceRecord {
	r.KYCStatus = kyc
	r.AMLStatus = aml
	if gatewayTxID != "" {
		r.CircleGatewayTxID = &gatewayTxID
	}
	if transparencyID != "" {
		r.ArcTransparencyID = &transparencyID
	}
	return r
}

// Raw returns the raw inputs this record was built from. Passing the result
// to NewComplianceRecord reproduces an equal record.
func (r *ComplianceRecord) Raw() RawRecord {
	raw := RawRecord{
		RecordID:          r.RecordID.String(),
		TransactionHash:   r.TransactionHash.String(),
		InternalTxHash:    r.InternalTxHash.String(),
		RuleID:            r.RuleID,
		Source:            r.Source.String(),
		Recipient:         r.Recipient.String(),
		USDCAmount:        r.USDCAmount,
		KYCStatus:         r.KYCStatus.String(),
		AMLStatus:         r.AMLStatus.String(),
		Timestamp:         r.Timestamp,
		BlockNumber:       r.BlockNumber,
		Executor:          r.Executor.String(),
		CircleGatewayTxID: cloneString(r.CircleGatewayTxID),
		ArcTransparencyID: cloneString(r.ArcTransparencyID),
		Reconciled:        r.Reconciled,
		ReconciledAt:      r.ReconciledAt,
		CreatedAt:         cloneTime(r.CreatedAt),
		UpdatedAt:         cloneTime(r.UpdatedAt),
	}
	if r.Metadata != nil {
		raw.Metadata = r.Metadata.clone()
	}
	return raw
}

// DeriveTime converts Unix seconds into the calendar value stored in the ISO
// fields. Values are pinned to UTC so derivation is reproducible across hosts.
func DeriveTime(unix int64) time.Time {
	return time.Unix(unix, 0).UTC()
}

func deriveReconciledAtISO(reconciled bool, reconciledAt int64) *time.Time {
	if !reconciled || reconciledAt <= 0 {
		return nil
	}
	t := DeriveTime(reconciledAt)
	return &t
}

func parseHash(field, value string) (id.Hash32, error) {
	h, err := id.ParseHash32(value)
	if err != nil {
		return "", dErrors.Validation(field, id.RuleHash32, value)
	}
	return h, nil
}

func parseAddress(field, value string) (id.Address, error) {
	a, err := id.ParseAddress(value)
	if err != nil {
		return "", dErrors.Validation(field, id.RuleAddress, value)
	}
	return a, nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
