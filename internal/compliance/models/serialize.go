package models

import (
	"encoding/json"
	"fmt"
	"time"

	dErrors "treasury/pkg/domain-errors"
)

// ToMap returns the structured representation of every field that has a
// value. Absent optional fields are omitted rather than emitted as null.
// Audit timestamps are included when set.
func (r *ComplianceRecord) ToMap() map[string]any {
	m := r.interchange()
	if r.CreatedAt != nil {
		m["createdAt"] = r.CreatedAt.Format(time.RFC3339Nano)
	}
	if r.UpdatedAt != nil {
		m["updatedAt"] = r.UpdatedAt.Format(time.RFC3339Nano)
	}
	return m
}

// ToJSON renders the full interchange document consumed by the Gateway and
// transparency integrations. Audit timestamps are never emitted here.
func (r *ComplianceRecord) ToJSON() ([]byte, error) {
	b, err := json.Marshal(r.interchange())
	if err != nil {
		return nil, fmt.Errorf("marshal compliance record: %w", err)
	}
	return b, nil
}

// MarshalJSON makes the interchange document the JSON form of a record.
func (r *ComplianceRecord) MarshalJSON() ([]byte, error) {
	return r.ToJSON()
}

// ParseJSON rebuilds a validated record from an interchange document.
// Derived fields present in the document are ignored and recomputed.
//
// Errors: CodeBadRequest when the document is not structurally decodable,
// CodeValidation when a field violates an invariant.
func ParseJSON(data []byte) (*ComplianceRecord, error) {
	var raw RawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "decode compliance record")
	}
	return NewComplianceRecord(raw)
}

func (r *ComplianceRecord) interchange() map[string]any {
	m := map[string]any{
		"recordId":            r.RecordID.String(),
		"transactionHash":     r.TransactionHash.String(),
		"internalTxHash":      r.InternalTxHash.String(),
		"ruleId":              r.RuleID,
		"source":              r.Source.String(),
		"recipient":           r.Recipient.String(),
		"usdcAmount":          r.USDCAmount,
		"usdcAmountFormatted": json.Number(r.USDCAmountFormatted.String()),
		"kycStatus":           r.KYCStatus.String(),
		"amlStatus":           r.AMLStatus.String(),
		"timestamp":           r.Timestamp,
		"timestampISO":        r.TimestampISO.Format(time.RFC3339),
		"blockNumber":         r.BlockNumber,
		"executor":            r.Executor.String(),
		"reconciled":          r.Reconciled,
		"reconciledAt":        r.ReconciledAt,
	}
	if r.CircleGatewayTxID != nil {
		m["circleGatewayTxId"] = *r.CircleGatewayTxID
	}
	if r.ArcTransparencyID != nil {
		m["arcTransparencyId"] = *r.ArcTransparencyID
	}
	if r.ReconciledAtISO != nil {
		m["reconciledAtISO"] = r.ReconciledAtISO.Format(time.RFC3339)
	}
	if r.Metadata != nil {
		m["metadata"] = r.Metadata.ToMap()
	}
	return m
}
