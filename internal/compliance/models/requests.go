package models

import (
	"strings"

	dErrors "treasury/pkg/domain-errors"
)

// UpdateStatusRequest carries a compliance status update. Both statuses are
// required; the external identifiers are optional and only ever replace.
type UpdateStatusRequest struct {
	KYCStatus         string `json:"kycStatus" yaml:"kycStatus"`
	AMLStatus         string `json:"amlStatus" yaml:"amlStatus"`
	CircleGatewayTxID string `json:"circleGatewayTxId,omitempty" yaml:"circleGatewayTxId,omitempty"`
	ArcTransparencyID string `json:"arcTransparencyId,omitempty" yaml:"arcTransparencyId,omitempty"`
}

// Normalize trims whitespace from every field.
func (r *UpdateStatusRequest) Normalize() {
	r.KYCStatus = strings.TrimSpace(r.KYCStatus)
	r.AMLStatus = strings.TrimSpace(r.AMLStatus)
	r.CircleGatewayTxID = strings.TrimSpace(r.CircleGatewayTxID)
	r.ArcTransparencyID = strings.TrimSpace(r.ArcTransparencyID)
}

// Statuses validates and returns the requested KYC and AML statuses.
func (r *UpdateStatusRequest) Statuses() (kyc, aml ComplianceStatus, err error) {
	if r.KYCStatus == "" {
		return "", "", dErrors.Validation("kycStatus", "is required", r.KYCStatus)
	}
	if r.AMLStatus == "" {
		return "", "", dErrors.Validation("amlStatus", "is required", r.AMLStatus)
	}
	if kyc, err = ParseComplianceStatus(r.KYCStatus); err != nil {
		return "", "", dErrors.Validation("kycStatus", ruleStatus, r.KYCStatus)
	}
	if aml, err = ParseComplianceStatus(r.AMLStatus); err != nil {
		return "", "", dErrors.Validation("amlStatus", ruleStatus, r.AMLStatus)
	}
	return kyc, aml, nil
}
