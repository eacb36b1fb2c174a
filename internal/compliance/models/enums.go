package models

import (
	"strings"

	dErrors "treasury/pkg/domain-errors"
)

// TransactionSource identifies which treasury mechanism produced a transaction.
// Invariant: the value must be one of the supported sources.
type TransactionSource string

const (
	SourceMultisigTransaction   TransactionSource = "MULTISIG_TRANSACTION"
	SourceScheduledDistribution TransactionSource = "SCHEDULED_DISTRIBUTION"
	SourceAllocationRule        TransactionSource = "ALLOCATION_RULE"
	SourceDistributionRule      TransactionSource = "DISTRIBUTION_RULE"
)

var validSources = map[TransactionSource]bool{
	SourceMultisigTransaction:   true,
	SourceScheduledDistribution: true,
	SourceAllocationRule:        true,
	SourceDistributionRule:      true,
}

var ruleSource = "must be one of " + strings.Join([]string{
	string(SourceMultisigTransaction),
	string(SourceScheduledDistribution),
	string(SourceAllocationRule),
	string(SourceDistributionRule),
}, ", ")

// ParseTransactionSource constructs a TransactionSource from external input.
// Unknown tags are rejected, never coerced.
func ParseTransactionSource(s string) (TransactionSource, error) {
	src := TransactionSource(s)
	if !src.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid transaction source")
	}
	return src, nil
}

func (s TransactionSource) IsValid() bool {
	return validSources[s]
}

func (s TransactionSource) String() string {
	return string(s)
}

// ComplianceStatus is the KYC or AML state of a transaction counterpart.
type ComplianceStatus string

const (
	StatusPending  ComplianceStatus = "PENDING"
	StatusVerified ComplianceStatus = "VERIFIED"
	StatusRejected ComplianceStatus = "REJECTED"
	StatusExempt   ComplianceStatus = "EXEMPT"
	StatusUnknown  ComplianceStatus = "UNKNOWN"
)

var validStatuses = map[ComplianceStatus]bool{
	StatusPending:  true,
	StatusVerified: true,
	StatusRejected: true,
	StatusExempt:   true,
	StatusUnknown:  true,
}

var ruleStatus = "must be one of " + strings.Join([]string{
	string(StatusPending),
	string(StatusVerified),
	string(StatusRejected),
	string(StatusExempt),
	string(StatusUnknown),
}, ", ")

// ParseComplianceStatus constructs a ComplianceStatus from external input.
// An empty value means "not provided" and yields StatusUnknown.
func ParseComplianceStatus(s string) (ComplianceStatus, error) {
	if s == "" {
		return StatusUnknown, nil
	}
	st := ComplianceStatus(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid compliance status")
	}
	return st, nil
}

func (s ComplianceStatus) IsValid() bool {
	return validStatuses[s]
}

func (s ComplianceStatus) String() string {
	return string(s)
}

// ReconciliationState is the only stateful lifecycle of a record.
// Transitions: UNRECONCILED -> RECONCILED, RECONCILED -> RECONCILED (refresh).
type ReconciliationState string

const (
	StateUnreconciled ReconciliationState = "UNRECONCILED"
	StateReconciled   ReconciliationState = "RECONCILED"
)
