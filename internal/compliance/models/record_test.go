package models

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "treasury/pkg/domain-errors"
	"treasury/pkg/testutil"
)

const (
	testRecordID        = "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef"
	testTransactionHash = "0xabcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890"
	testInternalTxHash  = "0x9876543210fedcba9876543210fedcba9876543210fedcba9876543210fedcba"
	testAddress         = "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"
	testTimestamp       = int64(1704067200) // 2024-01-01T00:00:00Z
)

func strPtr(s string) *string { return &s }

func validRaw() RawRecord {
	return RawRecord{
		RecordID:        testRecordID,
		TransactionHash: testTransactionHash,
		InternalTxHash:  testInternalTxHash,
		RuleID:          42,
		Source:          "ALLOCATION_RULE",
		Recipient:       testAddress,
		USDCAmount:      "1000000000",
		Timestamp:       testTimestamp,
		BlockNumber:     12345678,
		Executor:        testAddress,
	}
}

func requireValidationField(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	de, ok := dErrors.As(err)
	require.True(t, ok, "expected coded error, got %T", err)
	assert.Equal(t, dErrors.CodeValidation, de.Code)
	assert.Equal(t, field, de.Field)
	assert.NotEmpty(t, de.Rule)
}

func TestNewComplianceRecord_Scenario(t *testing.T) {
	rec, err := NewComplianceRecord(validRaw())
	require.NoError(t, err)

	assert.True(t, rec.USDCAmountFormatted.Equal(decimal.NewFromInt(1000)), "got %s", rec.USDCAmountFormatted)
	assert.Equal(t, time.Unix(testTimestamp, 0).UTC(), rec.TimestampISO)
	assert.Nil(t, rec.ReconciledAtISO)
	assert.False(t, rec.Reconciled)
	assert.Equal(t, int64(0), rec.ReconciledAt)
	assert.Equal(t, StateUnreconciled, rec.State())
	assert.Equal(t, StatusUnknown, rec.KYCStatus, "kyc defaults to UNKNOWN")
	assert.Equal(t, StatusUnknown, rec.AMLStatus, "aml defaults to UNKNOWN")
	assert.Nil(t, rec.CircleGatewayTxID)
	assert.Nil(t, rec.Metadata)
}

func TestNewComplianceRecord_IdentifierFormats(t *testing.T) {
	mutators := map[string]func(r *RawRecord, v string){
		"recordId":        func(r *RawRecord, v string) { r.RecordID = v },
		"transactionHash": func(r *RawRecord, v string) { r.TransactionHash = v },
		"internalTxHash":  func(r *RawRecord, v string) { r.InternalTxHash = v },
	}
	bad := map[string]string{
		"wrong length":   testRecordID[:65],
		"missing prefix": testRecordID[2:] + "00",
		"non-hex":        "0x" + strings.Repeat("x", 64),
		"empty":          "",
	}

	for field, set := range mutators {
		t.Run(field+" accepts uppercase hex", func(t *testing.T) {
			raw := validRaw()
			set(&raw, "0x"+strings.ToUpper(testRecordID[2:]))
			_, err := NewComplianceRecord(raw)
			require.NoError(t, err)
		})
		for name, value := range bad {
			t.Run(field+" rejects "+name, func(t *testing.T) {
				raw := validRaw()
				set(&raw, value)
				_, err := NewComplianceRecord(raw)
				requireValidationField(t, err, field)
			})
		}
	}
}

func TestNewComplianceRecord_AddressFormats(t *testing.T) {
	t.Run("39 hex digit address is rejected", func(t *testing.T) {
		raw := validRaw()
		raw.Recipient = "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb"
		_, err := NewComplianceRecord(raw)
		requireValidationField(t, err, "recipient")
	})

	t.Run("executor is checked independently", func(t *testing.T) {
		raw := validRaw()
		raw.Executor = "742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"
		_, err := NewComplianceRecord(raw)
		requireValidationField(t, err, "executor")
	})
}

func TestNewComplianceRecord_Amount(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"1000000000", "1000"},
		{"1", "0.000001"},
		{"0", "0"},
		{"1500000", "1.5"},
		{"000123", "0.000123"},
		{"115792089237316195423570985008687907853269984665640564039457584007913129639935",
			"115792089237316195423570985008687907853269984665640564039457584007913129.639935"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			raw := validRaw()
			raw.USDCAmount = tt.amount
			rec, err := NewComplianceRecord(raw)
			require.NoError(t, err)
			assert.True(t, rec.USDCAmountFormatted.Equal(decimal.RequireFromString(tt.want)),
				"want %s, got %s", tt.want, rec.USDCAmountFormatted)
			assert.Equal(t, tt.amount, rec.USDCAmount, "canonical amount is kept verbatim")
		})
	}

	t.Run("one unit is exactly one millionth", func(t *testing.T) {
		raw := validRaw()
		raw.USDCAmount = "1"
		rec, err := NewComplianceRecord(raw)
		require.NoError(t, err)
		assert.Equal(t, "0.000001", rec.USDCAmountFormatted.String())
	})

	for _, bad := range []string{"", "-1", "+1", "1.5", "0x10", "1e6", " 1", "1\n"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			raw := validRaw()
			raw.USDCAmount = bad
			_, err := NewComplianceRecord(raw)
			requireValidationField(t, err, "usdcAmount")
		})
	}
}

func TestNewComplianceRecord_EnumClosure(t *testing.T) {
	t.Run("kycStatus BOGUS", func(t *testing.T) {
		raw := validRaw()
		raw.KYCStatus = "BOGUS"
		_, err := NewComplianceRecord(raw)
		requireValidationField(t, err, "kycStatus")
	})

	t.Run("amlStatus lowercase tag", func(t *testing.T) {
		raw := validRaw()
		raw.AMLStatus = "verified"
		_, err := NewComplianceRecord(raw)
		requireValidationField(t, err, "amlStatus")
	})

	t.Run("unknown source", func(t *testing.T) {
		raw := validRaw()
		raw.Source = "AIRDROP"
		_, err := NewComplianceRecord(raw)
		requireValidationField(t, err, "source")
	})

	t.Run("missing source", func(t *testing.T) {
		raw := validRaw()
		raw.Source = ""
		_, err := NewComplianceRecord(raw)
		requireValidationField(t, err, "source")
	})

	t.Run("every declared status is accepted", func(t *testing.T) {
		for st := range validStatuses {
			raw := validRaw()
			raw.KYCStatus = st.String()
			raw.AMLStatus = st.String()
			rec, err := NewComplianceRecord(raw)
			require.NoError(t, err, st)
			assert.Equal(t, st, rec.KYCStatus)
		}
	})
}

func TestNewComplianceRecord_Ranges(t *testing.T) {
	mutators := map[string]func(r *RawRecord){
		"ruleId":       func(r *RawRecord) { r.RuleID = -1 },
		"timestamp":    func(r *RawRecord) { r.Timestamp = -1 },
		"blockNumber":  func(r *RawRecord) { r.BlockNumber = -1 },
		"reconciledAt": func(r *RawRecord) { r.ReconciledAt = -5 },
	}
	for field, mutate := range mutators {
		t.Run(field, func(t *testing.T) {
			raw := validRaw()
			mutate(&raw)
			_, err := NewComplianceRecord(raw)
			requireValidationField(t, err, field)
		})
	}
}

func TestNewComplianceRecord_Metadata(t *testing.T) {
	t.Run("valid jurisdiction", func(t *testing.T) {
		raw := validRaw()
		raw.Metadata = &Metadata{Jurisdiction: strPtr("US"), RegulatoryCategory: strPtr("PAYROLL")}
		rec, err := NewComplianceRecord(raw)
		require.NoError(t, err)
		require.NotNil(t, rec.Metadata)
		assert.Equal(t, strPtr("US"), rec.Metadata.Jurisdiction)
	})

	t.Run("metadata without jurisdiction", func(t *testing.T) {
		raw := validRaw()
		raw.Metadata = &Metadata{Notes: strPtr("free text")}
		_, err := NewComplianceRecord(raw)
		require.NoError(t, err)
	})

	for _, bad := range []string{"us", "USA", "U5"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			raw := validRaw()
			raw.Metadata = &Metadata{Jurisdiction: strPtr(bad)}
			_, err := NewComplianceRecord(raw)
			requireValidationField(t, err, "metadata.jurisdiction")
		})
	}

	t.Run("input metadata is copied", func(t *testing.T) {
		raw := validRaw()
		raw.Metadata = &Metadata{Jurisdiction: strPtr("US")}
		rec, err := NewComplianceRecord(raw)
		require.NoError(t, err)
		*raw.Metadata.Jurisdiction = "DE"
		assert.Equal(t, "US", *rec.Metadata.Jurisdiction)
	})
}

// TestNewComplianceRecord_FailFastOrder pins which violation is reported when
// several are present: formats, then ranges, then metadata.
func TestNewComplianceRecord_FailFastOrder(t *testing.T) {
	t.Run("identifier before status", func(t *testing.T) {
		raw := validRaw()
		raw.RecordID = "bad"
		raw.KYCStatus = "BOGUS"
		_, err := NewComplianceRecord(raw)
		requireValidationField(t, err, "recordId")
	})

	t.Run("format before range", func(t *testing.T) {
		raw := validRaw()
		raw.USDCAmount = "-1"
		raw.Timestamp = -1
		_, err := NewComplianceRecord(raw)
		requireValidationField(t, err, "usdcAmount")
	})

	t.Run("range before metadata", func(t *testing.T) {
		raw := validRaw()
		raw.BlockNumber = -1
		raw.Metadata = &Metadata{Jurisdiction: strPtr("xx")}
		_, err := NewComplianceRecord(raw)
		requireValidationField(t, err, "blockNumber")
	})
}

func TestReconciledAtISO_Invariant(t *testing.T) {
	tests := []struct {
		name         string
		reconciled   bool
		reconciledAt int64
		wantISO      bool
	}{
		{"unreconciled", false, 0, false},
		{"reconciled with time", true, 1704153600, true},
		{"reconciled without time", true, 0, false},
		{"stale time without flag", false, 1704153600, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			raw.Reconciled = tt.reconciled
			raw.ReconciledAt = tt.reconciledAt
			rec, err := NewComplianceRecord(raw)
			require.NoError(t, err)
			assertReconciledInvariant(t, rec)
			assert.Equal(t, tt.wantISO, rec.ReconciledAtISO != nil)
		})
	}
}

func assertReconciledInvariant(t *testing.T, rec *ComplianceRecord) {
	t.Helper()
	want := rec.Reconciled && rec.ReconciledAt > 0
	assert.Equal(t, want, rec.ReconciledAtISO != nil, "reconciledAtISO present iff reconciled && reconciledAt > 0")
	if rec.ReconciledAtISO != nil {
		assert.Equal(t, rec.ReconciledAt, rec.ReconciledAtISO.Unix())
	}
}

func TestMarkReconciled(t *testing.T) {
	testutil.Given(t, "an unreconciled record", func(t *testing.T) {
		rec, err := NewComplianceRecord(validRaw())
		require.NoError(t, err)
		assertReconciledInvariant(t, rec)

		testutil.When(t, "it is marked reconciled", func(t *testing.T) {
			before := time.Now().Unix()
			rec.MarkReconciled()
			after := time.Now().Unix()

			testutil.Then(t, "it carries the current time and a consistent ISO value", func(t *testing.T) {
				assert.True(t, rec.Reconciled)
				assert.Equal(t, StateReconciled, rec.State())
				assert.GreaterOrEqual(t, rec.ReconciledAt, before)
				assert.LessOrEqual(t, rec.ReconciledAt, after)
				require.NotNil(t, rec.ReconciledAtISO)
				assert.Equal(t, DeriveTime(rec.ReconciledAt), *rec.ReconciledAtISO)
				assertReconciledInvariant(t, rec)
			})
		})
	})

	t.Run("second call stays reconciled and refreshes the time", func(t *testing.T) {
		rec, err := NewComplianceRecord(validRaw())
		require.NoError(t, err)

		first := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
		second := first.Add(time.Hour)

		rec.MarkReconciledAt(first)
		assert.True(t, rec.Reconciled)
		assert.Equal(t, first.Unix(), rec.ReconciledAt)

		require.NotPanics(t, func() { rec.MarkReconciledAt(second) })
		assert.True(t, rec.Reconciled)
		assert.Equal(t, second.Unix(), rec.ReconciledAt)
		assert.Equal(t, second, *rec.ReconciledAtISO)
		assertReconciledInvariant(t, rec)
	})

	t.Run("returns the same record", func(t *testing.T) {
		rec, err := NewComplianceRecord(validRaw())
		require.NoError(t, err)
		assert.Same(t, rec, rec.MarkReconciled())
	})

	t.Run("pre-epoch instant leaves no ISO value", func(t *testing.T) {
		rec, err := NewComplianceRecord(validRaw())
		require.NoError(t, err)

		rec.MarkReconciledAt(time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, StateReconciled, rec.State())
		assert.Zero(t, rec.ReconciledAt)
		assert.Nil(t, rec.ReconciledAtISO)
		assertReconciledInvariant(t, rec)
	})
}

func TestUpdateComplianceStatus(t *testing.T) {
	t.Run("sets statuses and a first gateway id", func(t *testing.T) {
		rec, err := NewComplianceRecord(validRaw())
		require.NoError(t, err)

		rec.UpdateComplianceStatus(StatusVerified, StatusVerified, "cg_tx_1", "")
		assert.Equal(t, StatusVerified, rec.KYCStatus)
		assert.Equal(t, StatusVerified, rec.AMLStatus)
		require.NotNil(t, rec.CircleGatewayTxID)
		assert.Equal(t, "cg_tx_1", *rec.CircleGatewayTxID)
		assert.Nil(t, rec.ArcTransparencyID)

		rec.UpdateComplianceStatus(StatusVerified, StatusVerified, "", "")
		require.NotNil(t, rec.CircleGatewayTxID)
		assert.Equal(t, "cg_tx_1", *rec.CircleGatewayTxID, "omitted gateway id leaves the value untouched")
	})

	t.Run("allows regressions", func(t *testing.T) {
		raw := validRaw()
		raw.KYCStatus = "VERIFIED"
		raw.AMLStatus = "VERIFIED"
		rec, err := NewComplianceRecord(raw)
		require.NoError(t, err)

		rec.UpdateComplianceStatus(StatusRejected, StatusPending, "", "")
		assert.Equal(t, StatusRejected, rec.KYCStatus)
		assert.Equal(t, StatusPending, rec.AMLStatus)
	})

	t.Run("replaces ids when new values are given", func(t *testing.T) {
		raw := validRaw()
		raw.CircleGatewayTxID = strPtr("cg_old")
		raw.ArcTransparencyID = strPtr("arc_old")
		rec, err := NewComplianceRecord(raw)
		require.NoError(t, err)

		rec.UpdateComplianceStatus(StatusExempt, StatusExempt, "cg_new", "arc_new")
		assert.Equal(t, "cg_new", *rec.CircleGatewayTxID)
		assert.Equal(t, "arc_new", *rec.ArcTransparencyID)
	})

	t.Run("does not touch reconciliation", func(t *testing.T) {
		rec, err := NewComplianceRecord(validRaw())
		require.NoError(t, err)
		rec.UpdateComplianceStatus(StatusVerified, StatusVerified, "cg", "arc")
		assert.Equal(t, StateUnreconciled, rec.State())
		assertReconciledInvariant(t, rec)
	})
}

func TestRaw_RoundTrip(t *testing.T) {
	raw := validRaw()
	raw.KYCStatus = "PENDING"
	raw.CircleGatewayTxID = strPtr("cg_tx_1")
	raw.Reconciled = true
	raw.ReconciledAt = 1704153600
	raw.Metadata = &Metadata{Jurisdiction: strPtr("US"), Notes: strPtr("n")}

	rec, err := NewComplianceRecord(raw)
	require.NoError(t, err)

	again, err := NewComplianceRecord(rec.Raw())
	require.NoError(t, err)
	assert.Equal(t, rec, again)
}
