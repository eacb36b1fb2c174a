package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegisterer(reg)

	m.IncrementRecordsIngested()
	m.IncrementRecordsIngested()
	m.IncrementValidationFailure("recipient")
	m.IncrementValidationFailure("")
	m.IncrementReconciliations(3)
	m.IncrementStatusUpdate("VERIFIED")
	m.ObserveStore("save", time.Now())

	assert.InDelta(t, 2, testutil.ToFloat64(m.RecordsIngested), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ValidationFailures.WithLabelValues("recipient")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ValidationFailures.WithLabelValues("unknown")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.Reconciliations), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.StatusUpdates.WithLabelValues("VERIFIED")), 0)

	count, err := testutil.GatherAndCount(reg, "treasury_compliance_store_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
