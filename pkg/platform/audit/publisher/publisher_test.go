package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treasury/pkg/platform/audit"
	"treasury/pkg/platform/audit/store/memory"
)

type failingStore struct {
	audit.Store
}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("disk full")
}

func TestEmit(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("EST", -5*3600))

	t.Run("stamps missing timestamps in UTC", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		p := New(store, WithClock(func() time.Time { return fixed }))

		require.NoError(t, p.Emit(ctx, audit.Event{Subject: "0xabc", Action: "record_ingested"}))

		events, err := store.ListBySubject(ctx, "0xabc")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, fixed.UTC(), events[0].Timestamp)
		assert.NotEmpty(t, events[0].ID)
	})

	t.Run("rejects incomplete events", func(t *testing.T) {
		p := New(memory.NewInMemoryStore())
		assert.ErrorIs(t, p.Emit(ctx, audit.Event{Action: "record_ingested"}), ErrMissingSubject)
		assert.ErrorIs(t, p.Emit(ctx, audit.Event{Subject: "0xabc"}), ErrMissingAction)
	})

	t.Run("surfaces store failures", func(t *testing.T) {
		p := New(failingStore{})
		err := p.Emit(ctx, audit.Event{Subject: "0xabc", Action: "record_reconciled"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}
