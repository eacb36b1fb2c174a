//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"treasury/pkg/platform/audit"
	"treasury/pkg/platform/audit/store/postgres"
	"treasury/pkg/testutil/containers"
)

type AuditStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestAuditStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *AuditStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func (s *AuditStoreSuite) TestAppendAndList() {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Append(ctx, audit.Event{Timestamp: base.Add(time.Minute), Subject: "0xa", Action: "record_reconciled"}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{Timestamp: base, Subject: "0xa", Action: "record_ingested", BatchID: "b1"}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{Timestamp: base, Subject: "0xb", Action: "record_ingested"}))

	events, err := s.store.ListBySubject(ctx, "0xa")
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("record_ingested", events[0].Action)
	s.Equal("b1", events[0].BatchID)
	s.Equal("record_reconciled", events[1].Action)
	s.NotEmpty(events[0].ID)
}
