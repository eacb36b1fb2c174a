package service

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"treasury/internal/compliance/metrics"
	"treasury/internal/compliance/models"
	"treasury/pkg/attrs"
	id "treasury/pkg/domain"
	dErrors "treasury/pkg/domain-errors"
	"treasury/pkg/platform/audit"
	"treasury/pkg/platform/sentinel"
	"treasury/pkg/requestcontext"
)

const (
	defaultConcurrency = 4
	defaultBatchSize   = 500
	lockStripes        = 64
)

// Audit event names.
const (
	EventRecordIngested          = "record_ingested"
	EventRecordReconciled        = "record_reconciled"
	EventComplianceStatusUpdated = "compliance_status_updated"
	EventPendingReconciled       = "pending_records_reconciled"
)

// RecordStore persists compliance records keyed by record id.
type RecordStore interface {
	Create(ctx context.Context, rec *models.ComplianceRecord) error
	Save(ctx context.Context, rec *models.ComplianceRecord) error
	FindByID(ctx context.Context, recordID id.Hash32) (*models.ComplianceRecord, error)
	ListUnreconciled(ctx context.Context, limit int) ([]*models.ComplianceRecord, error)
}

// AuditPublisher records audit events for a compliance record.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// AuditReader lists the audit trail of a compliance record.
type AuditReader interface {
	ListBySubject(ctx context.Context, subject string) ([]audit.Event, error)
}

// Service orchestrates ingest, lookup, reconciliation and status updates of
// compliance records. Every mutation is a load, mutate, save sequence run
// under a per-record lock so a record is never touched by two goroutines.
type Service struct {
	store       RecordStore
	auditor     AuditPublisher
	auditTrail  AuditReader
	logger      *slog.Logger
	metrics     *metrics.Metrics
	concurrency int
	batchSize   int
	locks       [lockStripes]sync.Mutex
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditPublisher sends every record mutation to the audit trail.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithAuditReader enables AuditTrail lookups.
func WithAuditReader(r AuditReader) Option {
	return func(s *Service) {
		s.auditTrail = r
	}
}

// WithConcurrency bounds the number of records ReconcilePending saves in parallel.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithBatchSize bounds the number of records ReconcilePending loads per call.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// New constructs a Service.
func New(store RecordStore, opts ...Option) *Service {
	s := &Service{
		store:       store,
		concurrency: defaultConcurrency,
		batchSize:   defaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest validates raw input and stores the resulting record.
//
// Errors: CodeValidation when an invariant is violated, CodeConflict when a
// record with the same id exists, CodeInternal on store failure.
func (s *Service) Ingest(ctx context.Context, raw models.RawRecord) (*models.ComplianceRecord, error) {
	rec, err := models.NewComplianceRecord(raw)
	if err != nil {
		s.recordValidationFailure(ctx, err)
		return nil, err
	}

	start := time.Now()
	err = s.store.Create(ctx, rec)
	s.observeStore("create", start)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "compliance record already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store compliance record")
	}

	s.logAudit(ctx, EventRecordIngested,
		"record_id", rec.RecordID.String(),
		"source", rec.Source.String(),
		"rule_id", rec.RuleID,
		"usdc_amount", rec.USDCAmount,
	)
	if s.metrics != nil {
		s.metrics.IncrementRecordsIngested()
	}
	return rec, nil
}

// Get loads a record by its bytes32 id.
func (s *Service) Get(ctx context.Context, recordID string) (*models.ComplianceRecord, error) {
	key, err := parseRecordID(recordID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, key)
}

// Export renders a stored record as its interchange document.
func (s *Service) Export(ctx context.Context, recordID string) ([]byte, error) {
	rec, err := s.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	b, err := rec.ToJSON()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render compliance record")
	}
	return b, nil
}

// Reconcile marks a record reconciled at the request time. Reconciling an
// already reconciled record refreshes its reconciliation time.
func (s *Service) Reconcile(ctx context.Context, recordID string) (*models.ComplianceRecord, error) {
	key, err := parseRecordID(recordID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	return s.mutate(ctx, key, func(rec *models.ComplianceRecord) {
		rec.MarkReconciledAt(now)
	}, func(rec *models.ComplianceRecord) {
		s.logAudit(ctx, EventRecordReconciled,
			"record_id", rec.RecordID.String(),
			"reconciled_at", rec.ReconciledAt,
		)
		if s.metrics != nil {
			s.metrics.IncrementReconciliations(1)
		}
	})
}

// UpdateComplianceStatus overwrites the KYC and AML statuses of a record and
// optionally sets its external identifiers.
func (s *Service) UpdateComplianceStatus(ctx context.Context, recordID string, req *models.UpdateStatusRequest) (*models.ComplianceRecord, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	key, err := parseRecordID(recordID)
	if err != nil {
		return nil, err
	}
	req.Normalize()
	kyc, aml, err := req.Statuses()
	if err != nil {
		s.recordValidationFailure(ctx, err)
		return nil, err
	}

	return s.mutate(ctx, key, func(rec *models.ComplianceRecord) {
		rec.UpdateComplianceStatus(kyc, aml, req.CircleGatewayTxID, req.ArcTransparencyID)
	}, func(rec *models.ComplianceRecord) {
		s.logAudit(ctx, EventComplianceStatusUpdated,
			"record_id", rec.RecordID.String(),
			"kyc_status", rec.KYCStatus.String(),
			"aml_status", rec.AMLStatus.String(),
		)
		if s.metrics != nil {
			s.metrics.IncrementStatusUpdate(rec.KYCStatus.String())
		}
	})
}

// AuditTrail returns the audit events recorded for a record, oldest first.
// Without an audit reader it returns an empty trail.
func (s *Service) AuditTrail(ctx context.Context, recordID string) ([]audit.Event, error) {
	key, err := parseRecordID(recordID)
	if err != nil {
		return nil, err
	}
	if s.auditTrail == nil {
		return []audit.Event{}, nil
	}
	events, err := s.auditTrail.ListBySubject(ctx, key.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit trail")
	}
	return events, nil
}

// ReconcilePending marks up to the configured batch size of unreconciled
// records reconciled, all at the same instant. Each record is reloaded under
// its lock, and records reconciled since the listing are skipped. It returns
// the number of records reconciled before the first failure.
func (s *Service) ReconcilePending(ctx context.Context) (int, error) {
	start := time.Now()
	pending, err := s.store.ListUnreconciled(ctx, s.batchSize)
	s.observeStore("list_unreconciled", start)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list unreconciled records")
	}
	if len(pending) == 0 {
		return 0, nil
	}

	now := requestcontext.Now(ctx)
	var reconciled atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, listed := range pending {
		listed := listed
		g.Go(func() error {
			mu := s.lockFor(listed.RecordID)
			mu.Lock()
			defer mu.Unlock()

			// The listing is a snapshot; reload so concurrent mutations are kept.
			rec, err := s.load(gctx, listed.RecordID)
			if err != nil {
				return err
			}
			if rec.Reconciled {
				return nil
			}

			rec.MarkReconciledAt(now)
			saveStart := time.Now()
			err = s.store.Save(gctx, rec)
			s.observeStore("save", saveStart)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save reconciled record")
			}
			reconciled.Add(1)
			s.logAudit(ctx, EventRecordReconciled,
				"record_id", rec.RecordID.String(),
				"reconciled_at", rec.ReconciledAt,
			)
			return nil
		})
	}
	err = g.Wait()

	n := int(reconciled.Load())
	if s.metrics != nil {
		s.metrics.IncrementReconciliations(n)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, EventPendingReconciled,
			"reconciled_count", n,
			"pending_count", len(pending),
			"reconciled_at", now.Unix(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return n, err
}

// mutate runs load, apply, save under the record's lock and calls done
// with the saved record.
func (s *Service) mutate(ctx context.Context, key id.Hash32, apply, done func(*models.ComplianceRecord)) (*models.ComplianceRecord, error) {
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	apply(rec)

	start := time.Now()
	err = s.store.Save(ctx, rec)
	s.observeStore("save", start)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save compliance record")
	}
	done(rec)
	return rec, nil
}

func (s *Service) load(ctx context.Context, key id.Hash32) (*models.ComplianceRecord, error) {
	start := time.Now()
	rec, err := s.store.FindByID(ctx, key)
	s.observeStore("find", start)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "compliance record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load compliance record")
	}
	return rec, nil
}

func (s *Service) lockFor(key id.Hash32) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.locks[h.Sum32()%lockStripes]
}

func parseRecordID(recordID string) (id.Hash32, error) {
	key, err := id.ParseHash32(recordID)
	if err != nil {
		return "", dErrors.Validation("recordId", id.RuleHash32, recordID)
	}
	return key, nil
}

func (s *Service) recordValidationFailure(ctx context.Context, err error) {
	de, ok := dErrors.As(err)
	if !ok || de.Code != dErrors.CodeValidation {
		return
	}
	if s.metrics != nil {
		s.metrics.IncrementValidationFailure(de.Field)
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "compliance record rejected",
			"field", de.Field,
			"rule", de.Rule,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) observeStore(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStore(operation, start)
	}
}

// logAudit writes the audit log line and, when a publisher is configured,
// appends the event to the record's audit trail. A failed append is logged
// and does not fail the mutation, which is already persisted.
func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	s.emitAudit(ctx, event, attributes)
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if batchID := requestcontext.BatchID(ctx); batchID != "" {
		attributes = append(attributes, "batch_id", batchID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

func (s *Service) emitAudit(ctx context.Context, event string, attributes []any) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Subject:   attrs.ExtractString(attributes, "record_id"),
		Action:    event,
		Decision:  decisionFor(attributes),
		RequestID: requestcontext.RequestID(ctx),
		BatchID:   requestcontext.BatchID(ctx),
		ActorIP:   requestcontext.ClientIP(ctx),
	})
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"event", event,
			"error", err,
		)
	}
}

// decisionFor summarises the outcome of a status update as "KYC/AML".
func decisionFor(attributes []any) string {
	kyc := attrs.ExtractString(attributes, "kyc_status")
	aml := attrs.ExtractString(attributes, "aml_status")
	if kyc == "" && aml == "" {
		return ""
	}
	return kyc + "/" + aml
}
