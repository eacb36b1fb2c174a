package handler

import (
	"time"

	"treasury/pkg/platform/audit"
)

// ReconcilePendingResponse reports how many records a batch reconciled.
type ReconcilePendingResponse struct {
	Reconciled int `json:"reconciled"`
}

// AuditEventResponse is one entry of a record's audit trail.
type AuditEventResponse struct {
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
	Decision  string `json:"decision,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	BatchID   string `json:"batchId,omitempty"`
	ActorIP   string `json:"actorIp,omitempty"`
}

// AuditTrailResponse lists the audit events of a record, oldest first.
type AuditTrailResponse struct {
	RecordID string               `json:"recordId"`
	Events   []AuditEventResponse `json:"events"`
}

func toAuditTrailResponse(recordID string, events []audit.Event) AuditTrailResponse {
	resp := AuditTrailResponse{
		RecordID: recordID,
		Events:   make([]AuditEventResponse, 0, len(events)),
	}
	for _, e := range events {
		resp.Events = append(resp.Events, AuditEventResponse{
			Action:    e.Action,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Decision:  e.Decision,
			RequestID: e.RequestID,
			BatchID:   e.BatchID,
			ActorIP:   e.ActorIP,
		})
	}
	return resp
}
