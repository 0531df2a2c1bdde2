package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/expohall/expohall/internal/identity/domain"
)

// Audit receives security-relevant events for append-only recording. The
// default sink writes structured log lines; deployments can plug in any
// other append-only collaborator.
type Audit interface {
	Record(ctx context.Context, event domain.AuditEvent)
}

// SlogAudit records audit events to the structured log.
type SlogAudit struct {
	Logger *slog.Logger
}

func (a *SlogAudit) Record(ctx context.Context, event domain.AuditEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("audit_event",
		"action", string(event.Action),
		"user_id", event.UserID,
		"occurred_at", event.OccurredAt.Format(time.RFC3339),
	)
}
