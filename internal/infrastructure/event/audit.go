package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/medistock/ledger/internal/domain/shared"
)

// AuditLogHandler writes every ledger event to the structured log, giving
// an offline site a local trail of confirmations, finalisations and
// reconciliations without any external infrastructure.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates an audit handler writing to the given logger
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger}
}

// Handle logs the event
func (h *AuditLogHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	h.logger.Info("Ledger event",
		zap.String("event_type", ev.EventType()),
		zap.String("aggregate_type", ev.AggregateType()),
		zap.String("aggregate_id", ev.AggregateID().String()),
		zap.Time("occurred_at", ev.OccurredAt()),
	)
	return nil
}

// EventTypes returns an empty list so the handler receives every event
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Ensure AuditLogHandler implements EventHandler
var _ shared.EventHandler = (*AuditLogHandler)(nil)
