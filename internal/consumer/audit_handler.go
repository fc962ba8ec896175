package consumer

import (
	"context"
	"log"
	"time"
)

// AuditHandler writes one log line per participant event.
type AuditHandler struct {
	logger *log.Logger
}

// NewAuditHandler constructs a handler writing to logger.
func NewAuditHandler(logger *log.Logger) *AuditHandler {
	return &AuditHandler{logger: logger}
}

// Handle records the roster change.
func (h *AuditHandler) Handle(_ context.Context, msg Message) error {
	event := msg.Event
	h.logger.Printf("%s activity=%q email=%s participants=%d event_id=%s occurred_at=%s partition=%d offset=%d",
		event.EventType,
		event.Activity,
		event.Email,
		event.ParticipantCount,
		event.EventID,
		event.OccurredAt.Format(time.RFC3339),
		msg.Partition,
		msg.Offset,
	)
	return nil
}
