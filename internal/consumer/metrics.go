package consumer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dascally/skills-getting-started-with-github-copilot/internal/events"
)

var (
	participantEventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mergington",
		Subsystem: "audit",
		Name:      "participant_events_total",
		Help:      "Participant events audited, by event type and activity.",
	}, []string{"event_type", "activity"})

	auditFailuresCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mergington",
		Subsystem: "audit",
		Name:      "failures_total",
		Help:      "Participant events the audit handler could not record, by event type and activity.",
	}, []string{"event_type", "activity"})

	rejectedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mergington",
		Subsystem: "audit",
		Name:      "rejected_records_total",
		Help:      "Records skipped before auditing, by reason (framing, schema, payload).",
	}, []string{"reason"})

	lastEventGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mergington",
		Subsystem: "audit",
		Name:      "last_event_timestamp_seconds",
		Help:      "Occurrence time of the newest audited roster change per activity.",
	}, []string{"activity"})
)

func init() {
	prometheus.MustRegister(participantEventsCounter, auditFailuresCounter, rejectedCounter, lastEventGauge)
}

func recordProcessed(event events.ParticipantChanged) {
	participantEventsCounter.WithLabelValues(event.EventType, event.Activity).Inc()
	if !event.OccurredAt.IsZero() {
		lastEventGauge.WithLabelValues(event.Activity).Set(float64(event.OccurredAt.Unix()))
	}
}

func recordHandlerError(event events.ParticipantChanged) {
	auditFailuresCounter.WithLabelValues(event.EventType, event.Activity).Inc()
}

func recordRejected(reason string) {
	rejectedCounter.WithLabelValues(reason).Inc()
}
