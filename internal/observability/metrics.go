// Package observability exposes Prometheus metrics for roster operations.
package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dascally/skills-getting-started-with-github-copilot/internal/domain"
)

// Result label values.
const (
	ResultOK                = "ok"
	ResultNotFound          = "not_found"
	ResultAlreadyRegistered = "already_registered"
	ResultNotRegistered     = "not_registered"
	ResultError             = "error"
)

// Metrics records signup and unregister outcomes. It implements domain.Observer.
type Metrics struct {
	signups      *prometheus.CounterVec
	unregisters  *prometheus.CounterVec
	participants *prometheus.GaugeVec
}

var _ domain.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mergington",
			Subsystem: "activities",
			Name:      "signups_total",
			Help:      "Signup attempts grouped by outcome.",
		}, []string{"result"}),
		unregisters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mergington",
			Subsystem: "activities",
			Name:      "unregistrations_total",
			Help:      "Unregister attempts grouped by outcome.",
		}, []string{"result"}),
		participants: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mergington",
			Subsystem: "activities",
			Name:      "participants",
			Help:      "Current number of participants per activity.",
		}, []string{"activity"}),
	}
	reg.MustRegister(m.signups, m.unregisters, m.participants)
	return m
}

// SeedParticipants initialises the per-activity gauge from the startup roster.
func (m *Metrics) SeedParticipants(activities []domain.Activity) {
	for _, a := range activities {
		m.participants.WithLabelValues(a.Name).Set(float64(len(a.Participants)))
	}
}

// ObserveSignup implements domain.Observer.
func (m *Metrics) ObserveSignup(activity domain.Activity, err error) {
	m.signups.WithLabelValues(resultFor(err)).Inc()
	if err == nil {
		m.participants.WithLabelValues(activity.Name).Set(float64(len(activity.Participants)))
	}
}

// ObserveUnregister implements domain.Observer.
func (m *Metrics) ObserveUnregister(activity domain.Activity, err error) {
	m.unregisters.WithLabelValues(resultFor(err)).Inc()
	if err == nil {
		m.participants.WithLabelValues(activity.Name).Set(float64(len(activity.Participants)))
	}
}

func resultFor(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, domain.ErrActivityNotFound):
		return ResultNotFound
	case errors.Is(err, domain.ErrAlreadyRegistered):
		return ResultAlreadyRegistered
	case errors.Is(err, domain.ErrNotRegistered):
		return ResultNotRegistered
	default:
		return ResultError
	}
}
