// Package domain defines the business logic for activity signups.
package domain

import (
	"context"
	"fmt"
	"log"
	"time"
)

// EventType names a participant roster change.
type EventType string

const (
	EventSignedUp     EventType = "participant.signed_up"
	EventUnregistered EventType = "participant.unregistered"
)

// ParticipantEvent describes a roster change after it has been applied.
type ParticipantEvent struct {
	Type             EventType
	Activity         string
	Email            string
	ParticipantCount int
	OccurredAt       time.Time
}

// Repository captures roster storage operations. AddParticipant and
// RemoveParticipant must perform their check and mutation atomically.
type Repository interface {
	List(ctx context.Context) (map[string]Activity, error)
	AddParticipant(ctx context.Context, activity, email string) (Activity, error)
	RemoveParticipant(ctx context.Context, activity, email string) (Activity, error)
}

// Publisher forwards participant events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event ParticipantEvent) error
}

// NoopPublisher discards events.
type NoopPublisher struct{}

// Publish performs no action.
func (NoopPublisher) Publish(context.Context, ParticipantEvent) error { return nil }

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithLogger overrides the logger used to report publish failures.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithObserver registers a callback invoked after every signup or unregister attempt.
func WithObserver(observer Observer) Option {
	return func(s *Service) {
		s.observer = observer
	}
}

// Observer receives the outcome of roster operations, typically for metrics.
type Observer interface {
	ObserveSignup(activity Activity, err error)
	ObserveUnregister(activity Activity, err error)
}

// Service orchestrates roster workflows.
type Service struct {
	repo      Repository
	publisher Publisher
	observer  Observer
	logger    *log.Logger
	now       func() time.Time
}

// NewService constructs a Service. A nil publisher disables event delivery.
func NewService(repo Repository, publisher Publisher, opts ...Option) *Service {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	s := &Service{
		repo:      repo,
		publisher: publisher,
		logger:    log.New(log.Writer(), "[domain] ", log.LstdFlags),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListActivities returns every activity keyed by name.
func (s *Service) ListActivities(ctx context.Context) (map[string]Activity, error) {
	activities, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

// Signup appends email to the named activity's roster.
func (s *Service) Signup(ctx context.Context, activity, email string) (Activity, error) {
	updated, err := s.repo.AddParticipant(ctx, activity, email)
	if s.observer != nil {
		s.observer.ObserveSignup(updated, err)
	}
	if err != nil {
		return Activity{}, fmt.Errorf("signup %q: %w", activity, err)
	}
	s.publish(ctx, EventSignedUp, updated, email)
	return updated, nil
}

// Unregister removes email from the named activity's roster.
func (s *Service) Unregister(ctx context.Context, activity, email string) (Activity, error) {
	updated, err := s.repo.RemoveParticipant(ctx, activity, email)
	if s.observer != nil {
		s.observer.ObserveUnregister(updated, err)
	}
	if err != nil {
		return Activity{}, fmt.Errorf("unregister %q: %w", activity, err)
	}
	s.publish(ctx, EventUnregistered, updated, email)
	return updated, nil
}

// publish is best-effort; the roster change has already been applied.
func (s *Service) publish(ctx context.Context, eventType EventType, activity Activity, email string) {
	event := ParticipantEvent{
		Type:             eventType,
		Activity:         activity.Name,
		Email:            email,
		ParticipantCount: len(activity.Participants),
		OccurredAt:       s.now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Printf("publish %s failed (activity=%s): %v", eventType, activity.Name, err)
	}
}
