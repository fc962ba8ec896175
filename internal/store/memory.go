// Package store holds the in-memory activity roster.
package store

import (
	"context"
	"sync"

	"github.com/dascally/skills-getting-started-with-github-copilot/internal/domain"
)

// MemoryStore keeps activities in memory for the lifetime of the process.
// A single lock guards every activity; no operation holds it while calling out.
type MemoryStore struct {
	mu         sync.RWMutex
	activities map[string]*domain.Activity
}

var _ domain.Repository = (*MemoryStore)(nil)

// NewMemoryStore builds an isolated store populated with copies of seed.
func NewMemoryStore(seed []domain.Activity) *MemoryStore {
	s := &MemoryStore{activities: make(map[string]*domain.Activity, len(seed))}
	for _, activity := range seed {
		clone := activity.Clone()
		s.activities[activity.Name] = &clone
	}
	return s
}

// List implements domain.Repository.
func (s *MemoryStore) List(ctx context.Context) (map[string]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.Activity, len(s.activities))
	for name, activity := range s.activities {
		out[name] = activity.Clone()
	}
	return out, nil
}

// AddParticipant implements domain.Repository.
func (s *MemoryStore) AddParticipant(ctx context.Context, name, email string) (domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	activity, ok := s.activities[name]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	if activity.HasParticipant(email) {
		return domain.Activity{}, domain.ErrAlreadyRegistered
	}
	activity.Participants = append(activity.Participants, email)
	return activity.Clone(), nil
}

// RemoveParticipant implements domain.Repository.
func (s *MemoryStore) RemoveParticipant(ctx context.Context, name, email string) (domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	activity, ok := s.activities[name]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	for i, p := range activity.Participants {
		if p == email {
			activity.Participants = append(activity.Participants[:i], activity.Participants[i+1:]...)
			return activity.Clone(), nil
		}
	}
	return domain.Activity{}, domain.ErrNotRegistered
}
