package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dascally/skills-getting-started-with-github-copilot/internal/domain"
)

func seedActivities() []domain.Activity {
	return []domain.Activity{
		{
			Name:            "Chess Club",
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 12,
			Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		{
			Name:            "Art Club",
			Description:     "Painting and drawing",
			Schedule:        "Thursdays",
			MaxParticipants: 15,
			Participants:    []string{},
		},
	}
}

func TestAddParticipantAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(seedActivities())

	updated, err := s.AddParticipant(ctx, "Chess Club", "new@mergington.edu")
	require.NoError(t, err)
	require.Equal(t, []string{"michael@mergington.edu", "daniel@mergington.edu", "new@mergington.edu"}, updated.Participants)

	_, err = s.AddParticipant(ctx, "Chess Club", "new@mergington.edu")
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)

	got, err := s.get("Chess Club")
	require.NoError(t, err)
	require.Len(t, got.Participants, 3)
}

func TestAddParticipantUnknownActivity(t *testing.T) {
	s := NewMemoryStore(seedActivities())

	_, err := s.AddParticipant(context.Background(), "Nonexistent Activity", "x@y.edu")
	require.ErrorIs(t, err, domain.ErrActivityNotFound)

	all, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestRemoveParticipant(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(seedActivities())

	updated, err := s.RemoveParticipant(ctx, "Chess Club", "michael@mergington.edu")
	require.NoError(t, err)
	require.Equal(t, []string{"daniel@mergington.edu"}, updated.Participants)

	_, err = s.RemoveParticipant(ctx, "Chess Club", "michael@mergington.edu")
	require.ErrorIs(t, err, domain.ErrNotRegistered)

	_, err = s.RemoveParticipant(ctx, "Nonexistent Activity", "michael@mergington.edu")
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
}

func TestSignupUnregisterRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(seedActivities())
	before, err := s.List(ctx)
	require.NoError(t, err)

	_, err = s.AddParticipant(ctx, "Art Club", "e2e@mergington.edu")
	require.NoError(t, err)
	_, err = s.RemoveParticipant(ctx, "Art Club", "e2e@mergington.edu")
	require.NoError(t, err)

	after, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestListDoesNotAliasState(t *testing.T) {
	ctx := context.Background()
	seed := seedActivities()
	s := NewMemoryStore(seed)

	seed[0].Participants[0] = "mutated@seed.edu"

	listed, err := s.List(ctx)
	require.NoError(t, err)
	listed["Chess Club"].Participants[0] = "mutated@list.edu"

	got, err := s.get("Chess Club")
	require.NoError(t, err)
	require.Equal(t, "michael@mergington.edu", got.Participants[0])
}

func TestStoresAreIsolated(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryStore(seedActivities())
	b := NewMemoryStore(seedActivities())

	_, err := a.AddParticipant(ctx, "Art Club", "only-a@mergington.edu")
	require.NoError(t, err)

	got, err := b.get("Art Club")
	require.NoError(t, err)
	require.Empty(t, got.Participants)
}

func TestConcurrentDuplicateSignupsAdmitOne(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(seedActivities())

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AddParticipant(ctx, "Art Club", "race@mergington.edu"); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, successes.Load())
	got, err := s.get("Art Club")
	require.NoError(t, err)
	require.Equal(t, []string{"race@mergington.edu"}, got.Participants)
}

func TestConcurrentDistinctSignupsAreNotLost(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(seedActivities())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AddParticipant(ctx, "Art Club", fmt.Sprintf("student%d@mergington.edu", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := s.get("Art Club")
	require.NoError(t, err)
	require.Len(t, got.Participants, 50)
}

// get reads one activity under the store lock.
func (s *MemoryStore) get(name string) (domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	activity, ok := s.activities[name]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	return activity.Clone(), nil
}
