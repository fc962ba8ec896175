package consumer

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/dascally/skills-getting-started-with-github-copilot/internal/events"
)

func frame(schemaID uint32, payload []byte) []byte {
	value := make([]byte, 5+len(payload))
	value[0] = 0
	binary.BigEndian.PutUint32(value[1:5], schemaID)
	copy(value[5:], payload)
	return value
}

func signedUp(activity, email string) events.ParticipantChanged {
	return events.ParticipantChanged{
		EventID:          "evt-" + email,
		EventType:        "participant.signed_up",
		Activity:         activity,
		Email:            email,
		ParticipantCount: 3,
		OccurredAt:       time.Date(2025, 9, 1, 15, 30, 0, 0, time.UTC),
	}
}

// participantRecord frames event the way the outbox dispatcher does.
func participantRecord(t *testing.T, event events.ParticipantChanged, offset int64) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{
		Topic:  "participant_events",
		Offset: offset,
		Key:    []byte(event.Activity),
		Value:  frame(events.SchemaID, payload),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_subject", Value: []byte(events.SchemaSubject)},
		},
	}
}

func quietProcessor(t *testing.T, reader Reader, handler Handler) *Processor {
	return NewProcessor(reader, handler,
		WithLogger(log.New(testWriter{t}, "", 0)),
		WithFetchBackoff(time.Millisecond),
	)
}

func TestProcessorHandsTypedEventAndCommits(t *testing.T) {
	event := signedUp("Chess Club", "test@mergington.edu")
	before := testutil.ToFloat64(participantEventsCounter.WithLabelValues(event.EventType, "Chess Club"))

	reader := &stubReader{messages: []kafka.Message{participantRecord(t, event, 10)}}
	handler := &stubHandler{}

	require.ErrorIs(t, quietProcessor(t, reader, handler).Run(context.Background()), context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	got := handler.last.Event
	require.Equal(t, event.EventID, got.EventID)
	require.Equal(t, event.EventType, got.EventType)
	require.Equal(t, event.Email, got.Email)
	require.Equal(t, event.ParticipantCount, got.ParticipantCount)
	require.True(t, event.OccurredAt.Equal(got.OccurredAt))
	require.Equal(t, int64(10), handler.last.Offset)
	require.Equal(t, before+1, testutil.ToFloat64(participantEventsCounter.WithLabelValues(event.EventType, "Chess Club")))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	event := signedUp("Drama Club", "ana@mergington.edu")
	event.EventType = "participant.unregistered"
	before := testutil.ToFloat64(auditFailuresCounter.WithLabelValues(event.EventType, "Drama Club"))

	reader := &stubReader{messages: []kafka.Message{participantRecord(t, event, 20)}}
	handler := &stubHandler{err: errors.New("boom")}

	require.ErrorIs(t, quietProcessor(t, reader, handler).Run(context.Background()), context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
	require.Equal(t, before+1, testutil.ToFloat64(auditFailuresCounter.WithLabelValues(event.EventType, "Drama Club")))
}

func TestProcessorRejectsRecordsOutsideParticipantSchema(t *testing.T) {
	valid := signedUp("Chess Club", "test@mergington.edu")

	wrongID := participantRecord(t, valid, 1)
	binary.BigEndian.PutUint32(wrongID.Value[1:5], events.SchemaID+1)

	wrongSubject := participantRecord(t, valid, 2)
	wrongSubject.Headers[1].Value = []byte("activity_events-value")

	unknownType := participantRecord(t, valid, 3)
	unknownType.Headers[0].Value = []byte("participant.renamed")

	missingEmail := valid
	missingEmail.Email = ""

	disagreeing := participantRecord(t, valid, 5)
	disagreeing.Headers[0].Value = []byte("participant.unregistered")

	wrongKey := participantRecord(t, valid, 6)
	wrongKey.Key = []byte("Art Club")

	cases := map[string]struct {
		record kafka.Message
		reason string
	}{
		"short":          {kafka.Message{Value: []byte{0, 1}}, reasonFraming},
		"magic byte":     {kafka.Message{Value: []byte{1, 0, 0, 0, 1, '{', '}'}}, reasonFraming},
		"schema id":      {wrongID, reasonSchema},
		"schema subject": {wrongSubject, reasonSchema},
		"event type":     {unknownType, reasonSchema},
		"missing email":  {participantRecord(t, missingEmail, 4), reasonPayload},
		"type mismatch":  {disagreeing, reasonPayload},
		"key mismatch":   {wrongKey, reasonPayload},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			before := testutil.ToFloat64(rejectedCounter.WithLabelValues(tc.reason))
			reader := &stubReader{messages: []kafka.Message{tc.record}}
			handler := &stubHandler{}

			require.ErrorIs(t, quietProcessor(t, reader, handler).Run(context.Background()), context.Canceled)

			require.Equal(t, 0, handler.calls)
			require.Equal(t, 1, reader.commitCalls)
			require.Equal(t, before+1, testutil.ToFloat64(rejectedCounter.WithLabelValues(tc.reason)))
		})
	}
}

func TestDecodeFillsMissingFieldsFromRecord(t *testing.T) {
	event := signedUp("Choir", "lee@mergington.edu")
	event.EventType = ""
	event.OccurredAt = time.Time{}
	record := participantRecord(t, event, 7)
	record.Headers[0].Value = []byte("participant.signed_up")
	record.Time = time.Date(2025, 9, 2, 8, 0, 0, 0, time.UTC)

	msg, err := decodeMessage(record)
	require.NoError(t, err)
	require.Equal(t, "participant.signed_up", msg.Event.EventType)
	require.True(t, record.Time.Equal(msg.Event.OccurredAt))
}

func TestProcessorBacksOffAfterFetchError(t *testing.T) {
	reader := &stubReader{fetchErrs: []error{errors.New("broker unreachable")}}

	require.ErrorIs(t, quietProcessor(t, reader, &stubHandler{}).Run(context.Background()), context.Canceled)
	require.Equal(t, 0, reader.commitCalls)
}

func TestProcessorStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &stubReader{fetchErrs: []error{errors.New("broker unreachable")}}
	processor := NewProcessor(reader, &stubHandler{},
		WithLogger(log.New(testWriter{t}, "", 0)),
		WithFetchBackoff(time.Hour),
	)

	done := make(chan error, 1)
	go func() { done <- processor.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("processor did not stop after cancellation")
	}
}

func TestAuditHandlerLogsEvent(t *testing.T) {
	var buf bytes.Buffer
	handler := NewAuditHandler(log.New(&buf, "", 0))

	err := handler.Handle(context.Background(), Message{
		Partition: 2,
		Offset:    41,
		Event: events.ParticipantChanged{
			EventID:          "e-1",
			EventType:        "participant.signed_up",
			Activity:         "Chess Club",
			Email:            "test@mergington.edu",
			ParticipantCount: 3,
			OccurredAt:       time.Date(2025, 9, 1, 15, 30, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)
	require.Contains(t, buf.String(), `participant.signed_up activity="Chess Club" email=test@mergington.edu participants=3`)
	require.Contains(t, buf.String(), "event_id=e-1 occurred_at=2025-09-01T15:30:00Z partition=2 offset=41")
}

type stubReader struct {
	messages    []kafka.Message
	fetchErrs   []error
	index       int
	commitCalls int
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		return kafka.Message{}, err
	}
	if r.index >= len(r.messages) {
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
