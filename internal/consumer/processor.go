// Package consumer reads participant events from Kafka and hands them to a Handler.
package consumer

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dascally/skills-getting-started-with-github-copilot/internal/domain"
	"github.com/dascally/skills-getting-started-with-github-copilot/internal/events"
)

// Reader is the subset of *kafka.Reader the processor drives.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives participant events that passed decoding.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is one participant event together with where it was read from.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Event     events.ParticipantChanged
}

// Reasons a record is rejected before reaching the handler.
const (
	reasonFraming = "framing"
	reasonSchema  = "schema"
	reasonPayload = "payload"
)

type decodeError struct {
	reason string
	err    error
}

func (e *decodeError) Error() string { return e.reason + ": " + e.err.Error() }

func (e *decodeError) Unwrap() error { return e.err }

func reject(reason, format string, args ...any) error {
	return &decodeError{reason: reason, err: fmt.Errorf(format, args...)}
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithFetchBackoff sets the pause after a failed fetch.
func WithFetchBackoff(d time.Duration) Option {
	return func(p *Processor) {
		p.fetchBackoff = d
	}
}

// Processor pulls participant events from Kafka and dispatches them to a Handler.
type Processor struct {
	reader       Reader
	handler      Handler
	logger       *log.Logger
	fetchBackoff time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:       reader,
		handler:      handler,
		logger:       log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile),
		fetchBackoff: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run blocks, processing records until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		record, err := p.reader.FetchMessage(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, context.Canceled):
			return err
		case err != nil:
			p.logger.Printf("fetch error: %v", err)
			if err := p.pause(ctx); err != nil {
				return err
			}
			continue
		}

		if p.process(ctx, record) {
			if err := p.reader.CommitMessages(ctx, record); err != nil {
				p.logger.Printf("commit error (partition=%d, offset=%d): %v", record.Partition, record.Offset, err)
			}
		}
	}
}

// process reports whether record should be committed. Rejected records are
// committed so they cannot block the partition; handler failures are not.
func (p *Processor) process(ctx context.Context, record kafka.Message) bool {
	msg, err := decodeMessage(record)
	if err != nil {
		var de *decodeError
		reason := reasonPayload
		if errors.As(err, &de) {
			reason = de.reason
		}
		p.logger.Printf("rejected record (partition=%d, offset=%d): %v", record.Partition, record.Offset, err)
		recordRejected(reason)
		return true
	}

	if err := p.handler.Handle(ctx, msg); err != nil {
		p.logger.Printf("handler error (event_type=%s, activity=%q, event_id=%s): %v",
			msg.Event.EventType, msg.Event.Activity, msg.Event.EventID, err)
		recordHandlerError(msg.Event)
		return false
	}
	recordProcessed(msg.Event)
	return true
}

func (p *Processor) pause(ctx context.Context) error {
	timer := time.NewTimer(p.fetchBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// decodeMessage unwraps the schema-id framing written by the outbox and
// checks the record describes a participant roster change.
func decodeMessage(record kafka.Message) (Message, error) {
	if len(record.Value) < 5 {
		return Message{}, reject(reasonFraming, "record too short: %d bytes", len(record.Value))
	}
	if record.Value[0] != 0 {
		return Message{}, reject(reasonFraming, "unknown magic byte %d", record.Value[0])
	}
	if id := binary.BigEndian.Uint32(record.Value[1:5]); id != events.SchemaID {
		return Message{}, reject(reasonSchema, "schema id %d, want %d", id, events.SchemaID)
	}
	if subject := header(record, "schema_subject"); subject != events.SchemaSubject {
		return Message{}, reject(reasonSchema, "schema subject %q, want %q", subject, events.SchemaSubject)
	}

	eventType := header(record, "event_type")
	switch domain.EventType(eventType) {
	case domain.EventSignedUp, domain.EventUnregistered:
	default:
		return Message{}, reject(reasonSchema, "unknown event type %q", eventType)
	}

	var event events.ParticipantChanged
	dec := json.NewDecoder(bytes.NewReader(record.Value[5:]))
	if err := dec.Decode(&event); err != nil {
		return Message{}, reject(reasonPayload, "decode participant event: %v", err)
	}
	if event.EventType == "" {
		event.EventType = eventType
	}
	if event.EventType != eventType {
		return Message{}, reject(reasonPayload, "payload event type %q disagrees with header %q", event.EventType, eventType)
	}
	if event.Activity == "" || event.Email == "" {
		return Message{}, reject(reasonPayload, "event %s missing activity or email", event.EventID)
	}
	if len(record.Key) > 0 && string(record.Key) != event.Activity {
		return Message{}, reject(reasonPayload, "key %q does not match activity %q", record.Key, event.Activity)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = record.Time
	}

	return Message{
		Topic:     record.Topic,
		Partition: record.Partition,
		Offset:    record.Offset,
		Event:     event,
	}, nil
}

func header(record kafka.Message, key string) string {
	for _, h := range record.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
