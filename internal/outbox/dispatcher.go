// Package outbox buffers participant events in memory and delivers them to Kafka.
package outbox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/dascally/skills-getting-started-with-github-copilot/internal/domain"
	"github.com/dascally/skills-getting-started-with-github-copilot/internal/events"
)

// ErrQueueFull is returned by Publish when the outbox cannot accept more events.
var ErrQueueFull = errors.New("outbox queue full")

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// Config contains tunables for the Dispatcher.
type Config struct {
	Topic        string
	PollInterval time.Duration
	BatchSize    int
	QueueSize    int
	MaxAttempts  int
	FlushTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 5 * time.Second
	}
	return c
}

// Option configures optional behaviour for the Dispatcher.
type Option func(*Dispatcher)

// WithLogger overrides the logger used to report delivery errors.
func WithLogger(logger *log.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// Dispatcher implements domain.Publisher. Publish never blocks on Kafka; a
// background loop started with Start drains the queue in batches.
type Dispatcher struct {
	producer         messageWriter
	cfg              Config
	queue            chan events.ParticipantChanged
	pending          []pendingMessage
	logger           *log.Logger
	shutdownComplete chan struct{}
}

type pendingMessage struct {
	record   kafka.Message
	attempts int
}

var _ domain.Publisher = (*Dispatcher)(nil)

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(producer messageWriter, cfg Config, opts ...Option) *Dispatcher {
	cfg = cfg.withDefaults()
	d := &Dispatcher{
		producer:         producer,
		cfg:              cfg,
		queue:            make(chan events.ParticipantChanged, cfg.QueueSize),
		logger:           log.New(log.Writer(), "[outbox] ", log.LstdFlags),
		shutdownComplete: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish enqueues the event for asynchronous delivery.
func (d *Dispatcher) Publish(_ context.Context, event domain.ParticipantEvent) error {
	payload := events.ParticipantChanged{
		EventID:          uuid.NewString(),
		EventType:        string(event.Type),
		Activity:         event.Activity,
		Email:            event.Email,
		ParticipantCount: event.ParticipantCount,
		OccurredAt:       event.OccurredAt,
	}

	select {
	case d.queue <- payload:
		queuedCounter.Inc()
		return nil
	default:
		droppedCounter.Inc()
		return ErrQueueFull
	}
}

// Start launches the delivery loop. It should be called in a goroutine and
// flushes whatever is queued once ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer func() {
		ticker.Stop()
		close(d.shutdownComplete)
	}()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), d.cfg.FlushTimeout)
			d.drain(flushCtx)
			cancel()
			d.abandon()
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

// Wait waits until the dispatcher stops.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

// drain delivers batches until the queue is empty or a batch fails.
func (d *Dispatcher) drain(ctx context.Context) {
	for {
		d.fill()
		if len(d.pending) == 0 {
			return
		}
		if err := d.processBatch(ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				d.logger.Printf("delivery failure: %v", err)
			}
			return
		}
	}
}

// fill moves queued events into the pending batch without blocking.
func (d *Dispatcher) fill() {
	for len(d.pending) < d.cfg.BatchSize {
		select {
		case event := <-d.queue:
			record, err := encodeMessage(event)
			if err != nil {
				d.logger.Printf("encode error (event_id=%s): %v", event.EventID, err)
				failedCounter.Inc()
				continue
			}
			d.pending = append(d.pending, pendingMessage{record: record})
		default:
			return
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	start := time.Now()
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	records := make([]kafka.Message, 0, len(d.pending))
	for _, p := range d.pending {
		records = append(records, p.record)
	}

	err := d.producer.WriteMessages(ctx, d.cfg.Topic, records...)
	if err == nil {
		deliveredCounter.Add(float64(len(records)))
		d.pending = d.pending[:0]
		return nil
	}

	// kafka.WriteErrors reports per-message results; anything else fails the whole batch.
	var perMessage kafka.WriteErrors
	partial := errors.As(err, &perMessage) && len(perMessage) == len(d.pending)

	kept := d.pending[:0]
	for i, p := range d.pending {
		if partial && perMessage[i] == nil {
			deliveredCounter.Inc()
			continue
		}
		p.attempts++
		if p.attempts >= d.cfg.MaxAttempts {
			failedCounter.Inc()
			continue
		}
		kept = append(kept, p)
	}
	d.pending = kept
	return err
}

// abandon counts events still pending or queued once the final flush is over.
func (d *Dispatcher) abandon() {
	left := len(d.pending) + len(d.queue)
	if left == 0 {
		return
	}
	d.logger.Printf("shutdown: abandoning %d undelivered participant events", left)
	failedCounter.Add(float64(left))
	d.pending = nil
	for len(d.queue) > 0 {
		<-d.queue
	}
}

func encodeMessage(event events.ParticipantChanged) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal participant event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.Activity),
		Value: encodeWireFormat(events.SchemaID, payload),
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_subject", Value: []byte(events.SchemaSubject)},
		},
	}, nil
}

// encodeWireFormat applies Confluent framing: magic byte, schema id, payload.
func encodeWireFormat(schemaID int, payload []byte) []byte {
	frame := make([]byte, 5+len(payload))
	frame[0] = 0
	binary.BigEndian.PutUint32(frame[1:5], uint32(schemaID))
	copy(frame[5:], payload)
	return frame
}
