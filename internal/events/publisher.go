package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sink receives emitted events.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Publisher fans events out to its sinks, synchronously by default or
// through a buffered channel when async mode is enabled.
type Publisher struct {
	sinks  []Sink
	logger *slog.Logger

	inbox  chan Event
	done   chan struct{}
	closed sync.Once
}

// PublisherOption configures a Publisher.
type PublisherOption func(p *Publisher)

// WithLogger attaches a logger for sink failures.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// WithAsyncBuffer switches the publisher to asynchronous delivery with the
// given channel capacity. When the buffer is full, Emit drops the event
// rather than block a business operation.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) { p.inbox = make(chan Event, size) }
}

// NewPublisher constructs a Publisher over the given sinks.
func NewPublisher(sinks []Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{sinks: sinks, done: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.run()
	}
	return p
}

// Emit delivers the event to every sink. Sink failures are logged and
// swallowed; delivery is best-effort.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if p.inbox == nil {
		p.deliver(ctx, event)
		return nil
	}
	select {
	case p.inbox <- event:
	default:
		if p.logger != nil {
			p.logger.Warn("event dropped, buffer full", "type", event.Type)
		}
	}
	return nil
}

// Close stops the async worker after draining buffered events.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			<-p.done
			return
		}
		close(p.done)
	})
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.inbox {
		// Detached from the request; bounded so a slow sink cannot back up
		// the inbox forever.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		p.deliver(ctx, event)
		cancel()
	}
}

func (p *Publisher) deliver(ctx context.Context, event Event) {
	for _, sink := range p.sinks {
		if err := sink.Write(ctx, event); err != nil && p.logger != nil {
			p.logger.ErrorContext(ctx, "event sink write failed",
				"type", event.Type,
				"activity_id", event.ActivityID,
				"error", err,
			)
		}
	}
}
