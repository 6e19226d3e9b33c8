package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event is a typed notification raised by the wave subsystem.
type Event struct {
	Type      string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event.
type HandlerFunc func(Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
	name       string
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Named labels the subscriber in logs and metrics.
func Named(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// Dispatcher fans events out to every handler subscribed to their type.
type Dispatcher struct {
	logger Logger

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	published metric.Int64Counter
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
	buffers  map[string]chan Event
	wg       sync.WaitGroup
	closed   bool
}

const instrumentationName = "github.com/cluckworks/wavedirector/internal/dispatcher"

// New creates a Dispatcher whose metrics go to the global OTel meter
// (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	return NewWithMeter(logger, otel.Meter(instrumentationName))
}

// NewWithMeter creates a Dispatcher recording game event throughput on m.
func NewWithMeter(logger Logger, m metric.Meter) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string][]HandlerFunc),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events waiting for a buffered subscriber"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for name, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("subscriber", name)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.published, err = m.Int64Counter(
		"dispatcher.events.published",
		metric.WithDescription("Total events published"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating published counter: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed by buffered subscribers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Subscribe adds a handler for the given event type with optional configuration.
// Handlers for the same type run in subscription order.
func (d *Dispatcher) Subscribe(eventType string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if cfg.name == "" {
		cfg.name = fmt.Sprintf("%s#%d", eventType, len(d.handlers[eventType]))
	}

	handler := h

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(cfg.name, cfg.bufferSize, cfg.blocking, handler)
	}

	if cfg.logged {
		handler = d.withLogging(cfg.name, handler)
	}

	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// Publish delivers e to every subscriber of e.Type. Publishing a type with
// no subscribers is not an error. Errors from individual handlers are joined.
func (d *Dispatcher) Publish(e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	// Held for the whole delivery so Close cannot close a buffer mid-send.
	// Handlers must not Subscribe or Close.
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return fmt.Errorf("dispatcher closed: %s", e.Type)
	}
	hs := d.handlers[e.Type]

	d.published.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", e.Type)))

	var errs []error
	for _, h := range hs {
		if err := h(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit is a convenience wrapper around Publish.
func (d *Dispatcher) Emit(eventType string, payload any) error {
	return d.Publish(Event{Type: eventType, Payload: payload})
}

// HasHandler returns true if anything is subscribed to the event type.
func (d *Dispatcher) HasHandler(eventType string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[eventType]) > 0
}

// Close stops accepting events and waits for buffered subscribers to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, buf := range d.buffers {
		close(buf)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// withBuffer must be called with d.mu held.
func (d *Dispatcher) withBuffer(name string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)
	d.buffers[name] = buffer

	subAttr := attribute.String("subscriber", name)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for e := range buffer {
			if err := h(e); err != nil {
				d.logger.Error("buffered handler failed", "subscriber", name, "type", e.Type, "error", err)
			}
			d.processed.Add(context.Background(), 1, metric.WithAttributes(subAttr))
		}
	}()

	if blocking {
		return func(e Event) error {
			buffer <- e
			return nil
		}
	}

	return func(e Event) error {
		select {
		case buffer <- e:
			return nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(subAttr))
			return fmt.Errorf("queue full: %s", name)
		}
	}
}

func (d *Dispatcher) withLogging(name string, h HandlerFunc) HandlerFunc {
	return func(e Event) error {
		start := time.Now()
		d.logger.Debug("handling event", "subscriber", name, "type", e.Type)

		err := h(e)

		if err != nil {
			d.logger.Error("event failed", "subscriber", name, "type", e.Type, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "subscriber", name, "type", e.Type, "duration", time.Since(start))
		}

		return err
	}
}
