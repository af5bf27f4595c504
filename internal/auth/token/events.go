package token

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shelfmark/shelfmark/internal/auth/domain"
)

// Sink receives security events. Implementations must be safe for
// concurrent use; the dispatcher calls Emit from a single worker but
// nothing stops callers from using a sink directly.
type Sink interface {
	Emit(ctx context.Context, event domain.SecurityEvent)
}

// SlogSink writes events through a structured logger.
type SlogSink struct {
	Logger *slog.Logger
}

func (s SlogSink) Emit(_ context.Context, event domain.SecurityEvent) {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Warn("security_event",
		"event_type", string(event.Type),
		"principal_id", event.PrincipalID,
		"ip", event.IP,
		"user_agent", event.UserAgent,
		"path", event.Path,
		"method", event.Method,
		"at", event.Timestamp,
	)
}

// Dispatcher forwards security events to a sink asynchronously. Emit
// never blocks the request path: when the buffer is full the event is
// counted as dropped instead of queued. Close drains whatever is buffered.
type Dispatcher struct {
	sink      Sink
	ch        chan domain.SecurityEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(bufferSize int, sink Sink) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if sink == nil {
		sink = SlogSink{}
	}

	d := &Dispatcher{
		sink: sink,
		ch:   make(chan domain.SecurityEvent, bufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Emit queues an event for delivery. Best-effort: drops when full or
// closed. Safe to call on a nil dispatcher.
func (d *Dispatcher) Emit(event domain.SecurityEvent) {
	if d == nil || d.closed.Load() {
		return
	}

	select {
	case d.ch <- event:
	case <-d.done:
	default:
		d.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded because the buffer was
// full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Close stops the worker after draining buffered events.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}
