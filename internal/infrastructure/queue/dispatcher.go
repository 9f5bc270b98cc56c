package queue

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/islab/coordinates-registry/internal/api/metrics"
	"github.com/islab/coordinates-registry/internal/core/domain"
	"github.com/islab/coordinates-registry/internal/core/ports"
)

const (
	defaultWorkers = 2
	defaultBuffer  = 256
)

// ErrQueueFull is returned by Broadcast when the chosen worker has no room left.
var ErrQueueFull = errors.New("broadcast queue full")

// Dispatcher is an asynchronous ports.Broadcaster. Events are handed to a
// fixed set of workers round-robin and delivered to the target off the
// request path.
type Dispatcher struct {
	workers []chan domain.ChangeEvent
	next    atomic.Uint64
	target  ports.Broadcaster
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers workers, each holding up
// to buffer pending events. Non-positive values fall back to defaults.
func NewDispatcher(numWorkers, buffer int, target ports.Broadcaster, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	d := &Dispatcher{
		workers: make([]chan domain.ChangeEvent, numWorkers),
		target:  target,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.ChangeEvent, buffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Broadcast enqueues event without blocking. When the worker queue is full
// the event is dropped and ErrQueueFull returned.
func (d *Dispatcher) Broadcast(_ context.Context, event domain.ChangeEvent) error {
	idx := d.nextWorker()
	select {
	case d.workers[idx] <- event:
		metrics.BroadcastQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	default:
		metrics.BroadcastsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().Str("kind", string(event.Kind)).Int("worker_id", idx).Msg("broadcast queue full, dropping event")
		return ErrQueueFull
	}
}

// nextWorker picks workers round-robin. The modulo is taken on the unsigned
// counter so the index stays in range after the counter wraps.
func (d *Dispatcher) nextWorker() int {
	return int((d.next.Add(1) - 1) % uint64(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.ChangeEvent) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			metrics.BroadcastQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if err := d.target.Broadcast(ctx, event); err != nil {
				metrics.BroadcastsTotal.WithLabelValues("failed").Inc()
				d.log.Warn().Err(err).
					Str("kind", string(event.Kind)).
					Int("worker_id", id).
					Msg("change broadcast failed")
				continue
			}
			metrics.BroadcastsTotal.WithLabelValues("sent").Inc()
		}
	}
}
