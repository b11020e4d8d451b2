package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/marketlink/marketplace-web/internal/api/metrics"
	"github.com/marketlink/marketplace-web/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher routes notification events to a fixed set of workers using
// consistent hashing on the scope ID, guaranteeing per-session event ordering
// while different sessions proceed in parallel.
type Dispatcher struct {
	workers []chan ports.ScopedEvent
	service ports.EventService
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.EventService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.ScopedEvent, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.ScopedEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.runWorker(ctx, i, ch)
		}()
	}
}

// Wait blocks until every worker started by Start has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands an event to the worker responsible for its scope. It never
// blocks: when the worker channel is full the event is dropped and false is
// returned. Read loops call Enqueue while holding their connection lock, and a
// worker may be the goroutine waiting to close that connection.
func (d *Dispatcher) Enqueue(event ports.ScopedEvent) bool {
	idx := d.shardIndex(event.ScopeID)
	select {
	case d.workers[idx] <- event:
		metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return true
	default:
		metrics.EventsDroppedTotal.WithLabelValues("queue_full").Inc()
		d.log.Warn().
			Str("scope_id", event.ScopeID).
			Str("event_id", event.Event.ID).
			Int("worker_id", idx).
			Msg("dispatcher queue full, event dropped")
		return false
	}
}

// shardIndex maps a scope ID deterministically to a worker index.
func (d *Dispatcher) shardIndex(scopeID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(scopeID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.ScopedEvent) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			metrics.EventsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if err := d.service.Process(ctx, event); err != nil {
				d.log.Error().Err(err).
					Str("scope_id", event.ScopeID).
					Str("event_id", event.Event.ID).
					Str("kind", string(event.Event.Kind)).
					Int("worker_id", id).
					Msg("event processing failed")
			}
		}
	}
}
