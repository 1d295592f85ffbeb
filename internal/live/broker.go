// Package live fans committed store changes out to subscribers.
package live

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/claude/lightweight/internal/metrics"
	"github.com/claude/lightweight/internal/models"
)

// DefaultBuffer is the per-subscriber queue length used when none is given.
const DefaultBuffer = 32

// Broker delivers each published Change to every current subscriber.
// Publish never blocks: a subscriber whose queue is full misses the change.
type Broker struct {
	mu      sync.Mutex
	subs    map[uint64]chan models.Change
	nextID  uint64
	closed  bool
	dropped atomic.Uint64

	logger  *slog.Logger
	metrics *metrics.Manager
}

// NewBroker creates a broker. m may be nil.
func NewBroker(logger *slog.Logger, m *metrics.Manager) *Broker {
	return &Broker{
		subs:    make(map[uint64]chan models.Change),
		logger:  logger,
		metrics: m,
	}
}

// Subscribe registers a new subscriber. The returned cancel func unregisters
// it and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe(buffer int) (<-chan models.Change, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan models.Change, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.setSubscriberGauge()
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
				b.setSubscriberGauge()
			}
		})
	}
	return ch, cancel
}

// Publish implements storage.Publisher.
func (b *Broker) Publish(c models.Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	for id, ch := range b.subs {
		select {
		case ch <- c:
		default:
			b.dropped.Add(1)
			if b.metrics != nil {
				b.metrics.CounterLiveDropped.Inc()
			}
			b.logger.Warn("live subscriber too slow, change dropped",
				"subscriber", id, "entity", c.Entity, "op", c.Op)
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because of full queues.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

// Close unregisters and closes every subscriber. Later publishes are ignored.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.setSubscriberGauge()
}

// caller holds b.mu
func (b *Broker) setSubscriberGauge() {
	if b.metrics != nil {
		b.metrics.GaugeLiveSubscribers.Set(float64(len(b.subs)))
	}
}
