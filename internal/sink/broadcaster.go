package sink

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// defaultSubscriberQueue bounds the per-client buffer; a slow consumer is
// dropped rather than allowed to block event delivery to the rest.
const defaultSubscriberQueue = 32

// subscriber is one connected SSE client.
type subscriber struct {
	id     uint64
	events chan Event
}

// Broadcaster fans identification events out to any number of connected
// SSE clients. It never blocks the producer: a subscriber whose buffer is
// full is evicted (its channel is closed, ending its stream); events
// already buffered for it remain readable.
type Broadcaster struct {
	mu          sync.Mutex
	subs        map[uint64]*subscriber
	nextID      uint64
	queueSize   int
	logger      *slog.Logger
}

// NewBroadcaster constructs a Broadcaster. queueSize <= 0 uses
// defaultSubscriberQueue.
func NewBroadcaster(queueSize int, logger *slog.Logger) *Broadcaster {
	if queueSize <= 0 {
		queueSize = defaultSubscriberQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subs:      make(map[uint64]*subscriber),
		queueSize: queueSize,
		logger:    logger,
	}
}

// Subscribe registers a new client and returns its channel and an
// unsubscribe function.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	sub := &subscriber{id: id, events: make(chan Event, b.queueSize)}
	b.subs[id] = sub

	return sub.events, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.events)
		}
	}
}

// Publish delivers ev to every connected subscriber. A client whose buffer
// is currently full does not receive ev and is evicted.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		select {
		case sub.events <- ev:
		default:
			delete(b.subs, sub.id)
			close(sub.events)
			b.logger.Warn("sse subscriber buffer full, evicting subscriber", slog.Uint64("subscriber_id", sub.id))
		}
	}
}

// Count returns the number of currently connected subscribers.
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// ServeHTTP streams events as Server-Sent Events until the client
// disconnects, writing heartbeat comments to keep idle connections alive
// through intermediate proxies.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, unsubscribe := b.Subscribe()
	defer unsubscribe()

	rc := http.NewResponseController(w)
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	fmt.Fprint(w, ":connected\n\n")
	if err := rc.Flush(); err != nil {
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ":heartbeat %d\n\n", time.Now().Unix())
			if err := rc.Flush(); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				b.logger.Error("marshal sse event", slog.String("error", err.Error()))
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
