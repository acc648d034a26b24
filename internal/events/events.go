// Package events fans training progress out to live subscribers.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Type names a training event.
type Type string

const (
	JobStarted       Type = "job_started"
	VariantStarted   Type = "variant_started"
	Epoch            Type = "epoch"
	VariantCompleted Type = "variant_completed"
	VariantFailed    Type = "variant_failed"
	JobStopped       Type = "job_stopped"
	JobFinished      Type = "job_finished"
)

// Event is one progress notification. Accuracy is a percentage.
type Event struct {
	Type     Type      `json:"type"`
	JobID    string    `json:"job_id"`
	Variant  string    `json:"variant,omitempty"`
	Epoch    int       `json:"epoch,omitempty"`
	Accuracy float64   `json:"accuracy,omitempty"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}

// Hub broadcasts events to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	nextID  int
	bufSize int
	dropped atomic.Uint64
}

func NewHub(bufSize int) *Hub {
	if bufSize < 1 {
		bufSize = 64
	}
	return &Hub{
		subs:    make(map[int]chan Event),
		bufSize: bufSize,
	}
}

// Subscribe returns a channel of events and a function that ends the
// subscription and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.bufSize)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

func (h *Hub) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
