package events

import (
	"sync"
	"time"
)

// Status classifies the outcome of one pipeline cycle.
type Status string

const (
	StatusWait       Status = "WAIT"       // no actionable decision this cycle
	StatusIgnored    Status = "IGNORED"    // authority said WAIT on a valid setup
	StatusRejected   Status = "REJECTED"   // execution gate refused the geometry
	StatusExecuted   Status = "EXECUTED"   // orders placed (live or simulated)
	StatusFailed     Status = "FAILED"     // order placement failed
	StatusKillswitch Status = "KILLSWITCH" // daily drawdown halt, cycle skipped
)

// PipelineEvent is the transient broadcast record emitted exactly once per
// pipeline cycle. It is never persisted by the core; consumers (websocket
// feed, notifications, metrics, cache mirror) decide what to do with it.
type PipelineEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	Symbol     string    `json:"symbol"`
	Action     string    `json:"action"`
	Confidence int       `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
	Status     Status    `json:"status"`
	Price      *float64  `json:"price,omitempty"`
	Size       *float64  `json:"size,omitempty"`
	PnLR       *float64  `json:"pnl_r,omitempty"`
}

// Subscriber is a function that handles pipeline events.
type Subscriber func(PipelineEvent)

// Bus fans pipeline events out to registered subscribers. Each subscriber
// runs in its own goroutine so a slow consumer never blocks the pipeline.
type Bus struct {
	mu   sync.RWMutex
	subs []Subscriber
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a subscriber for all pipeline events.
func (b *Bus) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
}

// Publish sends the event to every subscriber.
func (b *Bus) Publish(event PipelineEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		go sub(event)
	}
}
