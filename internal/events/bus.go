package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/parser"
)

// AccountStatus is a point-in-time snapshot of one account's sync state.
// The sync engine owns the live record; everything outside it only ever
// sees copies of this struct.
type AccountStatus struct {
	AccountID     string    `json:"account_id"`
	State         string    `json:"state"`
	Connected     bool      `json:"connected"`
	LastSync      time.Time `json:"last_sync"`
	TotalSynced   int64     `json:"total_synced"`
	ParseFailures int64     `json:"parse_failures"`
	LastError     string    `json:"last_error,omitempty"`
}

// StatusChanged is emitted on every mutation of an account's status record
type StatusChanged struct {
	Status AccountStatus `json:"status"`
	At     time.Time     `json:"at"`
}

// Bus carries sync output to downstream consumers over one typed channel
// per event kind. Message delivery is at-least-once: a full message
// buffer applies backpressure to the publisher rather than dropping.
// Status events are advisory; when nobody drains them in time they are
// dropped and counted.
type Bus struct {
	messages chan *parser.NormalizedMessage
	statuses chan StatusChanged

	droppedStatuses atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
}

// DefaultBufferSize is the channel depth for both event kinds
const DefaultBufferSize = 256

// NewBus creates a Bus with the given channel depth
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	return &Bus{
		messages: make(chan *parser.NormalizedMessage, buffer),
		statuses: make(chan StatusChanged, buffer),
		done:     make(chan struct{}),
	}
}

// PublishMessage delivers a normalized message to the consumer side.
// Returns false only when the bus is closed.
func (b *Bus) PublishMessage(m *parser.NormalizedMessage) bool {
	select {
	case <-b.done:
		return false
	default:
	}
	select {
	case b.messages <- m:
		return true
	case <-b.done:
		return false
	}
}

// PublishStatus delivers a status snapshot without ever blocking the
// publisher. Returns false when the event was dropped.
func (b *Bus) PublishStatus(s StatusChanged) bool {
	select {
	case b.statuses <- s:
		return true
	case <-b.done:
		return false
	default:
		b.droppedStatuses.Add(1)
		return false
	}
}

// Messages returns the consumer side of the message-received stream
func (b *Bus) Messages() <-chan *parser.NormalizedMessage {
	return b.messages
}

// Statuses returns the consumer side of the status-changed stream
func (b *Bus) Statuses() <-chan StatusChanged {
	return b.statuses
}

// DroppedStatuses reports how many status events were discarded
func (b *Bus) DroppedStatuses() int64 {
	return b.droppedStatuses.Load()
}

// Close releases publishers; pending buffered events stay readable
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}
