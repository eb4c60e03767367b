package events

import (
	"sync"
	"time"

	"sentiment_research/internal/domain"
)

// JobEvent reports a job status transition.
type JobEvent struct {
	JobID   string           `json:"job_id"`
	Status  domain.JobStatus `json:"status"`
	Message string           `json:"message,omitempty"`
	At      time.Time        `json:"at"`
}

// Bus provides simple in-process pub/sub for job status. Slow subscribers
// miss events rather than block publishers.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]chan JobEvent
}

func NewBus() *Bus { return &Bus{subs: make(map[int]chan JobEvent)} }

// Subscribe returns an event channel and a cancel func that closes it.
func (b *Bus) Subscribe() (<-chan JobEvent, func()) {
	ch := make(chan JobEvent, 16)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Publish(ev JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
