package jobs

import (
	"strings"
	"sync"
	"time"
)

// Event is a status change or progress note for one job.
type Event struct {
	JobID   string    `json:"jobId"`
	Status  Status    `json:"status"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// EventBroker fans job events out to any number of watchers. A slow watcher
// misses intermediate events; the terminal event is always delivered before
// its channel is closed.
type EventBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewEventBroker() *EventBroker {
	return &EventBroker{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a watcher for jobID, optionally seeding its buffer with
// initial events. The returned func unsubscribes and is safe to call more than
// once.
func (b *EventBroker) Subscribe(jobID string, size int, initial ...Event) (<-chan Event, func()) {
	if size < len(initial)+1 {
		size = len(initial) + 1
	}
	id := strings.TrimSpace(jobID)
	ch := make(chan Event, size)
	for _, ev := range initial {
		ch <- ev
	}
	b.mu.Lock()
	if b.subs[id] == nil {
		b.subs[id] = make(map[chan Event]struct{})
	}
	b.subs[id][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.subs[id]; ok {
				if _, live := set[ch]; live {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(b.subs, id)
				}
			}
		})
	}
}

// Publish delivers ev without blocking.
func (b *EventBroker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.JobID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Finish delivers the terminal event, making room in full buffers if
// needed, then closes every watcher of the job.
func (b *EventBroker) Finish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.JobID] {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
		close(ch)
	}
	delete(b.subs, ev.JobID)
}

// Watchers reports how many channels are subscribed to jobID.
func (b *EventBroker) Watchers(jobID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[strings.TrimSpace(jobID)])
}
