package iot

import (
	"sync"
)

type UpdateType string

const (
	UpdateTelemetry UpdateType = "telemetry"
	UpdateAlert     UpdateType = "alert"
	UpdateStatus    UpdateType = "status"
)

type Update struct {
	Type    UpdateType `json:"type"`
	Payload any        `json:"payload"`
}

type StatusPayload struct {
	Connected bool `json:"connected"`
}

// Broadcaster fans updates out to subscribers. A subscriber whose buffer is
// full misses the update rather than stalling the publisher.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int]chan Update
	nextID int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Update)}
}

func (b *Broadcaster) Subscribe(buffer int) (<-chan Update, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Update, buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *Broadcaster) Publish(update Update) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	missed := 0
	for _, ch := range b.subs {
		select {
		case ch <- update:
		default:
			missed++
		}
	}
	return missed
}

func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
