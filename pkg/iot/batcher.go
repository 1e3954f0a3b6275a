package iot

import (
	"sync"
	"time"

	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

type pendingUpdate struct {
	deviceName      string
	fields          models.Fields
	receivedAt      time.Time
	deviceTimestamp *time.Time
}

type commitFunc func(deviceName string, update models.Fields, receivedAt time.Time, deviceTimestamp *time.Time)

// Batcher coalesces telemetry received within one flush interval. A flush
// folds each device's pending updates in receipt order and commits once per
// device.
type Batcher struct {
	mu       sync.Mutex
	flushMu  sync.Mutex
	pending  []pendingUpdate
	interval time.Duration
	commit   commitFunc
	stop     chan struct{}
	done     chan struct{}
	started  bool
	once     sync.Once
}

func NewBatcher(interval time.Duration, commit commitFunc) *Batcher {
	return &Batcher{
		interval: interval,
		commit:   commit,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (b *Batcher) Add(u pendingUpdate) {
	b.mu.Lock()
	b.pending = append(b.pending, u)
	b.mu.Unlock()
}

func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Batcher) Flush() {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	order := make([]string, 0)
	folded := make(map[string]*pendingUpdate)
	for _, u := range pending {
		acc, ok := folded[u.deviceName]
		if !ok {
			order = append(order, u.deviceName)
			acc = &pendingUpdate{deviceName: u.deviceName}
			folded[u.deviceName] = acc
		}
		acc.fields = Merge(acc.fields, u.fields)
		acc.receivedAt = u.receivedAt
		if u.deviceTimestamp != nil {
			acc.deviceTimestamp = u.deviceTimestamp
		}
	}

	for _, name := range order {
		acc := folded[name]
		b.commit(acc.deviceName, acc.fields, acc.receivedAt, acc.deviceTimestamp)
	}
}

func (b *Batcher) Start() {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go func() {
		defer close(b.done)
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.Flush()
			case <-b.stop:
				b.Flush()
				return
			}
		}
	}()
}

// Stop flushes what is pending and stops the ticker. It is safe to call more
// than once.
func (b *Batcher) Stop() {
	b.once.Do(func() {
		b.mu.Lock()
		started := b.started
		b.mu.Unlock()

		close(b.stop)
		if !started {
			b.Flush()
			return
		}
		<-b.done
	})
}
