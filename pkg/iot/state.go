package iot

import (
	"errors"
	"sync"
	"time"

	"liyu1981.xyz/iot-telemetry-state/pkg/models"
)

var ErrSeedAfterMerge = errors.New("state store already accepted live updates")

// StateStore holds the merged state of every known device. Updates for one
// device are serialized by a per-device lock; readers always see a complete
// *models.DeviceState, never a partially merged one.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]*models.DeviceState
	locks  sync.Map
	sealed bool
}

func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]*models.DeviceState)}
}

// Seed loads persisted states. It must run before the first Apply.
func (s *StateStore) Seed(states []*models.DeviceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return ErrSeedAfterMerge
	}
	for _, state := range states {
		if state == nil || state.DeviceName == "" {
			continue
		}
		s.states[state.DeviceName] = state
	}
	return nil
}

// Apply merges update into the device's state and publishes the result.
func (s *StateStore) Apply(deviceName string, update models.Fields, at time.Time) *models.DeviceState {
	lock := s.deviceLock(deviceName)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	s.sealed = true
	current := s.states[deviceName]
	s.mu.Unlock()

	var base models.Fields
	if current != nil {
		base = current.Fields
	}
	next := &models.DeviceState{
		DeviceName:  deviceName,
		Fields:      Merge(base, update),
		LastUpdated: at,
	}

	s.mu.Lock()
	s.states[deviceName] = next
	s.mu.Unlock()

	return next
}

func (s *StateStore) Get(deviceName string) (*models.DeviceState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[deviceName]
	return state, ok
}

func (s *StateStore) Snapshot() map[string]*models.DeviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.DeviceState, len(s.states))
	for name, state := range s.states {
		out[name] = state
	}
	return out
}

func (s *StateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

func (s *StateStore) deviceLock(deviceName string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(deviceName, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
