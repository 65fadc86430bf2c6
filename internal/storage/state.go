// internal/storage/state.go
package storage

import (
	"sync"
	"time"

	"mindrc-gateway/internal/band"
	"mindrc-gateway/internal/data"
)

// State is the shared mutable cell set read by the ingestion pipeline and the
// configuration API. Nothing is persisted and no history is kept.
type State struct {
	mu         sync.RWMutex
	thresholds band.Thresholds
	attention  int

	lastBand     band.Band
	lastDispatch time.Time
}

func NewState(initial band.Thresholds) *State {
	return &State{thresholds: initial}
}

// Thresholds returns a consistent snapshot of all three cut points.
func (s *State) Thresholds() band.Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thresholds
}

// UpdateThresholds overwrites only the supplied fields and returns the result.
func (s *State) UpdateThresholds(u data.RangeUpdate) band.Thresholds {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds = u.Apply(s.thresholds)
	return s.thresholds
}

func (s *State) SetAttention(v int) {
	s.mu.Lock()
	s.attention = v
	s.mu.Unlock()
}

// Attention is the most recent attention sample, 0 until one arrives.
func (s *State) Attention() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attention
}

// RecordDispatch notes the band most recently sent to the car.
func (s *State) RecordDispatch(b band.Band, at time.Time) {
	s.mu.Lock()
	s.lastBand = b
	s.lastDispatch = at
	s.mu.Unlock()
}

// LastDispatch reports the last dispatched band; ok is false before the first one.
func (s *State) LastDispatch() (b band.Band, at time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastBand, s.lastDispatch, !s.lastDispatch.IsZero()
}
