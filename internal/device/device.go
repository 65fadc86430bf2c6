// Package device adapts EEG headsets into a stream of typed data.Events.
package device

import (
	"context"
	"sync/atomic"

	"mindrc-gateway/internal/data"
)

// Device is a started/stopped source of headset events. Events is closed
// once the device has stopped producing.
type Device interface {
	Start(ctx context.Context) error
	Events() <-chan data.Event
	Stop() error
}

// outbox is the non-blocking event channel shared by device implementations.
// A slow consumer loses events instead of stalling the reader.
type outbox struct {
	ch      chan data.Event
	dropped atomic.Uint64
}

func newOutbox(size int) *outbox {
	if size <= 0 {
		size = 1
	}
	return &outbox{ch: make(chan data.Event, size)}
}

func (o *outbox) publish(ev data.Event) bool {
	select {
	case o.ch <- ev:
		return true
	default:
		o.dropped.Add(1)
		return false
	}
}

// Dropped reports how many events were discarded because the consumer lagged.
func (o *outbox) Dropped() uint64 { return o.dropped.Load() }
