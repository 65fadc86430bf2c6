// internal/device/serial.go
package device

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"mindrc-gateway/internal/data"
)

// Opener returns the byte stream of an already paired headset.
type Opener func() (io.ReadCloser, error)

// OpenPath opens a serial or RFCOMM device node such as /dev/rfcomm0 and
// puts it into raw mode at the given baud rate. ThinkGear packets are binary,
// so every line-discipline feature (canonical reads, echo, signal characters,
// CR/NL mapping) must be off.
func OpenPath(path string, baud int) Opener {
	return func() (io.ReadCloser, error) {
		f, err := os.OpenFile(path, os.O_RDWR|noCTTY, 0)
		if err != nil {
			return nil, errors.Wrapf(err, "opening headset at %s", path)
		}

		// Go through SyscallConn so the fd stays non-blocking and Close can
		// interrupt a pending Read.
		rc, err := f.SyscallConn()
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "opening headset at %s", path)
		}
		var rawErr error
		if err := rc.Control(func(fd uintptr) { rawErr = makeRaw(int(fd), baud) }); err != nil {
			rawErr = err
		}
		if rawErr != nil {
			f.Close()
			return nil, errors.Wrapf(rawErr, "configuring headset at %s", path)
		}
		return f, nil
	}
}

// ThinkGear reads a MindWave-style headset over its serial protocol.
type ThinkGear struct {
	open   Opener
	logger *zap.SugaredLogger
	out    *outbox
	now    func() time.Time

	mu      sync.Mutex
	started bool
	stream  io.ReadCloser
	done    chan struct{}

	badChecksums atomic.Uint64
}

func NewThinkGear(open Opener, buffer int, logger *zap.SugaredLogger) *ThinkGear {
	return &ThinkGear{
		open:   open,
		logger: logger,
		out:    newOutbox(buffer),
		now:    time.Now,
	}
}

func (t *ThinkGear) Events() <-chan data.Event { return t.out.ch }

// Start opens the stream and begins decoding in the background. A stopped
// ThinkGear cannot be restarted.
func (t *ThinkGear) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return errors.New("thinkgear: already started")
	}

	stream, err := t.open()
	if err != nil {
		return err
	}
	t.started = true
	t.stream = stream
	t.done = make(chan struct{})

	go t.readLoop(ctx, stream)
	go func() {
		select {
		case <-ctx.Done():
			_ = t.Stop()
		case <-t.done:
		}
	}()
	t.logger.Infow("headset stream started")
	return nil
}

// Stop closes the stream and waits for the reader to exit. It is safe to
// call more than once.
func (t *ThinkGear) Stop() error {
	t.mu.Lock()
	stream, done := t.stream, t.done
	t.stream = nil
	t.mu.Unlock()

	if stream == nil {
		return nil
	}
	err := stream.Close()
	<-done
	t.logger.Infow("headset stream stopped",
		"dropped_events", t.out.Dropped(),
		"bad_checksums", t.badChecksums.Load())
	return errors.Wrap(err, "closing headset stream")
}

func (t *ThinkGear) readLoop(ctx context.Context, stream io.Reader) {
	defer close(t.done)
	defer close(t.out.ch)

	dec := NewDecoder(stream)
	for {
		payload, err := dec.Next()
		if errors.Is(err, ErrChecksum) {
			t.badChecksums.Add(1)
			continue
		}
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
				t.logger.Warnw("headset stream ended", "error", err)
			}
			return
		}

		events, err := ParsePayload(payload, t.now())
		if err != nil {
			t.logger.Debugw("skipping malformed packet", "error", err)
		}
		for _, ev := range events {
			t.out.publish(ev)
		}
	}
}
