package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mindrc-gateway/internal/band"
	"mindrc-gateway/internal/data"
)

type recordingLink struct {
	mu   sync.Mutex
	sent []byte
	err  error
}

func (l *recordingLink) Send(_ context.Context, cmd byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, cmd)
	return l.err
}

func (l *recordingLink) commands() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return string(l.sent)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestDispatcher(t *testing.T, link Link, opts ...Option) (*Dispatcher, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.now)}, opts...)
	return NewDispatcher(link, time.Second, time.Second, zaptest.NewLogger(t).Sugar(), opts...), clock
}

func TestOfferRateLimited(t *testing.T) {
	link := &recordingLink{}
	d, clock := newTestDispatcher(t, link)
	th := band.DefaultThresholds()
	ctx := context.Background()

	// The window is armed at startup.
	clock.advance(500 * time.Millisecond)
	assert.False(t, d.Offer(ctx, band.A, th))

	clock.advance(500 * time.Millisecond)
	assert.True(t, d.Offer(ctx, band.A, th))

	// Two offers inside one second produce exactly one send.
	clock.advance(999 * time.Millisecond)
	assert.False(t, d.Offer(ctx, band.B, th))
	assert.Equal(t, "A", link.commands())

	clock.advance(time.Millisecond)
	assert.True(t, d.Offer(ctx, band.C, th))
	assert.Equal(t, "AC", link.commands())
}

func TestOfferWindowSlidesFromLastDispatch(t *testing.T) {
	link := &recordingLink{}
	d, clock := newTestDispatcher(t, link)
	th := band.DefaultThresholds()
	ctx := context.Background()

	clock.advance(1300 * time.Millisecond)
	require.True(t, d.Offer(ctx, band.D, th))

	// A fixed one-second grid would allow this; the sliding window does not.
	clock.advance(800 * time.Millisecond)
	assert.False(t, d.Offer(ctx, band.D, th))

	clock.advance(200 * time.Millisecond)
	assert.True(t, d.Offer(ctx, band.D, th))
	assert.Equal(t, "DD", link.commands())
}

func TestOfferSwallowsLinkFailure(t *testing.T) {
	link := &recordingLink{err: errors.New("connection refused")}
	var results []data.DispatchResult
	d, clock := newTestDispatcher(t, link, WithObserver(func(_ band.Band, r data.DispatchResult) {
		results = append(results, r)
	}))
	th := band.DefaultThresholds()

	for i := 0; i < 3; i++ {
		clock.advance(time.Second)
		assert.True(t, d.Offer(context.Background(), band.B, th))
	}

	assert.Equal(t, "BBB", link.commands())
	require.Len(t, results, 3)
	for _, r := range results {
		assert.False(t, r.Delivered)
		assert.Equal(t, "B", r.Command)
		assert.Contains(t, r.Error, "connection refused")
	}
}

type blockingLink struct{}

func (blockingLink) Send(ctx context.Context, _ byte) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestOfferBoundsSlowLink(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	d := NewDispatcher(blockingLink{}, time.Second, 50*time.Millisecond,
		zaptest.NewLogger(t).Sugar(), WithClock(clock.now))

	clock.advance(time.Second)
	start := time.Now()
	assert.True(t, d.Offer(context.Background(), band.A, band.DefaultThresholds()))
	assert.Less(t, time.Since(start), 5*time.Second)
}
