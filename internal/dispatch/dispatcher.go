// internal/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mindrc-gateway/internal/band"
	"mindrc-gateway/internal/data"
)

// Link delivers one command byte to the car over a transient connection.
// Implementations open, write and close within a single call and never retry.
type Link interface {
	Send(ctx context.Context, cmd byte) error
}

// Dispatcher turns bands into commands, at most one per interval.
type Dispatcher struct {
	link     Link
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *zap.SugaredLogger
	now      func() time.Time
	observer func(band.Band, data.DispatchResult)
}

type Option func(*Dispatcher)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithObserver is called after every send attempt with its outcome.
func WithObserver(fn func(band.Band, data.DispatchResult)) Option {
	return func(d *Dispatcher) { d.observer = fn }
}

// NewDispatcher builds a dispatcher whose window is armed at construction,
// so the first command can go out one interval after startup.
func NewDispatcher(link Link, interval, timeout time.Duration, logger *zap.SugaredLogger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		link:    link,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.limiter.AllowN(d.now(), 1)
	return d
}

// Offer sends b's command if the interval since the previous dispatch has
// elapsed and reports whether an attempt was made. Delivery failures are
// logged and dropped; the caller is never told about them.
func (d *Dispatcher) Offer(ctx context.Context, b band.Band, th band.Thresholds) bool {
	now := d.now()
	if !d.limiter.AllowN(now, 1) {
		return false
	}

	d.describe(b, th)

	sendCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	cmd := b.Command()
	result := data.DispatchResult{Timestamp: now, Command: string(cmd)}
	if err := d.link.Send(sendCtx, cmd); err != nil {
		d.logger.Warnw("failed to send command", "command", string(cmd), "error", err)
		result.Error = err.Error()
	} else {
		d.logger.Infow("sent command", "command", string(cmd))
		result.Delivered = true
	}

	if d.observer != nil {
		d.observer(b, result)
	}
	return true
}

func (d *Dispatcher) describe(b band.Band, th band.Thresholds) {
	switch b {
	case band.A:
		d.logger.Infof("band A: attention is high (more than %d)", th.High)
	case band.B:
		d.logger.Infof("band B: attention is medium-high (more than %d, at most %d)", th.Medium, th.High)
	case band.C:
		d.logger.Infof("band C: attention is medium-low (more than %d, at most %d)", th.Low, th.Medium)
	default:
		d.logger.Infof("band D: attention is low (at most %d)", th.Low)
	}
}
