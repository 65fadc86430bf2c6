// Package ingest routes headset events to classification, dispatch and the
// anomaly gate from a single consumer goroutine.
package ingest

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"mindrc-gateway/internal/anomaly"
	"mindrc-gateway/internal/band"
	"mindrc-gateway/internal/data"
	"mindrc-gateway/internal/storage"
)

// Dispatcher is satisfied by *dispatch.Dispatcher.
type Dispatcher interface {
	Offer(ctx context.Context, b band.Band, th band.Thresholds) bool
}

type Alerter interface {
	ProcessAlerts(alerts []data.Alert)
}

type Publisher interface {
	Publish(kind string, payload any)
}

type Pipeline struct {
	state      *storage.State
	dispatcher Dispatcher
	gate       *anomaly.Gate
	alerter    Alerter
	feed       Publisher
	logger     *zap.SugaredLogger
}

func NewPipeline(state *storage.State, dispatcher Dispatcher, gate *anomaly.Gate, alerter Alerter, feed Publisher, logger *zap.SugaredLogger) *Pipeline {
	return &Pipeline{
		state:      state,
		dispatcher: dispatcher,
		gate:       gate,
		alerter:    alerter,
		feed:       feed,
		logger:     logger,
	}
}

// ErrStreamEnded is returned by Run when the device closes its event channel
// on its own, e.g. after the headset was unplugged.
var ErrStreamEnded = errors.New("headset event stream ended")

// Run consumes events until ctx is done or the channel is closed. A channel
// closed while ctx is still live yields ErrStreamEnded.
func (p *Pipeline) Run(ctx context.Context, events <-chan data.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				p.logger.Errorw("headset event stream ended, no further commands will be sent")
				return ErrStreamEnded
			}
			p.Handle(ctx, ev)
		}
	}
}

// Handle processes one event.
func (p *Pipeline) Handle(ctx context.Context, ev data.Event) {
	switch ev.Kind {
	case data.KindAttention:
		p.attention(ctx, ev)
	case data.KindMeditation:
		p.logger.Infow("meditation", "value", ev.Value)
	case data.KindEEG:
		p.eeg(ev)
	default:
		p.logger.Debugw("ignoring event", "kind", ev.Kind)
	}
}

// attention always refreshes the last-attention cell, even when the
// dispatcher suppresses the command, so the API can run ahead of the car.
func (p *Pipeline) attention(ctx context.Context, ev data.Event) {
	p.logger.Infow("attention", "value", ev.Value)
	p.state.SetAttention(ev.Value)

	th := p.state.Thresholds()
	b := band.Classify(ev.Value, th)

	if p.feed != nil {
		p.feed.Publish("attention", data.AttentionUpdate{
			Timestamp:  ev.Timestamp,
			Attention:  ev.Value,
			Band:       b.String(),
			Thresholds: th,
		})
	}
	p.dispatcher.Offer(ctx, b, th)
}

func (p *Pipeline) eeg(ev data.Event) {
	if p.gate == nil {
		p.logger.Infow("eeg", "frame", ev.EEG)
		return
	}

	res := p.gate.Observe(ev.EEG)
	switch res.Verdict {
	case anomaly.Training:
		p.logger.Debugw("eeg frame buffered for anomaly model", "frame", ev.EEG)
	case anomaly.Inlier:
		p.logger.Infow("eeg", "frame", ev.EEG)
	case anomaly.Outlier:
		p.logger.Infow("eeg frame classified as erratic, ignoring")
		if p.alerter != nil {
			p.alerter.ProcessAlerts([]data.Alert{{
				Timestamp: ev.Timestamp,
				Severity:  "WARN",
				Message:   fmt.Sprintf("eeg frame rejected: score %.2f exceeds %.2f", res.Score, res.Limit),
				Score:     res.Score,
				Limit:     res.Limit,
				Frame:     ev.EEG,
			}})
		}
	}
}
