// internal/device/sim.go
package device

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"mindrc-gateway/internal/data"
)

// Simulator produces plausible headset traffic for bench runs without hardware.
// Attention and meditation random-walk within 0-100; every tick also emits an
// EEG power frame.
type Simulator struct {
	interval time.Duration
	logger   *zap.SugaredLogger
	out      *outbox
	rng      *rand.Rand

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSimulator(interval time.Duration, buffer int, seed uint64, logger *zap.SugaredLogger) *Simulator {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &Simulator{
		interval: interval,
		logger:   logger,
		out:      newOutbox(buffer),
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (s *Simulator) Events() <-chan data.Event { return s.out.ch }

func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("simulator: already started")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
	s.logger.Infow("simulated headset started", "interval", s.interval)
	return nil
}

func (s *Simulator) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (s *Simulator) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.out.ch)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	attention, meditation := 50.0, 50.0
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			attention = walk(s.rng, attention)
			meditation = walk(s.rng, meditation)
			s.out.publish(data.Event{Kind: data.KindEEG, Timestamp: now, EEG: s.frame()})
			s.out.publish(data.Event{Kind: data.KindMeditation, Timestamp: now, Value: int(meditation)})
			s.out.publish(data.Event{Kind: data.KindAttention, Timestamp: now, Value: int(attention)})
		}
	}
}

func walk(rng *rand.Rand, v float64) float64 {
	v += rng.NormFloat64() * 8
	return math.Max(0, math.Min(100, v))
}

// frame draws band powers around typical resting magnitudes.
func (s *Simulator) frame() data.EEGPowers {
	p := func(base float64) float64 {
		return math.Round(base * math.Exp(s.rng.NormFloat64()*0.3))
	}
	return data.EEGPowers{
		Delta:     p(250000),
		Theta:     p(60000),
		AlphaLow:  p(15000),
		AlphaHigh: p(12000),
		BetaLow:   p(9000),
		BetaHigh:  p(8000),
		GammaLow:  p(3000),
		GammaMid:  p(2000),
	}
}
