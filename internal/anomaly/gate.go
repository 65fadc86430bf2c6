// internal/anomaly/gate.go
package anomaly

import (
	"go.uber.org/zap"

	"mindrc-gateway/internal/config"
	"mindrc-gateway/internal/data"
)

type Verdict int

const (
	Training Verdict = iota // model not fit yet, frame buffered
	Inlier
	Outlier
)

func (v Verdict) String() string {
	switch v {
	case Training:
		return "training"
	case Inlier:
		return "inlier"
	case Outlier:
		return "outlier"
	}
	return "unknown"
}

// Result is the gate's judgement on one frame. Score and Limit are zero
// while training or when the gate is disabled.
type Result struct {
	Verdict Verdict
	Score   float64
	Limit   float64
}

// Gate lazily fits a Model from the first FitSize frames it sees and then
// classifies every later frame. The training buffer lives on the gate, so
// frames accumulate across calls. Not safe for concurrent use; the ingestion
// pipeline is its only caller.
type Gate struct {
	enabled bool
	fitSize int
	nu      float64
	logger  *zap.SugaredLogger

	buffer [][]float64
	model  *Model
}

func NewGate(cfg config.AnomalyConfig, logger *zap.SugaredLogger) *Gate {
	fitSize := cfg.FitSize
	if fitSize < 2 {
		fitSize = 2
	}
	return &Gate{
		enabled: cfg.Enabled,
		fitSize: fitSize,
		nu:      cfg.Nu,
		logger:  logger,
		buffer:  make([][]float64, 0, fitSize),
	}
}

// Ready reports whether a model has been fit.
func (g *Gate) Ready() bool { return g.model != nil }

func (g *Gate) Observe(frame data.EEGPowers) Result {
	if !g.enabled {
		return Result{Verdict: Inlier}
	}

	features := frame.Features()
	if g.model == nil {
		g.buffer = append(g.buffer, features)
		if len(g.buffer) < g.fitSize {
			return Result{Verdict: Training}
		}
		model, err := Fit(g.buffer, g.nu)
		if err != nil {
			// Start over rather than keep a buffer that cannot be fit.
			g.logger.Warnw("anomaly model fit failed", "samples", len(g.buffer), "error", err)
			g.buffer = g.buffer[:0]
			return Result{Verdict: Training}
		}
		g.model = model
		g.buffer = nil
		g.logger.Infow("anomaly model trained on initial data", "samples", g.fitSize, "limit", model.Limit())
		return Result{Verdict: Training}
	}

	score := g.model.Score(features)
	res := Result{Verdict: Inlier, Score: score, Limit: g.model.Limit()}
	if score > res.Limit {
		res.Verdict = Outlier
	}
	return res
}
