// internal/data/models.go
package data

import (
	"time"

	"mindrc-gateway/internal/band"
)

// Kind identifies which headset stream an Event belongs to.
type Kind int

const (
	KindEEG Kind = iota + 1
	KindMeditation
	KindAttention
)

func (k Kind) String() string {
	switch k {
	case KindEEG:
		return "eeg"
	case KindMeditation:
		return "meditation"
	case KindAttention:
		return "attention"
	}
	return "unknown"
}

// Event is a single labeled sample pushed by a device.
type Event struct {
	Kind      Kind
	Timestamp time.Time
	Value     int       // attention or meditation, 0-100 from the headset
	EEG       EEGPowers // set when Kind == KindEEG
}

// EEGPowers holds the ASIC band magnitudes of one raw EEG frame.
type EEGPowers struct {
	Delta     float64 `json:"delta"`
	Theta     float64 `json:"theta"`
	AlphaLow  float64 `json:"alpha_l"`
	AlphaHigh float64 `json:"alpha_h"`
	BetaLow   float64 `json:"beta_l"`
	BetaHigh  float64 `json:"beta_h"`
	GammaLow  float64 `json:"gamma_l"`
	GammaMid  float64 `json:"gamma_m"`
}

// Features returns the frame as a feature vector. Gamma bands are not used.
func (p EEGPowers) Features() []float64 {
	return []float64{p.Delta, p.Theta, p.AlphaLow, p.AlphaHigh, p.BetaLow, p.BetaHigh}
}

// Alert reports a raw EEG frame the anomaly gate rejected.
type Alert struct {
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Score     float64   `json:"score"`
	Limit     float64   `json:"limit"`
	Frame     EEGPowers `json:"frame"`
}

// AttentionUpdate is published on the feed for every attention sample.
type AttentionUpdate struct {
	Timestamp  time.Time       `json:"timestamp"`
	Attention  int             `json:"attention"`
	Band       string          `json:"band"`
	Thresholds band.Thresholds `json:"thresholds"`
}

// DispatchResult is published on the feed after every dispatch attempt.
type DispatchResult struct {
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	Delivered bool      `json:"delivered"`
	Error     string    `json:"error,omitempty"`
}

// RangeUpdate is a partial threshold change; nil fields are left untouched.
type RangeUpdate struct {
	High   *int
	Medium *int
	Low    *int
}

// Apply returns t with the supplied fields overwritten.
func (u RangeUpdate) Apply(t band.Thresholds) band.Thresholds {
	if u.High != nil {
		t.High = *u.High
	}
	if u.Medium != nil {
		t.Medium = *u.Medium
	}
	if u.Low != nil {
		t.Low = *u.Low
	}
	return t
}

// Empty reports whether the update would leave every threshold unchanged.
func (u RangeUpdate) Empty() bool {
	return u.High == nil && u.Medium == nil && u.Low == nil
}
