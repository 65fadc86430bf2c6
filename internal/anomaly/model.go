// internal/anomaly/model.go
package anomaly

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"
)

const minSpread = 1e-6

// Model is a one-class boundary around the training frames. Features are
// compared in log space, since band powers span several orders of magnitude,
// and scored by their RMS standardised distance from the training mean.
// The boundary sits at the (1-nu) quantile of the training scores, so about
// a nu fraction of the training frames fall outside it.
type Model struct {
	mean  []float64
	std   []float64
	limit float64
}

// Fit builds a model from equally sized feature vectors.
func Fit(samples [][]float64, nu float64) (*Model, error) {
	if len(samples) < 2 {
		return nil, errors.Newf("need at least 2 samples, got %d", len(samples))
	}
	if nu <= 0 || nu >= 1 {
		return nil, errors.Newf("nu must be in (0, 1), got %v", nu)
	}
	dim := len(samples[0])
	if dim == 0 {
		return nil, errors.New("empty feature vector")
	}

	logged := make([][]float64, len(samples))
	for i, s := range samples {
		if len(s) != dim {
			return nil, errors.Newf("sample %d has %d features, want %d", i, len(s), dim)
		}
		logged[i] = logFeatures(s)
	}

	m := &Model{mean: make([]float64, dim), std: make([]float64, dim)}
	n := float64(len(logged))
	for _, s := range logged {
		for j, v := range s {
			m.mean[j] += v / n
		}
	}
	for _, s := range logged {
		for j, v := range s {
			d := v - m.mean[j]
			m.std[j] += d * d / n
		}
	}
	for j := range m.std {
		m.std[j] = math.Max(math.Sqrt(m.std[j]), minSpread)
	}

	scores := make([]float64, len(logged))
	for i, s := range logged {
		scores[i] = m.score(s)
	}
	sort.Float64s(scores)
	idx := int(math.Ceil((1-nu)*n)) - 1
	if idx < 0 {
		idx = 0
	}
	m.limit = scores[idx]
	return m, nil
}

// Score is the distance of x from the training data; larger is stranger.
func (m *Model) Score(x []float64) float64 {
	return m.score(logFeatures(x))
}

func (m *Model) Limit() float64 { return m.limit }

func (m *Model) score(logged []float64) float64 {
	if len(logged) != len(m.mean) {
		return math.Inf(1)
	}
	var sum float64
	for j, v := range logged {
		z := (v - m.mean[j]) / m.std[j]
		sum += z * z
	}
	return math.Sqrt(sum / float64(len(logged)))
}

func logFeatures(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Log1p(math.Max(v, 0))
	}
	return out
}
