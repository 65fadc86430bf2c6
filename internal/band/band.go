// internal/band/band.go
package band

// Band is one of the four discrete control states derived from attention.
type Band int

const (
	A Band = iota // attention above High
	B             // above Medium, at most High
	C             // above Low, at most Medium
	D             // at most Low, including negative values
)

var names = [...]string{"A", "B", "C", "D"}

func (b Band) String() string {
	if b < A || b > D {
		return "?"
	}
	return names[b]
}

// Command is the byte sent over the command link for this band.
func (b Band) Command() byte {
	return b.String()[0]
}

// Thresholds are the three cut points partitioning attention into bands.
// They are neither required to be ordered nor validated.
type Thresholds struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{High: 75, Medium: 50, Low: 25}
}

// Classify maps an attention value onto a band using strictly-greater
// comparisons against High, then Medium, then Low.
func Classify(v int, t Thresholds) Band {
	switch {
	case v > t.High:
		return A
	case v > t.Medium:
		return B
	case v > t.Low:
		return C
	default:
		return D
	}
}
