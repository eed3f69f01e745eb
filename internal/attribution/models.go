package attribution

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

// ErrUnknownModel is returned for model names outside domain.AllModels
var ErrUnknownModel = errors.New("unknown attribution model")

// ParseModel converts a model name to a domain.Model
func ParseModel(name string) (domain.Model, error) {
	m := domain.Model(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range domain.AllModels {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

// ParseModels converts a list of model names, rejecting duplicates
func ParseModels(names []string) ([]domain.Model, error) {
	seen := make(map[domain.Model]bool, len(names))
	models := make([]domain.Model, 0, len(names))
	for _, name := range names {
		m, err := ParseModel(name)
		if err != nil {
			return nil, err
		}
		if seen[m] {
			return nil, fmt.Errorf("duplicate attribution model %q", m)
		}
		seen[m] = true
		models = append(models, m)
	}
	return models, nil
}

// The weight functions below receive the non-conversion touchpoints of a
// converting path (n >= 1) and return one weight per touchpoint.

func firstTouch(n int) []float64 {
	w := make([]float64, n)
	w[0] = 1
	return w
}

func lastTouch(n int) []float64 {
	w := make([]float64, n)
	w[n-1] = 1
	return w
}

func linear(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

// timeDecay weights each touchpoint by 2^(-dt/halfLife), dt being the time to
// conversion, then normalizes the weights to sum to one. Exponents are taken
// relative to the closest touchpoint so old paths do not underflow to zero.
func timeDecay(touchpoints []*domain.AttributionEvent, conversionAt time.Time, halfLife time.Duration) []float64 {
	w := make([]float64, len(touchpoints))
	if len(touchpoints) == 0 {
		return w
	}
	dts := make([]float64, len(touchpoints))
	minDt := math.Inf(1)
	for i, tp := range touchpoints {
		dt := conversionAt.Sub(tp.OccurredAt)
		if dt < 0 {
			dt = 0
		}
		dts[i] = dt.Hours() / halfLife.Hours()
		minDt = math.Min(minDt, dts[i])
	}
	var total float64
	for i, dt := range dts {
		w[i] = math.Pow(2, -(dt - minDt))
		total += w[i]
	}
	for i := range w {
		w[i] /= total
	}
	return w
}

// positionBased gives 40% to the first and last touchpoints and splits 20%
// across the middle. With two touchpoints the unclaimed middle share is split
// evenly, giving 50/50.
func positionBased(n int) []float64 {
	w := make([]float64, n)
	switch n {
	case 1:
		w[0] = 1
	case 2:
		w[0], w[1] = 0.5, 0.5
	default:
		w[0], w[n-1] = 0.4, 0.4
		middle := 0.2 / float64(n-2)
		for i := 1; i < n-1; i++ {
			w[i] = middle
		}
	}
	return w
}

func uShaped(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	w[0], w[n-1] = 0.5, 0.5
	return w
}

// wShaped favours the first, middle and last touchpoints
func wShaped(n int) []float64 {
	w := make([]float64, n)
	switch n {
	case 1:
		w[0] = 1
	case 2:
		w[0], w[1] = 0.5, 0.5
	case 3:
		w[0], w[1], w[2] = 1.0/3, 1.0/3, 1.0/3
	case 4:
		w[0], w[1], w[2], w[3] = 0.325, 0.175, 0.175, 0.325
	default:
		first, last := 0, n-1
		if n%2 != 0 {
			mid := n / 2
			w[first], w[mid], w[last] = 0.3, 0.3, 0.3
			rest := 0.1 / float64(n-3)
			for i := range w {
				if i != first && i != mid && i != last {
					w[i] = rest
				}
			}
		} else {
			mid1 := n / 2
			mid2 := mid1 - 1
			w[first], w[mid1], w[mid2], w[last] = 0.3, 0.15, 0.15, 0.3
			rest := 0.1 / float64(n-4)
			for i := range w {
				if i != first && i != mid1 && i != mid2 && i != last {
					w[i] = rest
				}
			}
		}
	}
	return w
}
