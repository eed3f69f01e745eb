package attribution

import (
	"fmt"
	"time"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/validation"
)

// Config tunes the attribution models
type Config struct {
	// HalfLife is the time_decay half-life
	HalfLife time.Duration
}

// DefaultConfig returns a seven day half-life
func DefaultConfig() Config {
	return Config{HalfLife: 7 * 24 * time.Hour}
}

// Engine distributes conversion credit across the touchpoints of a path
type Engine struct {
	cfg Config
}

// NewEngine creates a new attribution engine
func NewEngine(cfg Config) *Engine {
	if cfg.HalfLife <= 0 {
		cfg.HalfLife = DefaultConfig().HalfLife
	}
	return &Engine{cfg: cfg}
}

// Distribute computes the credit of every touchpoint on the path under model.
// Unconverted paths get zero credit everywhere. A converting path with no
// touchpoint before the conversion credits the conversion itself. A credit sum
// outside 1.0 ± 1e-6 is returned as a CreditSumInvariantError along with the
// offending result.
func (e *Engine) Distribute(path *domain.AttributionPath, model domain.Model) (domain.AttributionResult, error) {
	if _, err := ParseModel(string(model)); err != nil {
		return domain.AttributionResult{}, err
	}

	result := domain.AttributionResult{
		PathID:          path.PathID,
		Model:           model,
		Converted:       path.Converted(),
		Credits:         make(map[string]float64, len(path.Touchpoints)),
		AttributedValue: make(map[string]float64, len(path.Touchpoints)),
	}
	for _, tp := range path.Touchpoints {
		result.Credits[tp.EventID] = 0
		result.AttributedValue[tp.EventID] = 0
	}

	if !result.Converted {
		return result, validation.CheckCreditSum(&result)
	}

	conversion := path.Conversion()
	if conversion == nil {
		return result, fmt.Errorf("path %s has no conversion touchpoint", path.PathID)
	}
	value := conversion.Value()
	result.ConversionValue = value

	prior := path.Touchpoints[:len(path.Touchpoints)-1]
	if len(prior) == 0 {
		result.Credits[conversion.EventID] = 1
		result.AttributedValue[conversion.EventID] = value
		return result, validation.CheckCreditSum(&result)
	}

	weights := e.weights(model, prior, conversion.OccurredAt)
	for i, tp := range prior {
		result.Credits[tp.EventID] = weights[i]
		result.AttributedValue[tp.EventID] = value * weights[i]
	}

	return result, validation.CheckCreditSum(&result)
}

// DistributeAll runs Distribute for every model
func (e *Engine) DistributeAll(path *domain.AttributionPath, models []domain.Model) ([]domain.AttributionResult, []error) {
	results := make([]domain.AttributionResult, 0, len(models))
	var errs []error
	for _, m := range models {
		r, err := e.Distribute(path, m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, r)
	}
	return results, errs
}

func (e *Engine) weights(model domain.Model, prior []*domain.AttributionEvent, conversionAt time.Time) []float64 {
	n := len(prior)
	switch model {
	case domain.ModelFirstTouch:
		return firstTouch(n)
	case domain.ModelLastTouch:
		return lastTouch(n)
	case domain.ModelLinear:
		return linear(n)
	case domain.ModelTimeDecay:
		return timeDecay(prior, conversionAt, e.cfg.HalfLife)
	case domain.ModelPositionBased:
		return positionBased(n)
	case domain.ModelUShaped:
		return uShaped(n)
	case domain.ModelWShaped:
		return wShaped(n)
	default:
		return make([]float64, n)
	}
}
