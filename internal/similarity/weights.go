package similarity

import (
	"fmt"
	"math"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/job-recommender/internal/dataset"
)

const weightSumTolerance = 1e-9

// Weights are the blend coefficients of the six similarity factors. They must
// be non-negative and sum to 1.
type Weights struct {
	Industry   float64 `mapstructure:"industry" json:"industry"`
	Job        float64 `mapstructure:"job" json:"job"`
	Experience float64 `mapstructure:"experience" json:"experience"`
	Salary     float64 `mapstructure:"salary" json:"salary"`
	Skills     float64 `mapstructure:"skills" json:"skills"`
	Degree     float64 `mapstructure:"degree" json:"degree"`
}

// DefaultWeights favour industry and job title.
var DefaultWeights = Weights{
	Industry:   0.3,
	Job:        0.25,
	Experience: 0.15,
	Salary:     0.1,
	Skills:     0.15,
	Degree:     0.05,
}

// NewWeights returns validated weights.
func NewWeights(industry, job, experience, salary, skills, degree float64) (Weights, error) {
	w := Weights{
		Industry:   industry,
		Job:        job,
		Experience: experience,
		Salary:     salary,
		Skills:     skills,
		Degree:     degree,
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

// WeightsFromMap decodes weights from a configuration map. An empty map
// yields DefaultWeights; otherwise all six keys are expected and unknown keys
// are rejected.
func WeightsFromMap(raw map[string]any) (Weights, error) {
	if len(raw) == 0 {
		return DefaultWeights, nil
	}

	var w Weights
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &w,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Weights{}, fmt.Errorf("create weights decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return Weights{}, &dataset.ShapeError{Message: "decode weights", Cause: err}
	}

	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

// Validate checks non-negativity and the sum-to-one constraint.
func (w Weights) Validate() error {
	for _, f := range w.fields() {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return dataset.Shapef("weight %s is not finite", f.name)
		}
		if f.value < 0 {
			return dataset.Shapef("weight %s is negative: %v", f.name, f.value)
		}
	}

	if sum := w.Sum(); math.Abs(sum-1) > weightSumTolerance {
		return dataset.Shapef("weights must sum to 1, got %v", sum)
	}
	return nil
}

func (w Weights) Sum() float64 {
	return w.Industry + w.Job + w.Experience + w.Salary + w.Skills + w.Degree
}

type namedWeight struct {
	name  string
	value float64
}

func (w Weights) fields() []namedWeight {
	return []namedWeight{
		{"industry", w.Industry},
		{"job", w.Job},
		{"experience", w.Experience},
		{"salary", w.Salary},
		{"skills", w.Skills},
		{"degree", w.Degree},
	}
}
