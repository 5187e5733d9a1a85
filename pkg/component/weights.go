package component

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// weightTolerance is how far the weight sum may drift from 1.0.
const weightTolerance = 1e-6

// Weights sets the relative importance of each scoring criterion.
// Construct through NewWeights so the sum invariant holds.
type Weights struct {
	Cost         float64 `json:"cost"`
	Availability float64 `json:"availability"`
	Efficiency   float64 `json:"efficiency"`
	Thermal      float64 `json:"thermal"`
}

// DefaultWeights returns cost 0.30, availability 0.25, efficiency 0.25,
// thermal 0.20.
func DefaultWeights() Weights {
	return Weights{Cost: 0.30, Availability: 0.25, Efficiency: 0.25, Thermal: 0.20}
}

// NewWeights validates and returns a weight set.
func NewWeights(cost, availability, efficiency, thermal float64) (Weights, error) {
	w := Weights{Cost: cost, Availability: availability, Efficiency: efficiency, Thermal: thermal}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Cost + w.Availability + w.Efficiency + w.Thermal
}

// Validate checks that no weight is negative and that they sum to 1.0.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"cost":         w.Cost,
		"availability": w.Availability,
		"efficiency":   w.Efficiency,
		"thermal":      w.Thermal,
	} {
		if v < 0 || math.IsNaN(v) {
			return &ConfigurationError{Field: "weights." + name, Reason: fmt.Sprintf("must be non-negative, got %g", v)}
		}
	}
	if math.Abs(w.Sum()-1.0) > weightTolerance {
		return &ConfigurationError{Field: "weights", Reason: fmt.Sprintf("sum to %.6f, must sum to 1.0", w.Sum())}
	}
	return nil
}

// ParseWeights reads "cost=0.4,availability=0.2,..." starting from the
// defaults, so unspecified criteria keep their default value.
func ParseWeights(s string) (Weights, error) {
	w := DefaultWeights()
	s = strings.TrimSpace(s)
	if s == "" {
		return w, nil
	}
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			return Weights{}, &ConfigurationError{Field: "weights", Reason: fmt.Sprintf("malformed pair %q", part)}
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return Weights{}, &ConfigurationError{Field: "weights", Reason: fmt.Sprintf("bad value in %q", part)}
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "cost":
			w.Cost = v
		case "availability", "stock":
			w.Availability = v
		case "efficiency":
			w.Efficiency = v
		case "thermal":
			w.Thermal = v
		default:
			return Weights{}, &ConfigurationError{Field: "weights", Reason: fmt.Sprintf("unknown criterion %q", kv[0])}
		}
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}
