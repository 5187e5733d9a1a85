package selector

import (
	"math"

	"github.com/sw33tLie/partscope/pkg/component"
)

// Subscores holds the per-criterion normalized values, each in [0,1].
type Subscores struct {
	Cost         float64 `json:"cost"`
	Availability float64 `json:"availability"`
	Efficiency   float64 `json:"efficiency"`
	Thermal      float64 `json:"thermal"`
}

// Scored is a candidate with its subscores, before ranking.
type Scored struct {
	Component component.Component
	Subscores Subscores
}

// tieScore is assigned to every candidate when a criterion has no spread.
const tieScore = 0.5

// Score computes subscores by min-max normalization across candidates,
// which should already be filtered. Loss proxies are evaluated at the
// derated current of req, or 1 A when no current is required. A part
// without a quoted price scores 0 on cost.
func Score(candidates []component.Component, req component.Requirements) []Scored {
	n := len(candidates)
	if n == 0 {
		return []Scored{}
	}

	_, current := req.Derate()
	if current <= 0 {
		current = 1
	}

	price := make([]float64, n)
	priceOK := make([]bool, n)
	stock := make([]float64, n)
	loss := make([]float64, n)
	lossOK := make([]bool, n)
	thermal := make([]float64, n)
	thermalOK := make([]bool, n)

	for i, c := range candidates {
		price[i], priceOK[i] = c.Price(), c.HasPrice()
		stock[i] = float64(c.Stock)
		if lm, ok := c.Spec.(component.LossModel); ok {
			loss[i], lossOK[i] = lm.ConductionLoss(current)
			thermal[i], thermalOK[i] = lm.ThermalProxy()
		}
	}

	costScores := lowerIsBetter(price, priceOK)
	stockScores := higherIsBetter(stock)
	lossScores := lowerIsBetter(loss, lossOK)
	thermalScores := lowerIsBetter(thermal, thermalOK)

	out := make([]Scored, n)
	for i, c := range candidates {
		availability := stockScores[i]
		if c.Stock <= 0 {
			availability = 0
		}
		out[i] = Scored{
			Component: c,
			Subscores: Subscores{
				Cost:         costScores[i],
				Availability: availability,
				Efficiency:   lossScores[i],
				Thermal:      thermalScores[i],
			},
		}
	}
	return out
}

// lowerIsBetter maps the minimum to 1 and the maximum to 0. Entries whose
// known flag is false score 0 and do not take part in the range. A nil
// known slice means every value is known.
func lowerIsBetter(values []float64, known []bool) []float64 {
	lo, hi, found := bounds(values, known)
	out := make([]float64, len(values))
	for i, v := range values {
		switch {
		case known != nil && !known[i]:
			out[i] = 0
		case !found:
			out[i] = 0
		case hi == lo:
			out[i] = tieScore
		default:
			out[i] = clamp((hi - v) / (hi - lo))
		}
	}
	return out
}

func higherIsBetter(values []float64) []float64 {
	lo, hi, _ := bounds(values, nil)
	out := make([]float64, len(values))
	for i, v := range values {
		if hi == lo {
			out[i] = tieScore
			continue
		}
		out[i] = clamp((v - lo) / (hi - lo))
	}
	return out
}

func bounds(values []float64, known []bool) (lo, hi float64, found bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i, v := range values {
		if known != nil && !known[i] {
			continue
		}
		found = true
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, found
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
