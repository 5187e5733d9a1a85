package selector

import (
	"math"
	"sort"

	"github.com/sw33tLie/partscope/pkg/component"
)

// ComponentScore is one ranked recommendation. Rank starts at 1.
type ComponentScore struct {
	Component component.Component `json:"component"`
	Subscores Subscores           `json:"subscores"`
	Composite float64             `json:"composite"`
	Rank      int                 `json:"rank"`
}

// Composite returns the weighted sum of s.
func Composite(s Subscores, w component.Weights) float64 {
	return w.Cost*s.Cost + w.Availability*s.Availability + w.Efficiency*s.Efficiency + w.Thermal*s.Thermal
}

// Rank orders scored candidates by composite descending. Ties go to the
// lower price, with unpriced parts last, then the vendor name, then the
// part number, so the order never depends on input order.
func Rank(scored []Scored, w component.Weights) []ComponentScore {
	out := make([]ComponentScore, len(scored))
	for i, s := range scored {
		out[i] = ComponentScore{
			Component: s.Component,
			Subscores: s.Subscores,
			Composite: math.Max(0, math.Min(1, Composite(s.Subscores, w))),
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		if pa, pb := a.Component.HasPrice(), b.Component.HasPrice(); pa != pb {
			return pa
		}
		if c := a.Component.UnitPrice.Cmp(b.Component.UnitPrice); c != 0 {
			return c < 0
		}
		if a.Component.Vendor != b.Component.Vendor {
			return a.Component.Vendor < b.Component.Vendor
		}
		return a.Component.PartNumber < b.Component.PartNumber
	})

	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Select runs Filter, Score and Rank and keeps the top limit results.
// limit <= 0 keeps everything.
func Select(candidates []component.Component, req component.Requirements, w component.Weights, limit int) []ComponentScore {
	ranked := Rank(Score(Filter(candidates, req), req), w)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
