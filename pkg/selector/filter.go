// Package selector ranks catalog candidates in three pure phases: Filter
// drops parts that cannot meet the derated requirements, Score normalizes
// four criteria across the survivors, and Rank orders them by weighted
// composite.
package selector

import (
	"strings"

	"github.com/sw33tLie/partscope/pkg/component"
)

// Filter returns the candidates that satisfy req. Candidates of another
// category, or whose ratings fall below the derated requirement, are
// dropped. An empty result is not an error.
func Filter(candidates []component.Component, req component.Requirements) []component.Component {
	voltage, current := req.Derate()
	packages := req.Canonical().Constraints.Packages

	out := make([]component.Component, 0, len(candidates))
	for _, c := range candidates {
		if c.Spec == nil || c.Spec.Category() != req.Category {
			continue
		}
		if !meetsRatings(c.Spec, voltage, current) {
			continue
		}
		if !meetsConstraints(c.Spec, req.Constraints) {
			continue
		}
		if len(packages) > 0 && !packageAllowed(c.Package, packages) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// meetsRatings compares each published rating against the derated value.
// A spec without a voltage rating (inductors) skips the voltage check.
func meetsRatings(spec component.Spec, voltage, current float64) bool {
	if v, ok := spec.(component.VoltageRated); ok && voltage > 0 {
		if v.VoltageRating() < voltage {
			return false
		}
	}
	if c, ok := spec.(component.CurrentRated); ok && current > 0 {
		if c.CurrentRating() < current {
			return false
		}
	}
	return true
}

// meetsConstraints applies the optional secondary limits. A limit only
// eliminates a part that publishes the value; unknown values pass and are
// penalized during scoring instead.
func meetsConstraints(spec component.Spec, c component.Constraints) bool {
	switch s := spec.(type) {
	case component.SwitchSpec:
		return atMost(s.OnResistance, c.MaxOnResistance) && atMost(s.GateCharge, c.MaxGateCharge)
	case component.DiodeSpec:
		return atMost(s.ForwardVoltage, c.MaxForwardVoltage) && atMost(s.ReverseRecoveryNs, c.MaxRecoveryNs)
	case component.CapacitorSpec:
		return atMost(s.ESR, c.MaxESR) && atLeast(s.Capacitance, c.MinCapacitance)
	case component.InductorSpec:
		return atMost(s.DCResistance, c.MaxDCResistance) && atLeast(s.Inductance, c.MinInductance)
	}
	return true
}

func atMost(value, limit float64) bool {
	return limit <= 0 || value <= 0 || value <= limit
}

// atLeast is strict about missing data: a part with no published
// capacitance cannot be shown to meet a minimum.
func atLeast(value, limit float64) bool {
	return limit <= 0 || value >= limit
}

func packageAllowed(pkg string, allowed []string) bool {
	pkg = strings.ToUpper(strings.TrimSpace(pkg))
	if pkg == "" {
		return false
	}
	for _, a := range allowed {
		// "TO-220" admits vendor spellings such as "TO-220-3" and "TO-220AB".
		if strings.HasPrefix(pkg, a) {
			return true
		}
	}
	return false
}
