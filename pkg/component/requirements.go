package component

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	DefaultVoltageMargin = 1.5
	DefaultCurrentMargin = 1.25
)

// ConfigurationError reports an invalid value supplied before any work starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Constraints are optional category-specific limits. Zero means unset.
type Constraints struct {
	MaxESR            float64  `json:"max_esr,omitempty" yaml:"max_esr"`
	MinCapacitance    float64  `json:"min_capacitance,omitempty" yaml:"min_capacitance"`
	MinInductance     float64  `json:"min_inductance,omitempty" yaml:"min_inductance"`
	MaxOnResistance   float64  `json:"max_on_resistance,omitempty" yaml:"max_on_resistance"`
	MaxGateCharge     float64  `json:"max_gate_charge,omitempty" yaml:"max_gate_charge"`
	MaxForwardVoltage float64  `json:"max_forward_voltage,omitempty" yaml:"max_forward_voltage"`
	MaxRecoveryNs     float64  `json:"max_recovery_ns,omitempty" yaml:"max_recovery_ns"`
	MaxDCResistance   float64  `json:"max_dc_resistance,omitempty" yaml:"max_dc_resistance"`
	Packages          []string `json:"packages,omitempty" yaml:"packages"`
}

// Requirements is what a candidate must satisfy, derived from a converter
// predesign by the caller.
type Requirements struct {
	Category      Category    `json:"category"`
	Voltage       float64     `json:"voltage"`
	Current       float64     `json:"current"`
	VoltageMargin float64     `json:"voltage_margin"`
	CurrentMargin float64     `json:"current_margin"`
	Constraints   Constraints `json:"constraints"`
}

// NewRequirements returns requirements with the default safety margins.
func NewRequirements(category Category, voltage, current float64) Requirements {
	return Requirements{
		Category:      category,
		Voltage:       voltage,
		Current:       current,
		VoltageMargin: DefaultVoltageMargin,
		CurrentMargin: DefaultCurrentMargin,
	}
}

// Derate returns the voltage and current a candidate must be rated for.
func (r Requirements) Derate() (voltage, current float64) {
	return r.Voltage * r.VoltageMargin, r.Current * r.CurrentMargin
}

// Validate checks the invariants of r.
func (r Requirements) Validate() error {
	if _, ok := categoryAliases[r.Category]; !ok {
		return &ConfigurationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", r.Category)}
	}
	for name, v := range map[string]float64{
		"voltage":        r.Voltage,
		"current":        r.Current,
		"voltage_margin": r.VoltageMargin,
		"current_margin": r.CurrentMargin,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ConfigurationError{Field: name, Reason: fmt.Sprintf("must be a finite number, got %g", v)}
		}
	}
	if r.Voltage < 0 {
		return &ConfigurationError{Field: "voltage", Reason: "must not be negative"}
	}
	if r.Current < 0 {
		return &ConfigurationError{Field: "current", Reason: "must not be negative"}
	}
	if r.VoltageMargin < 1.0 {
		return &ConfigurationError{Field: "voltage_margin", Reason: fmt.Sprintf("must be >= 1.0, got %g", r.VoltageMargin)}
	}
	if r.CurrentMargin < 1.0 {
		return &ConfigurationError{Field: "current_margin", Reason: fmt.Sprintf("must be >= 1.0, got %g", r.CurrentMargin)}
	}
	c := r.Constraints
	for name, v := range map[string]float64{
		"max_esr":             c.MaxESR,
		"min_capacitance":     c.MinCapacitance,
		"min_inductance":      c.MinInductance,
		"max_on_resistance":   c.MaxOnResistance,
		"max_gate_charge":     c.MaxGateCharge,
		"max_forward_voltage": c.MaxForwardVoltage,
		"max_recovery_ns":     c.MaxRecoveryNs,
		"max_dc_resistance":   c.MaxDCResistance,
	} {
		if v < 0 || math.IsNaN(v) {
			return &ConfigurationError{Field: "constraints." + name, Reason: "must not be negative"}
		}
	}
	return nil
}

// Canonical returns a copy with normalized package names, suitable for
// hashing into a cache key.
func (r Requirements) Canonical() Requirements {
	out := r
	if len(r.Constraints.Packages) > 0 {
		pkgs := make([]string, 0, len(r.Constraints.Packages))
		seen := map[string]bool{}
		for _, p := range r.Constraints.Packages {
			p = strings.ToUpper(strings.TrimSpace(p))
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			pkgs = append(pkgs, p)
		}
		sort.Strings(pkgs)
		out.Constraints.Packages = pkgs
	}
	return out
}
