// Package predesign reads the output of a converter predesign calculation
// and turns it into component requirements.
package predesign

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sw33tLie/partscope/pkg/component"
)

// Result is the predesign output: named primary values (volts, amps,
// farads, henries) plus free-form context.
type Result struct {
	PrimaryValues map[string]float64 `yaml:"primary_values" json:"primary_values"`
	OperatingMode string             `yaml:"operating_mode,omitempty" json:"operating_mode,omitempty"`
	Assumptions   map[string]string  `yaml:"assumptions,omitempty" json:"assumptions,omitempty"`
}

// Search orders for values that different converter designers name
// differently. The first key present wins.
var (
	voltageKeys     = []string{"vo_avg", "vout", "vo_target", "vdc", "vo_rms"}
	currentKeys     = []string{"io_max", "io_avg", "il_avg", "il_max"}
	capacitanceKeys = []string{"required_capacitance", "capacitance", "c_min"}
	inductanceKeys  = []string{"inductance", "l_min"}
)

// DefaultMaxForwardVoltage is the Vf ceiling applied to diodes picked from
// a predesign.
const DefaultMaxForwardVoltage = 1.0

// Load reads a YAML predesign file.
func Load(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read predesign %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse predesign %s: %w", path, err)
	}
	return r, nil
}

func Parse(data []byte) (*Result, error) {
	var r Result
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if len(r.PrimaryValues) == 0 {
		return nil, &component.ConfigurationError{Field: "primary_values", Reason: "predesign has no primary values"}
	}
	normalized := make(map[string]float64, len(r.PrimaryValues))
	for k, v := range r.PrimaryValues {
		normalized[strings.ToLower(strings.TrimSpace(k))] = v
	}
	r.PrimaryValues = normalized
	return &r, nil
}

// first returns the magnitude of the first key present. Inverting
// topologies report negative output voltages; ratings only care about size.
func (r *Result) first(keys []string) (float64, string, bool) {
	for _, k := range keys {
		if v, ok := r.PrimaryValues[k]; ok {
			return math.Abs(v), k, true
		}
	}
	return 0, "", false
}

func (r *Result) value(key string) (float64, bool) {
	v, ok := r.PrimaryValues[key]
	return math.Abs(v), ok
}

// Requirements derives requirements for one component category using the
// default safety margins.
func (r *Result) Requirements(category component.Category) (component.Requirements, error) {
	voltage, _, hasVoltage := r.first(voltageKeys)
	current, _, hasCurrent := r.first(currentKeys)

	req := component.NewRequirements(category, 0, 0)
	switch category {
	case component.CategorySwitch:
		if !hasVoltage {
			return req, missing("voltage", voltageKeys)
		}
		req.Voltage, req.Current = voltage, current
		if rds, ok := r.value("rds_on_max"); ok {
			req.Constraints.MaxOnResistance = rds
		}

	case component.CategoryDiode:
		if !hasVoltage {
			v, ok := r.value("piv")
			if !ok {
				return req, missing("voltage", append(voltageKeys, "piv"))
			}
			voltage = v
		}
		req.Voltage = voltage
		req.Current = current
		if avg, ok := r.value("io_avg"); ok {
			req.Current = avg
		}
		req.Constraints.MaxForwardVoltage = DefaultMaxForwardVoltage

	case component.CategoryCapacitor:
		if !hasVoltage {
			return req, missing("voltage", voltageKeys)
		}
		req.Voltage = voltage
		// Ripple current is compared as published, without derating.
		if ripple, ok := r.value("delta_il"); ok {
			req.Current = ripple
			req.CurrentMargin = 1.0
		}
		if c, _, ok := r.first(capacitanceKeys); ok {
			req.Constraints.MinCapacitance = c
		}

	case component.CategoryInductor:
		l, _, hasL := r.first(inductanceKeys)
		if !hasCurrent && !hasL {
			return req, missing("current or inductance", append(currentKeys, inductanceKeys...))
		}
		req.Current = current
		req.Constraints.MinInductance = l

	default:
		return req, &component.ConfigurationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", category)}
	}
	return req, req.Validate()
}

func missing(what string, keys []string) error {
	return &component.ConfigurationError{
		Field:  "primary_values",
		Reason: fmt.Sprintf("no %s value, looked for %s", what, strings.Join(keys, ", ")),
	}
}
