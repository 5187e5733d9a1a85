package catalog

import (
	"strings"

	"github.com/sw33tLie/partscope/pkg/component"
)

// FieldNames lists, per spec field, the attribute names a vendor uses for
// it, most specific first.
type FieldNames struct {
	Voltage           []string
	Current           []string
	OnResistance      []string
	SaturationVoltage []string
	GateCharge        []string
	ThresholdVoltage  []string
	Polarity          []string
	ForwardVoltage    []string
	RecoveryTime      []string
	DiodeType         []string
	Capacitance       []string
	ESR               []string
	RippleCurrent     []string
	Tolerance         []string
	Dielectric        []string
	Inductance        []string
	DCResistance      []string
	SaturationCurrent []string
	RatedCurrent      []string
	CoreMaterial      []string
	Package           []string
}

// BuildSpec assembles the category record from vendor attributes, falling
// back to ratings scanned from the description when attributes are empty.
// isIGBT selects the collector-emitter loss model for switches.
func BuildSpec(cat component.Category, isIGBT bool, attrs Attributes, names FieldNames, description string) component.Spec {
	desc := ScanDescription(description)
	orDesc := func(v, fallback float64) float64 {
		if v > 0 {
			return v
		}
		return fallback
	}

	switch cat {
	case component.CategorySwitch:
		s := component.SwitchSpec{
			Technology:        "mosfet",
			Polarity:          attrs.Text(names.Polarity...),
			VoltageMax:        orDesc(attrs.Value(names.Voltage...), desc.Voltage),
			CurrentMax:        orDesc(attrs.Value(names.Current...), desc.Current),
			OnResistance:      attrs.Value(names.OnResistance...),
			SaturationVoltage: attrs.Value(names.SaturationVoltage...),
			GateCharge:        attrs.Value(names.GateCharge...) * 1e9,
			ThresholdVoltage:  attrs.Value(names.ThresholdVoltage...),
		}
		if isIGBT {
			s.Technology = "igbt"
		}
		return s
	case component.CategoryDiode:
		return component.DiodeSpec{
			Type:              attrs.Text(names.DiodeType...),
			ReverseVoltage:    orDesc(attrs.Value(names.Voltage...), desc.Voltage),
			ForwardCurrent:    orDesc(attrs.Value(names.Current...), desc.Current),
			ForwardVoltage:    attrs.Value(names.ForwardVoltage...),
			ReverseRecoveryNs: attrs.Value(names.RecoveryTime...) * 1e9,
		}
	case component.CategoryCapacitor:
		return component.CapacitorSpec{
			Capacitance:   orDesc(attrs.Value(names.Capacitance...), desc.Capacitance),
			VoltageRated:  orDesc(attrs.Value(names.Voltage...), desc.Voltage),
			ESR:           attrs.Value(names.ESR...),
			RippleCurrent: attrs.Value(names.RippleCurrent...),
			Tolerance:     attrs.Value(names.Tolerance...),
			Dielectric:    attrs.Text(names.Dielectric...),
		}
	case component.CategoryInductor:
		isat := attrs.Value(names.SaturationCurrent...)
		rated := orDesc(attrs.Value(names.RatedCurrent...), desc.Current)
		if isat == 0 {
			// Without a published Isat the thermal rating is the best bound.
			isat = rated
		}
		return component.InductorSpec{
			Inductance:        orDesc(attrs.Value(names.Inductance...), desc.Inductance),
			DCResistance:      attrs.Value(names.DCResistance...),
			SaturationCurrent: isat,
			RatedCurrent:      rated,
			CoreMaterial:      attrs.Text(names.CoreMaterial...),
		}
	}
	return nil
}

// IsIGBT reports whether a category path or description names an IGBT.
func IsIGBT(texts ...string) bool {
	for _, t := range texts {
		if strings.Contains(strings.ToLower(t), "igbt") {
			return true
		}
	}
	return false
}
