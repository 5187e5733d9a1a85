package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sw33tLie/partscope/pkg/component"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"650 V", 650, true},
		{"650V", 650, true},
		{"65mOhm @ 10A, 10V", 0.065, true},
		{"4.7 µF", 4.7e-6, true},
		{"4.7uF", 4.7e-6, true},
		{"4.7μF", 4.7e-6, true},
		{"1,000 µF", 1e-3, true},
		{"1.2KV", 1200, true},
		{"68 nC @ 10 V", 68e-9, true},
		{"31A (Tc)", 31, true},
		{"±20%", 20, true},
		{"-", 0, false},
		{"", 0, false},
		{"Schottky", 0, false},
	}

	for _, tc := range tests {
		got, ok := ParseValue(tc.in)
		assert.Equal(t, tc.ok, ok, "ok for %q", tc.in)
		assert.InEpsilon(t, nonZero(tc.want), nonZero(got), 1e-9, "value for %q", tc.in)
	}
}

// nonZero lets InEpsilon compare zero results.
func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func TestParsePrice(t *testing.T) {
	for in, want := range map[string]string{
		"$1.23":     "1.23",
		"1.23 USD":  "1.23",
		"1,23 €":    "1.23",
		"$1,234.50": "1234.5",
	} {
		got, ok := ParsePrice(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got.String(), in)
	}
	_, ok := ParsePrice("Quote")
	assert.False(t, ok)
}

func TestParseStock(t *testing.T) {
	assert.Equal(t, 1234, ParseStock("1,234 In Stock"))
	assert.Equal(t, 0, ParseStock("None"))
	assert.Equal(t, 87, ParseStock("87"))
}

func TestClassify(t *testing.T) {
	for in, want := range map[string]component.Category{
		"Transistors - FETs, MOSFETs - Single": component.CategorySwitch,
		"IGBT Transistors":                     component.CategorySwitch,
		"Schottky Diodes & Rectifiers":         component.CategoryDiode,
		"Aluminum Electrolytic Capacitors":     component.CategoryCapacitor,
		"Fixed Inductors":                      component.CategoryInductor,
	} {
		got, ok := Classify(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := Classify("Resistors")
	assert.False(t, ok)
}

func TestScanDescription(t *testing.T) {
	d := ScanDescription("MOSFET N-Channel 600V 13A TO-220")
	assert.Equal(t, 600.0, d.Voltage)
	assert.Equal(t, 13.0, d.Current)

	d = ScanDescription("Aluminum Electrolytic Capacitors - Radial Leaded 63V 470uF 20%")
	assert.Equal(t, 63.0, d.Voltage)
	assert.InDelta(t, 470e-6, d.Capacitance, 1e-12)

	d = ScanDescription("Power Inductors - SMD 100uH UnShld 10% 5.6A")
	assert.InDelta(t, 100e-6, d.Inductance, 1e-12)
	assert.Equal(t, 5.6, d.Current)
}

func TestRoundUpVoltage(t *testing.T) {
	assert.Equal(t, 600.0, RoundUpVoltage(600))
	assert.Equal(t, 800.0, RoundUpVoltage(601))
	assert.Equal(t, 20.0, RoundUpVoltage(12))
	assert.Equal(t, 0.0, RoundUpVoltage(2000))
}
