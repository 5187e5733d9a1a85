package catalog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/sw33tLie/partscope/pkg/component"
)

var (
	thousandsSep = regexp.MustCompile(`(\d),(\d{3})`)
	microPrefix  = regexp.MustCompile(`^([-+]?[0-9.]+)\s*[uμ]`)
	kiloPrefix   = regexp.MustCompile(`^([-+]?[0-9.]+)\s*K`)
	leadingInt   = regexp.MustCompile(`^\d+`)
)

// ParseValue reads the leading quantity of a vendor attribute such as
// "65mOhm @ 10A, 10V", "4.7 µF" or "1,000uF" and returns it in base SI
// units. ok is false for empty, "-" or otherwise unparseable values.
func ParseValue(s string) (float64, bool) {
	s = strings.TrimSpace(thousandsSep.ReplaceAllString(s, "$1$2"))
	if i := strings.IndexAny(s, "@,(;~/"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "±"), "+/-")
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, false
	}
	s = microPrefix.ReplaceAllString(s, "${1}µ")
	s = kiloPrefix.ReplaceAllString(s, "${1}k")

	v, _, err := humanize.ParseSI(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParsePrice reads "$1.23", "1.23 USD" or "1,23 €" into a decimal.
func ParsePrice(s string) (decimal.Decimal, bool) {
	s = strings.NewReplacer("$", "", "€", "", "£", "", "USD", "", "EUR", "", " ", "").Replace(s)
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// ParseStock reads the leading integer of strings like "1,234 In Stock".
func ParseStock(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	n, err := strconv.Atoi(leadingInt.FindString(s))
	if err != nil {
		return 0
	}
	return n
}

// Classify maps a free-form vendor category path to a component category.
func Classify(text string) (component.Category, bool) {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "mosfet"), strings.Contains(t, "igbt"), strings.Contains(t, "fet"):
		return component.CategorySwitch, true
	case strings.Contains(t, "diode"), strings.Contains(t, "diodo"), strings.Contains(t, "rectifier"), strings.Contains(t, "rectificador"):
		return component.CategoryDiode, true
	case strings.Contains(t, "capacitor"), strings.Contains(t, "capacitores"):
		return component.CategoryCapacitor, true
	case strings.Contains(t, "inductor"), strings.Contains(t, "choke"), strings.Contains(t, "bobina"):
		return component.CategoryInductor, true
	}
	return "", false
}

// Attributes is a vendor's name -> value parameter table for one part.
type Attributes map[string]string

// Text returns the first non-empty value among names.
func (a Attributes) Text(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(a[n]); v != "" && v != "-" {
			return v
		}
	}
	return ""
}

// Value returns the first parseable quantity among names, 0 if none.
func (a Attributes) Value(names ...string) float64 {
	for _, n := range names {
		if v, ok := ParseValue(a[n]); ok {
			return v
		}
	}
	return 0
}

var (
	descVoltage     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:VDC|volts?|V)\b`)
	descCurrent     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*-?A\b`)
	descCapacitance = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([pnuUµμm]?)F\b`)
	descInductance  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([nuUµμm]?)[Hh]\b`)
)

var prefixScale = map[string]float64{
	"":  1,
	"p": 1e-12,
	"n": 1e-9,
	"u": 1e-6,
	"U": 1e-6,
	"µ": 1e-6,
	"μ": 1e-6,
	"m": 1e-3,
}

// Described holds ratings recovered from a free-text description, used when
// the vendor's structured attributes are empty.
type Described struct {
	Voltage     float64
	Current     float64
	Capacitance float64
	Inductance  float64
}

// ScanDescription extracts ratings from text like "N-Channel 600V 13A" or
// "100uF 63V 20%".
func ScanDescription(desc string) Described {
	var d Described
	if m := descVoltage.FindStringSubmatch(desc); m != nil {
		d.Voltage, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := descCurrent.FindStringSubmatch(desc); m != nil {
		d.Current, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := descCapacitance.FindStringSubmatch(desc); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		d.Capacitance = v * prefixScale[m[2]]
	}
	if m := descInductance.FindStringSubmatch(desc); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		d.Inductance = v * prefixScale[m[2]]
	}
	return d
}

var commonVoltages = []float64{20, 30, 40, 50, 60, 75, 100, 150, 200, 250, 300, 400, 500, 600, 800, 1000, 1200, 1500, 1700}

// RoundUpVoltage returns the smallest common device voltage rating >= v, or
// 0 when v is above every common rating.
func RoundUpVoltage(v float64) float64 {
	for _, c := range commonVoltages {
		if v <= c {
			return c
		}
	}
	return 0
}
