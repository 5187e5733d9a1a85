package component

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Category tags the electrical role of a part.
type Category string

const (
	CategorySwitch    Category = "switch"
	CategoryDiode     Category = "diode"
	CategoryCapacitor Category = "capacitor"
	CategoryInductor  Category = "inductor"
)

// Categories lists every supported category in a stable order.
var Categories = []Category{CategorySwitch, CategoryDiode, CategoryCapacitor, CategoryInductor}

// categoryAliases groups raw vendor/user strings under a canonical category.
var categoryAliases = map[Category][]string{
	CategorySwitch:    {"switch", "mosfet", "fet", "igbt", "transistor", "mosfets", "transistors"},
	CategoryDiode:     {"diode", "diodes", "rectifier", "rectifiers", "schottky", "diodo"},
	CategoryCapacitor: {"capacitor", "capacitors", "cap", "capacitores"},
	CategoryInductor:  {"inductor", "inductors", "choke", "power inductor", "inductores", "bobina"},
}

var categoryMap map[string]Category

func init() {
	categoryMap = make(map[string]Category)
	for unified, raws := range categoryAliases {
		for _, raw := range raws {
			categoryMap[raw] = unified
		}
	}
}

// ParseCategory maps a raw category string to a Category.
func ParseCategory(s string) (Category, error) {
	if c, ok := categoryMap[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return "", &ConfigurationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", s)}
}

// Component is a catalog part as fetched from a vendor. Identity is
// (Vendor, PartNumber); values are treated as immutable once fetched.
type Component struct {
	Vendor       string
	PartNumber   string
	Manufacturer string
	Description  string
	Category     Category
	UnitPrice    decimal.Decimal
	Stock        int
	DatasheetURL string
	ProductURL   string
	Package      string
	Spec         Spec
}

// Key returns the deduplication identity of the component.
func (c Component) Key() string {
	return c.Vendor + "|" + c.PartNumber
}

// HasPrice reports whether the vendor quoted a price. Adapters leave
// UnitPrice at zero when no price break was published.
func (c Component) HasPrice() bool {
	return c.UnitPrice.IsPositive()
}

// Price returns the unit price as a float for scoring.
func (c Component) Price() float64 {
	f, _ := c.UnitPrice.Float64()
	return f
}

// Spec is the category-specific electrical record of a part.
type Spec interface {
	Category() Category
}

// VoltageRated is implemented by specs with a maximum voltage rating.
type VoltageRated interface {
	VoltageRating() float64
}

// CurrentRated is implemented by specs with a maximum current rating.
type CurrentRated interface {
	CurrentRating() float64
}

// LossModel exposes the two proxies used by efficiency and thermal scoring.
// Both are "lower is better"; ok is false when the vendor did not publish
// the underlying parameter.
type LossModel interface {
	ConductionLoss(current float64) (loss float64, ok bool)
	ThermalProxy() (value float64, ok bool)
}

// SwitchSpec describes a MOSFET or IGBT.
type SwitchSpec struct {
	Technology        string  `json:"technology"` // mosfet | igbt
	Polarity          string  `json:"polarity,omitempty"`
	VoltageMax        float64 `json:"voltage_max"`
	CurrentMax        float64 `json:"current_max"`
	OnResistance      float64 `json:"on_resistance,omitempty"`
	SaturationVoltage float64 `json:"saturation_voltage,omitempty"`
	GateCharge        float64 `json:"gate_charge,omitempty"` // nC
	ThresholdVoltage  float64 `json:"threshold_voltage,omitempty"`
}

func (SwitchSpec) Category() Category       { return CategorySwitch }
func (s SwitchSpec) VoltageRating() float64 { return s.VoltageMax }
func (s SwitchSpec) CurrentRating() float64 { return s.CurrentMax }

func (s SwitchSpec) ConductionLoss(current float64) (float64, bool) {
	if strings.EqualFold(s.Technology, "igbt") || (s.OnResistance <= 0 && s.SaturationVoltage > 0) {
		if s.SaturationVoltage <= 0 {
			return 0, false
		}
		return s.SaturationVoltage * current, true
	}
	if s.OnResistance <= 0 {
		return 0, false
	}
	return current * current * s.OnResistance, true
}

func (s SwitchSpec) ThermalProxy() (float64, bool) {
	return s.GateCharge, s.GateCharge > 0
}

// DiodeSpec describes a rectifying diode.
type DiodeSpec struct {
	Type              string  `json:"type,omitempty"`
	ReverseVoltage    float64 `json:"reverse_voltage"`
	ForwardCurrent    float64 `json:"forward_current"`
	ForwardVoltage    float64 `json:"forward_voltage,omitempty"`
	ReverseRecoveryNs float64 `json:"reverse_recovery_ns,omitempty"`
}

func (DiodeSpec) Category() Category       { return CategoryDiode }
func (d DiodeSpec) VoltageRating() float64 { return d.ReverseVoltage }
func (d DiodeSpec) CurrentRating() float64 { return d.ForwardCurrent }

func (d DiodeSpec) ConductionLoss(current float64) (float64, bool) {
	if d.ForwardVoltage <= 0 {
		return 0, false
	}
	return d.ForwardVoltage * current, true
}

func (d DiodeSpec) ThermalProxy() (float64, bool) {
	return d.ReverseRecoveryNs, d.ReverseRecoveryNs > 0
}

// CapacitorSpec describes a capacitor. Capacitance is in farads.
type CapacitorSpec struct {
	Capacitance   float64 `json:"capacitance"`
	VoltageRated  float64 `json:"voltage_rated"`
	ESR           float64 `json:"esr,omitempty"`
	RippleCurrent float64 `json:"ripple_current,omitempty"`
	Tolerance     float64 `json:"tolerance,omitempty"`
	Dielectric    string  `json:"dielectric,omitempty"`
}

func (CapacitorSpec) Category() Category       { return CategoryCapacitor }
func (c CapacitorSpec) VoltageRating() float64 { return c.VoltageRated }
func (c CapacitorSpec) CurrentRating() float64 { return c.RippleCurrent }

func (c CapacitorSpec) ConductionLoss(current float64) (float64, bool) {
	if c.ESR <= 0 {
		return 0, false
	}
	return current * current * c.ESR, true
}

func (c CapacitorSpec) ThermalProxy() (float64, bool) {
	if c.ESR <= 0 || c.RippleCurrent <= 0 {
		return 0, false
	}
	return c.ESR / c.RippleCurrent, true
}

// InductorSpec describes an inductor. Inductance is in henries.
type InductorSpec struct {
	Inductance        float64 `json:"inductance"`
	DCResistance      float64 `json:"dc_resistance,omitempty"`
	SaturationCurrent float64 `json:"saturation_current"`
	RatedCurrent      float64 `json:"rated_current,omitempty"`
	CoreMaterial      string  `json:"core_material,omitempty"`
}

func (InductorSpec) Category() Category       { return CategoryInductor }
func (i InductorSpec) CurrentRating() float64 { return i.SaturationCurrent }

func (i InductorSpec) ConductionLoss(current float64) (float64, bool) {
	if i.DCResistance <= 0 {
		return 0, false
	}
	return current * current * i.DCResistance, true
}

func (i InductorSpec) ThermalProxy() (float64, bool) {
	if i.DCResistance <= 0 || i.SaturationCurrent <= 0 {
		return 0, false
	}
	return i.DCResistance / i.SaturationCurrent, true
}

// wireComponent is the serialized form; Spec travels as a raw object
// discriminated by Category.
type wireComponent struct {
	Vendor       string          `json:"vendor"`
	PartNumber   string          `json:"part_number"`
	Manufacturer string          `json:"manufacturer,omitempty"`
	Description  string          `json:"description,omitempty"`
	Category     Category        `json:"category"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Stock        int             `json:"stock"`
	DatasheetURL string          `json:"datasheet_url,omitempty"`
	ProductURL   string          `json:"product_url,omitempty"`
	Package      string          `json:"package,omitempty"`
	Spec         json.RawMessage `json:"spec,omitempty"`
}

func (c Component) MarshalJSON() ([]byte, error) {
	w := wireComponent{
		Vendor:       c.Vendor,
		PartNumber:   c.PartNumber,
		Manufacturer: c.Manufacturer,
		Description:  c.Description,
		Category:     c.Category,
		UnitPrice:    c.UnitPrice,
		Stock:        c.Stock,
		DatasheetURL: c.DatasheetURL,
		ProductURL:   c.ProductURL,
		Package:      c.Package,
	}
	if c.Spec != nil {
		raw, err := json.Marshal(c.Spec)
		if err != nil {
			return nil, err
		}
		w.Spec = raw
	}
	return json.Marshal(w)
}

func (c *Component) UnmarshalJSON(data []byte) error {
	var w wireComponent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Component{
		Vendor:       w.Vendor,
		PartNumber:   w.PartNumber,
		Manufacturer: w.Manufacturer,
		Description:  w.Description,
		Category:     w.Category,
		UnitPrice:    w.UnitPrice,
		Stock:        w.Stock,
		DatasheetURL: w.DatasheetURL,
		ProductURL:   w.ProductURL,
		Package:      w.Package,
	}
	if len(w.Spec) == 0 || string(w.Spec) == "null" {
		return nil
	}

	var err error
	switch w.Category {
	case CategorySwitch:
		var s SwitchSpec
		err = json.Unmarshal(w.Spec, &s)
		c.Spec = s
	case CategoryDiode:
		var s DiodeSpec
		err = json.Unmarshal(w.Spec, &s)
		c.Spec = s
	case CategoryCapacitor:
		var s CapacitorSpec
		err = json.Unmarshal(w.Spec, &s)
		c.Spec = s
	case CategoryInductor:
		var s InductorSpec
		err = json.Unmarshal(w.Spec, &s)
		c.Spec = s
	default:
		return fmt.Errorf("unknown component category %q", w.Category)
	}
	return err
}
