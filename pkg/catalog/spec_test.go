package catalog

import (
	"testing"

	"github.com/sw33tLie/partscope/pkg/component"
)

var testNames = FieldNames{
	Voltage:           []string{"Vds"},
	Current:           []string{"Id"},
	OnResistance:      []string{"Rds"},
	GateCharge:        []string{"Qg"},
	SaturationVoltage: []string{"Vce(sat)"},
	Inductance:        []string{"L"},
	SaturationCurrent: []string{"Isat"},
	RatedCurrent:      []string{"Irms"},
}

func TestBuildSpecSwitch(t *testing.T) {
	attrs := Attributes{"Vds": "650 V", "Id": "31A (Tc)", "Rds": "70mOhm @ 15A, 10V", "Qg": "68 nC @ 10 V"}
	spec, ok := BuildSpec(component.CategorySwitch, false, attrs, testNames, "").(component.SwitchSpec)
	if !ok {
		t.Fatalf("expected SwitchSpec")
	}
	if spec.VoltageMax != 650 || spec.CurrentMax != 31 || spec.Technology != "mosfet" {
		t.Fatalf("unexpected ratings: %+v", spec)
	}
	if spec.GateCharge < 67.999 || spec.GateCharge > 68.001 {
		t.Fatalf("gate charge should be in nC, got %g", spec.GateCharge)
	}
}

func TestBuildSpecFallsBackToDescription(t *testing.T) {
	spec := BuildSpec(component.CategorySwitch, true, Attributes{"Vce(sat)": "1.8V"}, testNames, "IGBT 1200V 40A TO-247").(component.SwitchSpec)
	if spec.VoltageMax != 1200 || spec.CurrentMax != 40 || spec.Technology != "igbt" {
		t.Fatalf("unexpected spec: %+v", spec)
	}
}

func TestBuildSpecInductorUsesRatedWhenNoIsat(t *testing.T) {
	spec := BuildSpec(component.CategoryInductor, false, Attributes{"L": "47 µH", "Irms": "3.2 A"}, testNames, "").(component.InductorSpec)
	if spec.SaturationCurrent != 3.2 || spec.RatedCurrent != 3.2 {
		t.Fatalf("unexpected currents: %+v", spec)
	}
}

func TestIsIGBT(t *testing.T) {
	if !IsIGBT("Transistors - IGBTs - Single") || IsIGBT("MOSFET") {
		t.Fatalf("IsIGBT misclassified")
	}
}
