package component

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultWeightsSumToOne(t *testing.T) {
	w := DefaultWeights()
	if math.Abs(w.Sum()-1.0) > weightTolerance {
		t.Fatalf("default weights sum to %g", w.Sum())
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("default weights invalid: %v", err)
	}
}

func TestNewWeights(t *testing.T) {
	tests := []struct {
		name  string
		w     [4]float64
		field string
	}{
		{name: "cost only", w: [4]float64{1, 0, 0, 0}},
		{name: "even split", w: [4]float64{0.25, 0.25, 0.25, 0.25}},
		{name: "sum too high", w: [4]float64{0.5, 0.5, 0.5, 0}, field: "weights"},
		{name: "sum too low", w: [4]float64{0.1, 0.1, 0.1, 0.1}, field: "weights"},
		{name: "negative cost", w: [4]float64{-0.2, 0.6, 0.3, 0.3}, field: "weights.cost"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewWeights(tc.w[0], tc.w[1], tc.w[2], tc.w[3])
			if tc.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, cfgErr.Field)
			}
		})
	}
}

func TestParseWeights(t *testing.T) {
	w, err := ParseWeights("")
	if err != nil || w != DefaultWeights() {
		t.Fatalf("empty string should give defaults, got %+v, %v", w, err)
	}

	w, err = ParseWeights("cost=0.4, stock=0.3, efficiency=0.2, thermal=0.1")
	if err != nil {
		t.Fatal(err)
	}
	if w.Cost != 0.4 || w.Availability != 0.3 || w.Efficiency != 0.2 || w.Thermal != 0.1 {
		t.Fatalf("unexpected weights %+v", w)
	}

	// Unspecified criteria keep their defaults: 0.35 + 0.2 + 0.25 + 0.2 = 1.0.
	w, err = ParseWeights("cost=0.35,availability=0.2")
	if err != nil {
		t.Fatal(err)
	}
	if w.Efficiency != 0.25 || w.Thermal != 0.20 {
		t.Fatalf("defaults not kept: %+v", w)
	}

	for _, bad := range []string{"cost", "cost=abc", "price=0.3", "cost=0.9"} {
		if _, err := ParseWeights(bad); err == nil {
			t.Errorf("ParseWeights(%q) should fail", bad)
		}
	}
}
