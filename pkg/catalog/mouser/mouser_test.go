package mouser

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sw33tLie/partscope/pkg/catalog"
	"github.com/sw33tLie/partscope/pkg/component"
)

const keywordResponse = `{
  "Errors": [],
  "SearchResults": {
    "NumberOfResult": 2,
    "Parts": [
      {
        "Availability": "2315 In Stock",
        "AvailabilityInStock": "2315",
        "Category": "Schottky Diodes & Rectifiers",
        "DataSheetUrl": "https://www.mouser.com/datasheet/2/308/STPS20H100C.pdf",
        "Description": "Schottky Diodes & Rectifiers 100V 20A Dual",
        "Manufacturer": "STMicroelectronics",
        "ManufacturerPartNumber": "STPS20H100CT",
        "MouserPartNumber": "511-STPS20H100CT",
        "PriceBreaks": [{"Quantity": 1, "Price": "$1.52", "Currency": "USD"}, {"Quantity": 10, "Price": "$1.21", "Currency": "USD"}],
        "ProductAttributes": [
          {"AttributeName": "Packaging", "AttributeValue": "Tube"},
          {"AttributeName": "Vf - Forward Voltage", "AttributeValue": "640 mV"},
          {"AttributeName": "Packaging", "AttributeValue": "Reel"}
        ],
        "ProductDetailUrl": "https://www.mouser.com/ProductDetail/511-STPS20H100CT"
      },
      {
        "Category": "Resistors",
        "Description": "Thick Film Resistors 10K",
        "ManufacturerPartNumber": "RC0603"
      }
    ]
  }
}`

func TestSearchParsesParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/keyword" || r.URL.Query().Get("apiKey") != "key" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"keyword":"Rectifier Diode 100V"`) {
			t.Errorf("unexpected payload: %s", body)
		}
		io.WriteString(w, keywordResponse)
	}))
	defer srv.Close()

	cat, err := New(Options{APIKey: "key", BaseURL: srv.URL}, &catalog.Client{Vendor: "mouser"})
	if err != nil {
		t.Fatal(err)
	}

	parts, err := cat.Search(context.Background(), component.NewRequirements(component.CategoryDiode, 60, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}

	p := parts[0]
	if p.PartNumber != "STPS20H100CT" || p.Stock != 2315 || p.UnitPrice.String() != "1.52" || p.Package != "Tube" {
		t.Fatalf("unexpected part: %+v", p)
	}
	spec, ok := p.Spec.(component.DiodeSpec)
	if !ok {
		t.Fatalf("expected DiodeSpec, got %T", p.Spec)
	}
	if spec.ReverseVoltage != 100 || spec.ForwardCurrent != 20 {
		t.Fatalf("ratings should come from the description, got %+v", spec)
	}
	if spec.ForwardVoltage < 0.6399 || spec.ForwardVoltage > 0.6401 {
		t.Fatalf("unexpected Vf %g", spec.ForwardVoltage)
	}
}

func TestErrorsArrayIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"Errors":[{"Code":"Invalid","Message":"Invalid unique identifier."}],"SearchResults":null}`)
	}))
	defer srv.Close()

	cat, _ := New(Options{APIKey: "key", BaseURL: srv.URL}, &catalog.Client{Vendor: "mouser"})
	_, err := cat.Search(context.Background(), component.NewRequirements(component.CategorySwitch, 400, 10))
	if !errors.Is(err, catalog.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid unique identifier") {
		t.Fatalf("expected vendor message in error, got %v", err)
	}
}

func TestLookupNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"Errors":[],"SearchResults":{"NumberOfResult":0,"Parts":[]}}`)
	}))
	defer srv.Close()

	cat, _ := New(Options{APIKey: "key", BaseURL: srv.URL}, &catalog.Client{Vendor: "mouser"})
	_, err := cat.Lookup(context.Background(), "NOPE-123")
	if !errors.Is(err, catalog.ErrPartNotFound) {
		t.Fatalf("expected ErrPartNotFound, got %v", err)
	}
}

func TestKeyword(t *testing.T) {
	capReq := component.NewRequirements(component.CategoryCapacitor, 48, 2)
	capReq.Constraints.MinCapacitance = 470e-6
	ind := component.NewRequirements(component.CategoryInductor, 48, 2)
	ind.Constraints.MinInductance = 40e-6

	tests := []struct {
		req  component.Requirements
		want string
	}{
		{component.NewRequirements(component.CategorySwitch, 400, 10), "MOSFET 600V"},
		{component.NewRequirements(component.CategorySwitch, 5, 10), "MOSFET"},
		{capReq, "Electrolytic Capacitor 470uF"},
		{ind, "Power Inductor 47uH"},
	}
	for _, tc := range tests {
		if got := Keyword(tc.req); got != tc.want {
			t.Errorf("Keyword(%+v) = %q, want %q", tc.req, got, tc.want)
		}
	}
}
