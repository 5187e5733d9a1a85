// Package mouser implements the Mouser Search API v1 catalog.
package mouser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/sw33tLie/partscope/pkg/catalog"
	"github.com/sw33tLie/partscope/pkg/component"
	"github.com/sw33tLie/partscope/pkg/whttp"
)

const (
	MOUSER_BASE_URL = "https://api.mouser.com/api/v1"

	keywordPath    = "/search/keyword"
	partNumberPath = "/search/partnumber"
)

var fieldNames = catalog.FieldNames{
	Voltage: []string{
		"Vds - Drain-Source Breakdown Voltage", "Drain to Source Voltage (Vdss)",
		"Collector- Emitter Voltage VCEO Max", "Vr - Reverse Voltage", "Vrrm - Repetitive Reverse Voltage",
		"Peak Reverse Voltage (Max)", "Voltage Rating DC", "Voltage Rating",
	},
	Current: []string{
		"Id - Continuous Drain Current", "Continuous Drain Current (Id)",
		"Continuous Collector Current at 25 C", "If - Forward Current", "Average Forward Current (If)",
	},
	OnResistance:      []string{"Rds On - Drain-Source Resistance", "On State Resistance (Rds(on))"},
	SaturationVoltage: []string{"Collector-Emitter Saturation Voltage"},
	GateCharge:        []string{"Qg - Gate Charge", "Gate Charge (Qg)"},
	ThresholdVoltage:  []string{"Vgs th - Gate-Source Threshold Voltage", "Gate Threshold Voltage (Vgs(th))"},
	Polarity:          []string{"Transistor Polarity"},
	ForwardVoltage:    []string{"Vf - Forward Voltage", "Forward Voltage (Vf)"},
	RecoveryTime:      []string{"trr - Reverse Recovery Time", "Reverse Recovery Time (trr)"},
	DiodeType:         []string{"Product Type", "Diode Type"},
	Capacitance:       []string{"Capacitance"},
	ESR:               []string{"ESR"},
	RippleCurrent:     []string{"Ripple Current"},
	Tolerance:         []string{"Tolerance"},
	Dielectric:        []string{"Dielectric", "Dielectric Characteristic"},
	Inductance:        []string{"Inductance"},
	DCResistance:      []string{"Maximum DC Resistance", "DC Resistance (DCR)"},
	SaturationCurrent: []string{"Saturation Current"},
	RatedCurrent:      []string{"Maximum DC Current", "Current Rating"},
	CoreMaterial:      []string{"Core Material", "Shielding"},
	Package:           []string{"Package / Case", "Packaging"},
}

var typeKeyword = map[component.Category]string{
	component.CategorySwitch:    "MOSFET",
	component.CategoryDiode:     "Rectifier Diode",
	component.CategoryCapacitor: "Electrolytic Capacitor",
	component.CategoryInductor:  "Power Inductor",
}

var commonInductancesUH = []float64{1, 2.2, 3.3, 4.7, 10, 22, 33, 47, 100, 150, 220, 330, 470, 1000}

type keywordRequest struct {
	Keyword        string `json:"keyword"`
	Records        int    `json:"records"`
	StartingRecord int    `json:"startingRecord"`
	SearchOptions  string `json:"searchOptions"`
	Language       string `json:"searchWithYourSignUpLanguage"`
}

type partRequest struct {
	PartNumber string `json:"mouserPartNumber"`
	Options    string `json:"partSearchOptions"`
}

type Options struct {
	APIKey string
	// InStockOnly restricts results to parts with stock on hand.
	InStockOnly bool
	BaseURL     string
}

type Catalog struct {
	opts   Options
	client *catalog.Client
}

func New(opts Options, client *catalog.Client) (*Catalog, error) {
	if opts.APIKey == "" {
		return nil, &component.ConfigurationError{Field: "mouser.api_key", Reason: "required"}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = MOUSER_BASE_URL
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	return &Catalog{opts: opts, client: client}, nil
}

func (c *Catalog) Name() string { return "mouser" }

// Keyword builds a Mouser query. Mouser matches loosely, so the query
// favours the one value that narrows results most for each category.
func Keyword(req component.Requirements) string {
	words := []string{typeKeyword[req.Category]}

	switch req.Category {
	case component.CategoryCapacitor:
		if c := req.Constraints.MinCapacitance; c > 0 {
			uf := c * 1e6
			switch {
			case uf >= 1000:
				words = append(words, fmt.Sprintf("%.0fmF", uf/1000))
			case uf >= 1:
				words = append(words, fmt.Sprintf("%.0fuF", uf))
			default:
				words = append(words, fmt.Sprintf("%.0fnF", c*1e9))
			}
		}
	case component.CategoryInductor:
		if l := req.Constraints.MinInductance; l > 0 {
			uh := l * 1e6
			if uh >= 1000 {
				words = append(words, fmt.Sprintf("%.1fmH", l*1e3))
				break
			}
			rounded := 0.0
			for _, v := range commonInductancesUH {
				if uh <= v*(1+1e-9) {
					rounded = v
					break
				}
			}
			if rounded == 0 {
				rounded = float64(int(uh))
			}
			words = append(words, fmt.Sprintf("%guH", rounded))
		}
	default:
		if req.Voltage > 10 {
			v, _ := req.Derate()
			if r := catalog.RoundUpVoltage(v); r > 0 {
				words = append(words, fmt.Sprintf("%gV", r))
			}
		}
	}
	return strings.Join(words, " ")
}

func (c *Catalog) endpoint(path string) string {
	return c.opts.BaseURL + path + "?apiKey=" + url.QueryEscape(c.opts.APIKey)
}

func (c *Catalog) post(ctx context.Context, path string, payload interface{}) (gjson.Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, err
	}

	res, err := c.client.Send(ctx, &whttp.WHTTPReq{
		Method: "POST",
		URL:    c.endpoint(path),
		Headers: []whttp.WHTTPHeader{
			{Name: "Content-Type", Value: "application/json"},
			{Name: "Accept", Value: "application/json"},
		},
		Body: string(body),
	})
	if err != nil {
		return gjson.Result{}, err
	}

	if !gjson.Valid(res.BodyString) {
		return gjson.Result{}, catalog.Unavailable(c.Name(), "malformed response")
	}
	data := gjson.Parse(res.BodyString)

	// Mouser reports API errors with HTTP 200 and a non-empty Errors array.
	if errs := data.Get("Errors").Array(); len(errs) > 0 {
		msg := errs[0].Get("Message").String()
		if msg == "" {
			msg = errs[0].Raw
		}
		return gjson.Result{}, catalog.Unavailable(c.Name(), "API error: %s", msg)
	}
	if !data.Get("SearchResults").Exists() {
		return gjson.Result{}, catalog.Unavailable(c.Name(), "response has no SearchResults")
	}
	return data, nil
}

func (c *Catalog) Search(ctx context.Context, req component.Requirements) ([]component.Component, error) {
	options := "None"
	if c.opts.InStockOnly {
		options = "InStock"
	}
	data, err := c.post(ctx, keywordPath, map[string]keywordRequest{
		"SearchByKeywordRequest": {
			Keyword:        Keyword(req),
			Records:        catalog.MaxResults,
			StartingRecord: 0,
			SearchOptions:  options,
			Language:       "en",
		},
	})
	if err != nil {
		return nil, err
	}

	var out []component.Component
	for _, p := range data.Get("SearchResults.Parts").Array() {
		if comp, ok := parsePart(p); ok {
			out = append(out, comp)
		}
	}
	return out, nil
}

// Lookup fetches a part by Mouser or manufacturer part number.
func (c *Catalog) Lookup(ctx context.Context, partNumber string) (component.Component, error) {
	data, err := c.post(ctx, partNumberPath, map[string]partRequest{
		"SearchByPartRequest": {PartNumber: partNumber, Options: "Exact"},
	})
	if err != nil {
		return component.Component{}, err
	}

	for _, p := range data.Get("SearchResults.Parts").Array() {
		if comp, ok := parsePart(p); ok {
			return comp, nil
		}
	}
	return component.Component{}, fmt.Errorf("%w: mouser: %s", catalog.ErrPartNotFound, partNumber)
}

func parsePart(p gjson.Result) (component.Component, bool) {
	pn := p.Get("ManufacturerPartNumber").String()
	if pn == "" {
		return component.Component{}, false
	}
	description := p.Get("Description").String()
	categoryText := p.Get("Category").String()

	cat, ok := catalog.Classify(categoryText)
	if !ok {
		if cat, ok = catalog.Classify(description); !ok {
			return component.Component{}, false
		}
	}

	attrs := catalog.Attributes{}
	for _, a := range p.Get("ProductAttributes").Array() {
		name := a.Get("AttributeName").String()
		// Mouser repeats some attributes (e.g. Packaging); keep the first.
		if _, seen := attrs[name]; !seen {
			attrs[name] = a.Get("AttributeValue").String()
		}
	}

	price, _ := catalog.ParsePrice(p.Get("PriceBreaks.0.Price").String())

	stock := catalog.ParseStock(p.Get("AvailabilityInStock").String())
	if stock == 0 {
		stock = catalog.ParseStock(p.Get("Availability").String())
	}

	return component.Component{
		Vendor:       "mouser",
		PartNumber:   pn,
		Manufacturer: p.Get("Manufacturer").String(),
		Description:  description,
		Category:     cat,
		UnitPrice:    price,
		Stock:        stock,
		DatasheetURL: p.Get("DataSheetUrl").String(),
		ProductURL:   p.Get("ProductDetailUrl").String(),
		Package:      attrs.Text(fieldNames.Package...),
		Spec:         catalog.BuildSpec(cat, catalog.IsIGBT(categoryText, description), attrs, fieldNames, description),
	}, true
}
