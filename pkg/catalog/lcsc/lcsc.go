// Package lcsc scrapes the LCSC search results page. LCSC offers no public
// search API, so this catalog reads the server-rendered product table.
package lcsc

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sw33tLie/partscope/pkg/catalog"
	"github.com/sw33tLie/partscope/pkg/component"
	"github.com/sw33tLie/partscope/pkg/whttp"
)

const LCSC_BASE_URL = "https://www.lcsc.com"

var fieldNames = catalog.FieldNames{
	Voltage:           []string{"Drain Source Voltage (Vdss)", "Collector-Emitter Breakdown Voltage (Vces)", "Reverse Voltage (Vr)", "Voltage Rated"},
	Current:           []string{"Continuous Drain Current (Id)", "Collector Current (Ic)", "Average Rectified Current (Io)"},
	OnResistance:      []string{"Drain Source On Resistance (RDS(on)@Vgs,Id)", "RDS(on)"},
	SaturationVoltage: []string{"Collector-Emitter Saturation Voltage (VCE(sat)@Ic,Vge)"},
	GateCharge:        []string{"Total Gate Charge (Qg@Vgs)", "Gate Charge (Qg)"},
	ThresholdVoltage:  []string{"Gate Threshold Voltage (Vgs(th)@Id)"},
	Polarity:          []string{"Type"},
	ForwardVoltage:    []string{"Forward Voltage (Vf@If)"},
	RecoveryTime:      []string{"Reverse Recovery Time (trr)"},
	DiodeType:         []string{"Diode Configuration"},
	Capacitance:       []string{"Capacitance"},
	ESR:               []string{"Equivalent Series Resistance (ESR)"},
	RippleCurrent:     []string{"Ripple Current"},
	Tolerance:         []string{"Tolerance"},
	Dielectric:        []string{"Temperature Coefficient"},
	Inductance:        []string{"Inductance"},
	DCResistance:      []string{"DC Resistance (DCR)"},
	SaturationCurrent: []string{"Saturation Current (Isat)"},
	RatedCurrent:      []string{"Rated Current"},
	CoreMaterial:      []string{"Shielding"},
}

var typeKeyword = map[component.Category]string{
	component.CategorySwitch:    "MOSFET",
	component.CategoryDiode:     "Schottky Diode",
	component.CategoryCapacitor: "Aluminum Electrolytic Capacitor",
	component.CategoryInductor:  "Power Inductor",
}

type Options struct {
	BaseURL string
}

type Catalog struct {
	opts   Options
	client *catalog.Client
}

func New(opts Options, client *catalog.Client) *Catalog {
	if opts.BaseURL == "" {
		opts.BaseURL = LCSC_BASE_URL
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	return &Catalog{opts: opts, client: client}
}

func (c *Catalog) Name() string { return "lcsc" }

func Keyword(req component.Requirements) string {
	words := []string{typeKeyword[req.Category]}
	if v, _ := req.Derate(); v > 0 && req.Category != component.CategoryInductor {
		if r := catalog.RoundUpVoltage(v); r > 0 {
			words = append(words, fmt.Sprintf("%gV", r))
		}
	}
	return strings.Join(words, " ")
}

func (c *Catalog) fetch(ctx context.Context, query string) ([]component.Component, error) {
	res, err := c.client.Send(ctx, &whttp.WHTTPReq{
		Method: "GET",
		URL:    c.opts.BaseURL + "/search?q=" + url.QueryEscape(query),
		Headers: []whttp.WHTTPHeader{
			{Name: "Accept", Value: "text/html"},
		},
	})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.BodyString))
	if err != nil {
		return nil, catalog.Unavailable(c.Name(), "parsing search page: %v", err)
	}

	table := doc.Find("table.product-table")
	if table.Length() == 0 {
		return nil, catalog.Unavailable(c.Name(), "search page has no product table (title %q)", res.HTTPTitle)
	}

	var out []component.Component
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		if comp, ok := parseRow(c.opts.BaseURL, row); ok {
			out = append(out, comp)
		}
	})
	return out, nil
}

func (c *Catalog) Search(ctx context.Context, req component.Requirements) ([]component.Component, error) {
	return c.fetch(ctx, Keyword(req))
}

// Lookup searches by part number and returns the exact match.
func (c *Catalog) Lookup(ctx context.Context, partNumber string) (component.Component, error) {
	parts, err := c.fetch(ctx, partNumber)
	if err != nil {
		return component.Component{}, err
	}
	for _, p := range parts {
		if strings.EqualFold(p.PartNumber, partNumber) {
			return p, nil
		}
	}
	return component.Component{}, fmt.Errorf("%w: lcsc: %s", catalog.ErrPartNotFound, partNumber)
}

func cellText(row *goquery.Selection, selector string) string {
	return strings.TrimSpace(row.Find(selector).First().Text())
}

func parseRow(base string, row *goquery.Selection) (component.Component, bool) {
	pn := cellText(row, "td.mpn")
	if pn == "" {
		return component.Component{}, false
	}
	description := cellText(row, "td.description")
	categoryText := cellText(row, "td.category")

	cat, ok := catalog.Classify(categoryText)
	if !ok {
		if cat, ok = catalog.Classify(description); !ok {
			return component.Component{}, false
		}
	}

	attrs := catalog.Attributes{}
	row.Find("td.param").Each(func(_ int, s *goquery.Selection) {
		if name, ok := s.Attr("data-name"); ok {
			attrs[name] = strings.TrimSpace(s.Text())
		}
	})

	// The first price tier is the single-unit price.
	price, _ := catalog.ParsePrice(cellText(row, "td.price li"))
	if price.IsZero() {
		price, _ = catalog.ParsePrice(cellText(row, "td.price"))
	}

	comp := component.Component{
		Vendor:       "lcsc",
		PartNumber:   pn,
		Manufacturer: cellText(row, "td.manufacturer"),
		Description:  description,
		Category:     cat,
		UnitPrice:    price,
		Stock:        catalog.ParseStock(cellText(row, "td.stock")),
		Package:      cellText(row, "td.package"),
		Spec:         catalog.BuildSpec(cat, catalog.IsIGBT(categoryText, description), attrs, fieldNames, description),
	}
	if href, ok := row.Find("a.datasheet").Attr("href"); ok {
		comp.DatasheetURL = href
	}
	if href, ok := row.Find("td.mpn a").Attr("href"); ok {
		if strings.HasPrefix(href, "/") {
			href = base + href
		}
		comp.ProductURL = href
	}
	return comp, true
}
