// Package digikey implements the DigiKey Product Information v4 catalog.
package digikey

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/sw33tLie/partscope/pkg/catalog"
	"github.com/sw33tLie/partscope/pkg/component"
	"github.com/sw33tLie/partscope/pkg/whttp"
)

const (
	PRODUCTION_BASE_URL = "https://api.digikey.com"
	SANDBOX_BASE_URL    = "https://sandbox-api.digikey.com"

	tokenPath   = "/v1/oauth2/token"
	searchPath  = "/products/v4/search/keyword"
	detailsPath = "/products/v4/search/%s/productdetails"

	// Tokens are refreshed this long before DigiKey expires them.
	tokenSafetyMargin = 60 * time.Second
	defaultTokenTTL   = 600 * time.Second
)

var fieldNames = catalog.FieldNames{
	Voltage: []string{
		"Drain to Source Voltage (Vdss)", "Voltage - Collector Emitter Breakdown (Max)",
		"Voltage - DC Reverse (Vr) (Max)", "Voltage - Rated",
	},
	Current: []string{
		"Current - Continuous Drain (Id) @ 25°C", "Current - Collector (Ic) (Max)",
		"Current - Average Rectified (Io)",
	},
	OnResistance:      []string{"Rds On (Max) @ Id, Vgs"},
	SaturationVoltage: []string{"Vce(on) (Max) @ Vge, Ic"},
	GateCharge:        []string{"Gate Charge (Qg) (Max) @ Vgs", "Gate Charge"},
	ThresholdVoltage:  []string{"Vgs(th) (Max) @ Id"},
	Polarity:          []string{"FET Type", "IGBT Type"},
	ForwardVoltage:    []string{"Voltage - Forward (Vf) (Max) @ If"},
	RecoveryTime:      []string{"Reverse Recovery Time (trr)"},
	DiodeType:         []string{"Diode Type", "Technology"},
	Capacitance:       []string{"Capacitance"},
	ESR:               []string{"ESR (Equivalent Series Resistance)"},
	RippleCurrent:     []string{"Ripple Current @ Low Frequency", "Current - Ripple @ Low Frequency", "Ripple Current @ High Frequency"},
	Tolerance:         []string{"Tolerance"},
	Dielectric:        []string{"Dielectric Material", "Temperature Coefficient"},
	Inductance:        []string{"Inductance"},
	DCResistance:      []string{"DC Resistance (DCR)", "DC Resistance (DCR) (Max)"},
	SaturationCurrent: []string{"Current - Saturation (Isat)", "Current - Saturation"},
	RatedCurrent:      []string{"Current Rating (Amps)"},
	CoreMaterial:      []string{"Material - Core"},
	Package:           []string{"Package / Case", "Supplier Device Package"},
}

var typeKeyword = map[component.Category]string{
	component.CategorySwitch:    "MOSFET",
	component.CategoryDiode:     "Diode",
	component.CategoryCapacitor: "Capacitor",
	component.CategoryInductor:  "Inductor",
}

// Options configures the DigiKey catalog.
type Options struct {
	ClientID     string
	ClientSecret string
	// RefreshToken switches the token grant to refresh_token, which the
	// sandbox requires.
	RefreshToken string
	Sandbox      bool
	// BaseURL overrides the production or sandbox host.
	BaseURL string
}

type Catalog struct {
	opts   Options
	client *catalog.Client
	now    func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New returns a DigiKey catalog that sends every request through client.
func New(opts Options, client *catalog.Client) (*Catalog, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, &component.ConfigurationError{Field: "digikey", Reason: "client_id and client_secret are required"}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = PRODUCTION_BASE_URL
		if opts.Sandbox {
			opts.BaseURL = SANDBOX_BASE_URL
		}
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	return &Catalog{opts: opts, client: client, now: time.Now}, nil
}

func (c *Catalog) Name() string { return "digikey" }

// accessToken returns the cached OAuth2 token or fetches a new one with the
// client-credentials grant.
func (c *Catalog) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("client_id", c.opts.ClientID)
	form.Set("client_secret", c.opts.ClientSecret)
	if c.opts.RefreshToken != "" {
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", c.opts.RefreshToken)
	} else {
		form.Set("grant_type", "client_credentials")
	}

	// The token endpoint counts against the same quota as searches.
	res, err := c.client.Send(ctx, &whttp.WHTTPReq{
		Method: "POST",
		URL:    c.opts.BaseURL + tokenPath,
		Headers: []whttp.WHTTPHeader{
			{Name: "Content-Type", Value: "application/x-www-form-urlencoded"},
		},
		Body: form.Encode(),
	})
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}

	tok := gjson.Get(res.BodyString, "access_token").String()
	if tok == "" {
		return "", catalog.Unavailable(c.Name(), "token response has no access_token")
	}
	ttl := defaultTokenTTL
	if secs := gjson.Get(res.BodyString, "expires_in").Int(); secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}

	c.token = tok
	c.tokenExpiry = c.now().Add(ttl - tokenSafetyMargin)
	return c.token, nil
}

func (c *Catalog) headers(token string) []whttp.WHTTPHeader {
	return []whttp.WHTTPHeader{
		{Name: "X-DIGIKEY-Client-Id", Value: c.opts.ClientID},
		{Name: "Authorization", Value: "Bearer " + token},
		{Name: "Content-Type", Value: "application/json"},
		{Name: "Accept", Value: "application/json"},
		{Name: "X-DIGIKEY-Locale-Site", Value: "US"},
		{Name: "X-DIGIKEY-Locale-Language", Value: "en"},
		{Name: "X-DIGIKEY-Locale-Currency", Value: "USD"},
	}
}

// Keyword builds the free-text query: category word plus derated ratings.
func Keyword(req component.Requirements) string {
	words := []string{typeKeyword[req.Category]}
	v, i := req.Derate()
	if v > 0 && req.Category != component.CategoryInductor {
		words = append(words, fmt.Sprintf("%dV", int(v)))
	}
	if i > 0 {
		words = append(words, fmt.Sprintf("%dA", int(i)))
	}
	return strings.Join(words, " ")
}

func (c *Catalog) Search(ctx context.Context, req component.Requirements) ([]component.Component, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"Keywords":                   Keyword(req),
		"Limit":                      catalog.MaxResults,
		"Offset":                     0,
		"ExcludeMarketPlaceProducts": true,
	})
	if err != nil {
		return nil, err
	}

	res, err := c.client.Send(ctx, &whttp.WHTTPReq{
		Method:  "POST",
		URL:     c.opts.BaseURL + searchPath,
		Headers: c.headers(token),
		Body:    string(payload),
	})
	if err != nil {
		return nil, err
	}

	if !gjson.Valid(res.BodyString) {
		return nil, catalog.Unavailable(c.Name(), "malformed search response")
	}
	products := gjson.Get(res.BodyString, "Products")
	if !products.IsArray() {
		return nil, catalog.Unavailable(c.Name(), "search response has no Products array")
	}

	var out []component.Component
	for _, p := range products.Array() {
		if comp, ok := parseProduct(p); ok {
			out = append(out, comp)
		}
	}
	return out, nil
}

// Lookup fetches one product by manufacturer part number.
func (c *Catalog) Lookup(ctx context.Context, partNumber string) (component.Component, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return component.Component{}, err
	}

	res, err := c.client.Send(ctx, &whttp.WHTTPReq{
		Method:  "GET",
		URL:     c.opts.BaseURL + fmt.Sprintf(detailsPath, url.PathEscape(partNumber)),
		Headers: c.headers(token),
	})
	if err != nil {
		return component.Component{}, err
	}
	if !gjson.Valid(res.BodyString) {
		return component.Component{}, catalog.Unavailable(c.Name(), "malformed product details response")
	}

	product := gjson.Get(res.BodyString, "Product")
	if !product.Exists() {
		product = gjson.Parse(res.BodyString)
	}
	comp, ok := parseProduct(product)
	if !ok {
		return component.Component{}, fmt.Errorf("%w: digikey: %s", catalog.ErrPartNotFound, partNumber)
	}
	return comp, nil
}

func parseProduct(p gjson.Result) (component.Component, bool) {
	pn := p.Get("ManufacturerProductNumber").String()
	if pn == "" {
		return component.Component{}, false
	}

	categoryText := strings.Join([]string{
		p.Get("Category.Name").String(),
		p.Get("Category.ChildCategories.#.Name").String(),
		p.Get("Category.ChildCategories.#.ChildCategories.#.Name").String(),
	}, " ")
	description := p.Get("Description.ProductDescription").String()
	if description == "" {
		description = p.Get("Description.DetailedDescription").String()
	}

	cat, ok := catalog.Classify(categoryText)
	if !ok {
		if cat, ok = catalog.Classify(description); !ok {
			return component.Component{}, false
		}
	}

	attrs := catalog.Attributes{}
	for _, param := range p.Get("Parameters").Array() {
		attrs[param.Get("ParameterText").String()] = param.Get("ValueText").String()
	}

	variation := p.Get("ProductVariations.0")

	price := decimal.Zero
	if raw := variation.Get("StandardPricing.0.UnitPrice"); raw.Exists() {
		price, _ = decimal.NewFromString(raw.Raw)
	} else if raw := p.Get("UnitPrice"); raw.Exists() {
		price, _ = decimal.NewFromString(raw.Raw)
	}

	stock := variation.Get("QuantityAvailableforPackageType")
	if !stock.Exists() {
		stock = p.Get("QuantityAvailable")
	}

	pkg := attrs.Text(fieldNames.Package...)
	if pkg == "" {
		pkg = variation.Get("PackageType.Name").String()
	}

	return component.Component{
		Vendor:       "digikey",
		PartNumber:   pn,
		Manufacturer: p.Get("Manufacturer.Name").String(),
		Description:  description,
		Category:     cat,
		UnitPrice:    price,
		Stock:        int(stock.Int()),
		DatasheetURL: p.Get("DatasheetUrl").String(),
		ProductURL:   p.Get("ProductUrl").String(),
		Package:      pkg,
		Spec:         catalog.BuildSpec(cat, catalog.IsIGBT(categoryText), attrs, fieldNames, description),
	}, true
}
