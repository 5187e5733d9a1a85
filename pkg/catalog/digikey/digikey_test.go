package digikey

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/partscope/pkg/catalog"
	"github.com/sw33tLie/partscope/pkg/component"
	"github.com/sw33tLie/partscope/pkg/ratelimit"
)

const searchResponse = `{
  "Products": [
    {
      "ManufacturerProductNumber": "IPW60R070CFD7",
      "Manufacturer": {"Id": 448, "Name": "Infineon Technologies"},
      "Description": {"ProductDescription": "MOSFET N-CH 600V 31A TO247-3"},
      "DatasheetUrl": "https://www.infineon.com/dgdl/IPW60R070CFD7.pdf",
      "ProductUrl": "https://www.digikey.com/en/products/detail/IPW60R070CFD7",
      "QuantityAvailable": 900,
      "Category": {"Name": "Discrete Semiconductor Products", "ChildCategories": [{"Name": "Transistors - FETs, MOSFETs - Single"}]},
      "ProductVariations": [
        {"PackageType": {"Name": "Tube"}, "QuantityAvailableforPackageType": 412,
         "StandardPricing": [{"BreakQuantity": 1, "UnitPrice": 6.42}]}
      ],
      "Parameters": [
        {"ParameterText": "Drain to Source Voltage (Vdss)", "ValueText": "600 V"},
        {"ParameterText": "Current - Continuous Drain (Id) @ 25°C", "ValueText": "31A (Tc)"},
        {"ParameterText": "Rds On (Max) @ Id, Vgs", "ValueText": "70mOhm @ 15.9A, 10V"},
        {"ParameterText": "Gate Charge (Qg) (Max) @ Vgs", "ValueText": "67 nC @ 10 V"},
        {"ParameterText": "Package / Case", "ValueText": "TO-247-3"}
      ]
    },
    {
      "ManufacturerProductNumber": "RC0603FR-0710KL",
      "Category": {"Name": "Resistors"},
      "Description": {"ProductDescription": "RES 10K OHM 1% 1/10W 0603"}
    }
  ]
}`

func newTestServer(t *testing.T, tokenHits, searchHits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case tokenPath:
			atomic.AddInt32(tokenHits, 1)
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), "grant_type=client_credentials") {
				t.Errorf("unexpected token form: %s", body)
			}
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"access_token":"tok-1","expires_in":599,"token_type":"Bearer"}`)
		case searchPath:
			atomic.AddInt32(searchHits, 1)
			if r.Header.Get("Authorization") != "Bearer tok-1" || r.Header.Get("X-DIGIKEY-Client-Id") != "id" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), `"Keywords":"MOSFET 600V 12A"`) {
				t.Errorf("unexpected search payload: %s", body)
			}
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, searchResponse)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestSearchParsesProductsAndCachesToken(t *testing.T) {
	var tokenHits, searchHits int32
	srv := newTestServer(t, &tokenHits, &searchHits)
	defer srv.Close()

	cat, err := New(Options{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL}, &catalog.Client{Vendor: "digikey"})
	require.NoError(t, err)

	req := component.NewRequirements(component.CategorySwitch, 400, 10)
	parts, err := cat.Search(context.Background(), req)
	require.NoError(t, err)
	_, err = cat.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenHits))
	assert.Equal(t, int32(2), atomic.LoadInt32(&searchHits))

	require.Len(t, parts, 1, "the resistor must be skipped")
	p := parts[0]
	assert.Equal(t, "digikey", p.Vendor)
	assert.Equal(t, "IPW60R070CFD7", p.PartNumber)
	assert.Equal(t, "Infineon Technologies", p.Manufacturer)
	assert.Equal(t, "6.42", p.UnitPrice.String())
	assert.Equal(t, 412, p.Stock)
	assert.Equal(t, "TO-247-3", p.Package)

	spec, ok := p.Spec.(component.SwitchSpec)
	require.True(t, ok)
	assert.Equal(t, 600.0, spec.VoltageMax)
	assert.Equal(t, 31.0, spec.CurrentMax)
	assert.InDelta(t, 0.070, spec.OnResistance, 1e-9)
	assert.InDelta(t, 67, spec.GateCharge, 1e-6)
}

func TestTokenRefreshedAfterExpiry(t *testing.T) {
	var tokenHits, searchHits int32
	srv := newTestServer(t, &tokenHits, &searchHits)
	defer srv.Close()

	cat, err := New(Options{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL}, &catalog.Client{Vendor: "digikey"})
	require.NoError(t, err)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cat.now = func() time.Time { return now }

	_, err = cat.accessToken(context.Background())
	require.NoError(t, err)

	// 599s lifetime minus the 60s margin.
	now = now.Add(538 * time.Second)
	_, err = cat.accessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenHits))

	now = now.Add(2 * time.Second)
	_, err = cat.accessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&tokenHits))
}

func TestMalformedResponseIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == tokenPath {
			io.WriteString(w, `{"access_token":"tok","expires_in":600}`)
			return
		}
		io.WriteString(w, `<html>maintenance</html>`)
	}))
	defer srv.Close()

	cat, err := New(Options{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL}, &catalog.Client{Vendor: "digikey"})
	require.NoError(t, err)

	_, err = cat.Search(context.Background(), component.NewRequirements(component.CategoryDiode, 100, 2))
	assert.True(t, errors.Is(err, catalog.ErrUnavailable), "got %v", err)
}

func TestRateLimiterDenialSurfaces(t *testing.T) {
	var tokenHits, searchHits int32
	srv := newTestServer(t, &tokenHits, &searchHits)
	defer srv.Close()

	bucket, err := ratelimit.NewBucket("digikey", ratelimit.Config{Capacity: 1, Period: time.Hour})
	require.NoError(t, err)
	require.True(t, bucket.TryAcquire())

	cat, err := New(Options{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL},
		&catalog.Client{Vendor: "digikey", Limiter: bucket, AcquireTimeout: 10 * time.Millisecond})
	require.NoError(t, err)

	_, err = cat.Search(context.Background(), component.NewRequirements(component.CategorySwitch, 400, 10))
	assert.ErrorIs(t, err, ratelimit.ErrRateLimitExceeded)
	assert.Equal(t, int32(0), atomic.LoadInt32(&tokenHits))
	assert.Equal(t, int32(0), atomic.LoadInt32(&searchHits))
}

func TestTokenRequestTakesALimiterToken(t *testing.T) {
	var tokenHits, searchHits int32
	srv := newTestServer(t, &tokenHits, &searchHits)
	defer srv.Close()

	bucket, err := ratelimit.NewBucket("digikey", ratelimit.Config{Capacity: 2, Period: time.Hour})
	require.NoError(t, err)

	cat, err := New(Options{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL},
		&catalog.Client{Vendor: "digikey", Limiter: bucket, AcquireTimeout: 10 * time.Millisecond})
	require.NoError(t, err)

	req := component.NewRequirements(component.CategorySwitch, 400, 10)
	_, err = cat.Search(context.Background(), req)
	require.NoError(t, err)

	// Token and search used both tokens; the cached token does not help.
	_, err = cat.Search(context.Background(), req)
	assert.ErrorIs(t, err, ratelimit.ErrRateLimitExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenHits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&searchHits))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Options{ClientID: "id"}, &catalog.Client{})
	var cfgErr *component.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestKeyword(t *testing.T) {
	assert.Equal(t, "MOSFET 600V 12A", Keyword(component.NewRequirements(component.CategorySwitch, 400, 10)))
	assert.Equal(t, "Inductor 5A", Keyword(component.NewRequirements(component.CategoryInductor, 48, 4)))
}
