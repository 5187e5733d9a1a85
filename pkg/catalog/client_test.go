package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/partscope/pkg/metrics"
	"github.com/sw33tLie/partscope/pkg/ratelimit"
	"github.com/sw33tLie/partscope/pkg/whttp"
)

func TestClientSendMapsStatuses(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	httpClient, err := whttp.NewClient(whttp.ClientOptions{Retries: 0})
	require.NoError(t, err)
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	c := &Client{Vendor: "mouser", HTTP: httpClient, Metrics: m}

	_, err = c.Send(context.Background(), &whttp.WHTTPReq{Method: "GET", URL: srv.URL})
	assert.NoError(t, err)

	status = http.StatusTooManyRequests
	_, err = c.Send(context.Background(), &whttp.WHTTPReq{Method: "GET", URL: srv.URL})
	assert.ErrorIs(t, err, ratelimit.ErrRateLimitExceeded)

	status = http.StatusInternalServerError
	_, err = c.Send(context.Background(), &whttp.WHTTPReq{Method: "GET", URL: srv.URL})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClientTransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	httpClient, err := whttp.NewClient(whttp.ClientOptions{Retries: 0, Timeout: time.Second})
	require.NoError(t, err)
	c := &Client{Vendor: "digikey", HTTP: httpClient}

	_, err = c.Send(context.Background(), &whttp.WHTTPReq{Method: "GET", URL: url})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), "digikey")
}

func TestClientWaitsOnLimiterFirst(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { atomic.AddInt32(&hits, 1) }))
	defer srv.Close()

	bucket, err := ratelimit.NewBucket("lcsc", ratelimit.Config{Capacity: 1, Period: time.Hour})
	require.NoError(t, err)
	c := &Client{Vendor: "lcsc", Limiter: bucket, AcquireTimeout: 5 * time.Millisecond}

	_, err = c.Send(context.Background(), &whttp.WHTTPReq{Method: "GET", URL: srv.URL})
	require.NoError(t, err)
	_, err = c.Send(context.Background(), &whttp.WHTTPReq{Method: "GET", URL: srv.URL})
	assert.ErrorIs(t, err, ratelimit.ErrRateLimitExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
