package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/sw33tLie/partscope/pkg/metrics"
	"github.com/sw33tLie/partscope/pkg/ratelimit"
	"github.com/sw33tLie/partscope/pkg/whttp"
)

// DefaultAcquireTimeout bounds how long a call waits for a rate limiter
// token before giving up.
const DefaultAcquireTimeout = 2 * time.Second

// Client sends vendor requests through the vendor's token bucket and turns
// failures into the catalog error taxonomy.
type Client struct {
	Vendor         string
	HTTP           *retryablehttp.Client
	Limiter        *ratelimit.Bucket // nil disables throttling
	AcquireTimeout time.Duration
	Metrics        *metrics.Metrics
}

// Send acquires a token, then performs req. Rate limiter denials and HTTP 429
// come back as ratelimit.ErrRateLimitExceeded; every other failure, including
// non-2xx statuses, as ErrUnavailable.
func (c *Client) Send(ctx context.Context, req *whttp.WHTTPReq) (*whttp.WHTTPRes, error) {
	if c.Limiter != nil {
		timeout := c.AcquireTimeout
		if timeout == 0 {
			timeout = DefaultAcquireTimeout
		}
		start := time.Now()
		err := c.Limiter.Acquire(ctx, timeout)
		c.Metrics.RateLimitWait(c.Vendor, time.Since(start))
		if err != nil {
			if errors.Is(err, ratelimit.ErrRateLimitExceeded) {
				c.Metrics.CatalogCall(c.Vendor, "rate_limited", 0)
				return nil, err
			}
			c.Metrics.CatalogCall(c.Vendor, "unavailable", 0)
			return nil, Unavailable(c.Vendor, "%v", err)
		}
	}

	start := time.Now()
	res, err := whttp.SendHTTPRequest(ctx, req, c.HTTP)
	elapsed := time.Since(start)
	if err != nil {
		c.Metrics.CatalogCall(c.Vendor, "unavailable", elapsed)
		return nil, Unavailable(c.Vendor, "%v", err)
	}

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		c.Metrics.CatalogCall(c.Vendor, "rate_limited", elapsed)
		return nil, fmt.Errorf("%w: %s: vendor returned HTTP 429", ratelimit.ErrRateLimitExceeded, c.Vendor)
	case res.StatusCode < 200 || res.StatusCode >= 300:
		c.Metrics.CatalogCall(c.Vendor, "unavailable", elapsed)
		if res.HTTPTitle != "" {
			return nil, Unavailable(c.Vendor, "HTTP %d (%s)", res.StatusCode, res.HTTPTitle)
		}
		return nil, Unavailable(c.Vendor, "HTTP %d", res.StatusCode)
	}

	c.Metrics.CatalogCall(c.Vendor, "success", elapsed)
	return res, nil
}
