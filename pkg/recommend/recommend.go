// Package recommend ties catalogs, the result cache and the selector
// together. A request is answered from cache when possible; otherwise every
// requested vendor is searched concurrently under one deadline and whatever
// arrives in time is merged, cached and ranked.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/sw33tLie/partscope/pkg/cache"
	"github.com/sw33tLie/partscope/pkg/catalog"
	"github.com/sw33tLie/partscope/pkg/component"
	"github.com/sw33tLie/partscope/pkg/metrics"
	"github.com/sw33tLie/partscope/pkg/ratelimit"
	"github.com/sw33tLie/partscope/pkg/selector"
)

// ErrNoCandidatesAvailable is returned when the cache was empty and no
// vendor produced a single candidate. It is the only error Recommend
// returns for a valid request.
var ErrNoCandidatesAvailable = errors.New("no candidates available")

const DefaultDeadline = 8 * time.Second

// Status is the per-vendor outcome of one request.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusDegraded    Status = "degraded"
	StatusUnavailable Status = "unavailable"
)

type VendorStatus struct {
	Status     Status        `json:"status"`
	Cached     bool          `json:"cached,omitempty"`
	Candidates int           `json:"candidates"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration_ns,omitempty"`
}

// Query is one recommendation request. A zero Weights value means
// component.DefaultWeights. An empty Vendors list means every configured
// catalog. Top <= 0 returns every ranked candidate.
type Query struct {
	Requirements component.Requirements `json:"requirements"`
	Weights      component.Weights      `json:"weights"`
	Vendors      []string               `json:"vendors,omitempty"`
	Top          int                    `json:"top,omitempty"`
}

type Result struct {
	RequestID  string                    `json:"request_id"`
	Scores     []selector.ComponentScore `json:"scores"`
	Vendors    map[string]VendorStatus   `json:"vendors"`
	CacheHit   bool                      `json:"cache_hit"`
	CacheKey   string                    `json:"cache_key"`
	Candidates int                       `json:"candidates"`
}

// Config holds everything New needs. Only Catalogs is required.
type Config struct {
	Catalogs []catalog.Catalog
	Cache    cache.Store      // nil = no caching
	TTL      time.Duration    // defaults to cache.DefaultTTL
	Deadline time.Duration    // defaults to DefaultDeadline
	Log      catalog.Logger   // nil = no logging
	Metrics  *metrics.Metrics // nil = no metrics
}

type Service struct {
	catalogs map[string]catalog.Catalog
	names    []string
	store    cache.Store
	ttl      time.Duration
	deadline time.Duration
	log      catalog.Logger
	metrics  *metrics.Metrics
	group    singleflight.Group
}

func New(cfg Config) (*Service, error) {
	if len(cfg.Catalogs) == 0 {
		return nil, &component.ConfigurationError{Field: "catalogs", Reason: "at least one catalog is required"}
	}
	if cfg.Deadline < 0 {
		return nil, &component.ConfigurationError{Field: "recommend.deadline", Reason: "must not be negative"}
	}
	if cfg.TTL < 0 {
		return nil, &component.ConfigurationError{Field: "cache.ttl", Reason: "must not be negative"}
	}

	s := &Service{
		catalogs: make(map[string]catalog.Catalog, len(cfg.Catalogs)),
		store:    cfg.Cache,
		ttl:      cfg.TTL,
		deadline: cfg.Deadline,
		log:      cfg.Log,
		metrics:  cfg.Metrics,
	}
	for _, c := range cfg.Catalogs {
		name := strings.ToLower(c.Name())
		if _, dup := s.catalogs[name]; dup {
			return nil, &component.ConfigurationError{Field: "catalogs", Reason: fmt.Sprintf("duplicate catalog %q", name)}
		}
		s.catalogs[name] = c
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)

	if s.store == nil {
		s.store = cache.None{}
	}
	if s.ttl == 0 {
		s.ttl = cache.DefaultTTL
	}
	if s.deadline == 0 {
		s.deadline = DefaultDeadline
	}
	if s.log == nil {
		s.log = catalog.NopLogger{}
	}
	return s, nil
}

// Vendors returns the configured catalog names, sorted.
func (s *Service) Vendors() []string {
	return append([]string(nil), s.names...)
}

// Catalog returns the catalog registered under name.
func (s *Service) Catalog(name string) (catalog.Catalog, bool) {
	c, ok := s.catalogs[strings.ToLower(name)]
	return c, ok
}

// Recommend answers q. Invalid requirements or weights fail with a
// *component.ConfigurationError before any I/O. Vendor failures only show
// up in Result.Vendors.
func (s *Service) Recommend(ctx context.Context, q Query) (*Result, error) {
	start := time.Now()
	category := string(q.Requirements.Category)

	weights := q.Weights
	if weights == (component.Weights{}) {
		weights = component.DefaultWeights()
	}
	if err := q.Requirements.Validate(); err != nil {
		s.metrics.Recommendation(category, "invalid", time.Since(start))
		return nil, err
	}
	if err := weights.Validate(); err != nil {
		s.metrics.Recommendation(category, "invalid", time.Since(start))
		return nil, err
	}

	vendors := cache.NormalizeVendors(q.Vendors)
	if len(vendors) == 0 {
		vendors = s.Vendors()
	}
	key := cache.Key(q.Requirements, vendors)

	res := &Result{
		RequestID: uuid.NewString(),
		CacheKey:  key,
	}

	var candidates []component.Component
	lookup := s.store.Get(ctx, key)
	s.metrics.CacheLookup(lookup.Kind.String())
	if lookup.Kind == cache.Hit {
		s.log.Debugf("[%s] cache hit %s (%d candidates)", res.RequestID, key, len(lookup.Entry.Components))
		candidates = lookup.Entry.Components
		res.CacheHit = true
		res.Vendors = cachedStatuses(vendors, candidates)
	} else {
		if lookup.Kind == cache.BackendError {
			s.log.Warnf("[%s] cache read failed, searching catalogs: %v", res.RequestID, lookup.Err)
		} else {
			s.log.Debugf("[%s] cache miss %s", res.RequestID, key)
		}
		f := s.fetchShared(ctx, key, q.Requirements, vendors)
		candidates = f.components
		res.Vendors = make(map[string]VendorStatus, len(f.statuses))
		for v, st := range f.statuses {
			res.Vendors[v] = st
		}
	}

	res.Candidates = len(candidates)
	if len(candidates) == 0 {
		s.metrics.Recommendation(category, "no_candidates", time.Since(start))
		return nil, fmt.Errorf("%w: %s", ErrNoCandidatesAvailable, summarize(res.Vendors))
	}

	res.Scores = selector.Select(candidates, q.Requirements, weights, q.Top)
	outcome := "ok"
	if len(res.Scores) == 0 {
		outcome = "filtered"
	}
	s.metrics.Recommendation(category, outcome, time.Since(start))
	s.log.Infof("[%s] %s: %d candidates, %d ranked", res.RequestID, category, len(candidates), len(res.Scores))
	return res, nil
}

// InvalidateCache removes cache entries matching pattern. A pattern without
// glob characters is a key prefix, e.g. "parts:v1:capacitor:".
func (s *Service) InvalidateCache(ctx context.Context, pattern string) (int, error) {
	n, err := s.store.Invalidate(ctx, pattern)
	if err != nil {
		s.log.Warnf("cache invalidation of %q failed: %v", pattern, err)
		return n, err
	}
	s.log.Infof("invalidated %d cache entries matching %q", n, pattern)
	return n, nil
}

type fetched struct {
	components []component.Component
	statuses   map[string]VendorStatus
}

// fetchShared coalesces concurrent misses for the same key into a single
// fan-out. The shared fetch runs detached from any one caller's
// cancellation and is bounded by the service deadline instead. A caller
// whose ctx ends first stops waiting and sees every vendor unavailable; the
// fetch carries on for the others and still fills the cache.
func (s *Service) fetchShared(ctx context.Context, key string, req component.Requirements, vendors []string) fetched {
	ch := s.group.DoChan(key, func() (interface{}, error) {
		detached := context.WithoutCancel(ctx)
		f := s.fetch(detached, req, vendors)
		if complete(f.statuses) && len(f.components) > 0 {
			if err := s.store.Put(detached, key, f.components, s.ttl); err != nil {
				s.log.Warnf("cache write for %s failed: %v", key, err)
			}
		}
		return f, nil
	})

	select {
	case r := <-ch:
		if r.Shared {
			s.log.Debugf("joined in-flight search for %s", key)
		}
		return r.Val.(fetched)
	case <-ctx.Done():
		s.log.Debugf("caller left before the search for %s finished: %v", key, ctx.Err())
		statuses := make(map[string]VendorStatus, len(vendors))
		for _, v := range vendors {
			statuses[v] = VendorStatus{Status: StatusUnavailable, Error: ctx.Err().Error()}
		}
		return fetched{statuses: statuses}
	}
}

type vendorResult struct {
	vendor     string
	components []component.Component
	err        error
	took       time.Duration
}

func (s *Service) fetch(ctx context.Context, req component.Requirements, vendors []string) fetched {
	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	statuses := make(map[string]VendorStatus, len(vendors))
	results := make(chan vendorResult, len(vendors))

	var wg sync.WaitGroup
	for _, v := range vendors {
		c, ok := s.catalogs[v]
		if !ok {
			statuses[v] = VendorStatus{Status: StatusUnavailable, Error: "unknown vendor"}
			continue
		}
		wg.Add(1)
		go func(name string, c catalog.Catalog) {
			defer wg.Done()
			begin := time.Now()
			comps, err := c.Search(ctx, req)
			results <- vendorResult{vendor: name, components: comps, err: err, took: time.Since(begin)}
		}(v, c)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	byVendor := make(map[string][]component.Component)
collect:
	for {
		select {
		case r, ok := <-results:
			if !ok {
				break collect
			}
			statuses[r.vendor] = s.classify(r)
			if r.err == nil {
				byVendor[r.vendor] = r.components
			}
		case <-ctx.Done():
			break collect
		}
	}

	for _, v := range vendors {
		if _, done := statuses[v]; !done {
			s.log.Warnf("%s did not answer within %s", v, s.deadline)
			s.metrics.CatalogCall(v, "deadline", s.deadline)
			statuses[v] = VendorStatus{Status: StatusUnavailable, Error: "deadline exceeded", Duration: s.deadline}
		}
	}

	return fetched{components: merge(vendors, byVendor), statuses: statuses}
}

func (s *Service) classify(r vendorResult) VendorStatus {
	switch {
	case r.err == nil:
		return VendorStatus{Status: StatusSuccess, Candidates: len(r.components), Duration: r.took}
	case errors.Is(r.err, ratelimit.ErrRateLimitExceeded):
		s.log.Warnf("%s rate limited: %v", r.vendor, r.err)
		return VendorStatus{Status: StatusDegraded, Error: r.err.Error(), Duration: r.took}
	default:
		s.log.Warnf("%s search failed: %v", r.vendor, r.err)
		return VendorStatus{Status: StatusUnavailable, Error: r.err.Error(), Duration: r.took}
	}
}

// merge deduplicates by (vendor, part number) and orders by vendor then
// part number, so the candidate set does not depend on arrival order.
func merge(vendors []string, byVendor map[string][]component.Component) []component.Component {
	seen := make(map[string]bool)
	var out []component.Component
	for _, v := range vendors {
		for _, c := range byVendor[v] {
			if c.Vendor == "" {
				c.Vendor = v
			}
			if seen[c.Key()] {
				continue
			}
			seen[c.Key()] = true
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Vendor != out[j].Vendor {
			return out[i].Vendor < out[j].Vendor
		}
		return out[i].PartNumber < out[j].PartNumber
	})
	return out
}

func complete(statuses map[string]VendorStatus) bool {
	for _, st := range statuses {
		if st.Status != StatusSuccess {
			return false
		}
	}
	return true
}

func cachedStatuses(vendors []string, comps []component.Component) map[string]VendorStatus {
	counts := make(map[string]int)
	for _, c := range comps {
		counts[c.Vendor]++
	}
	out := make(map[string]VendorStatus, len(vendors))
	for _, v := range vendors {
		out[v] = VendorStatus{Status: StatusSuccess, Cached: true, Candidates: counts[v]}
	}
	return out
}

func summarize(statuses map[string]VendorStatus) string {
	names := make([]string, 0, len(statuses))
	for v := range statuses {
		names = append(names, v)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, v := range names {
		st := statuses[v]
		if st.Error != "" {
			parts = append(parts, fmt.Sprintf("%s %s (%s)", v, st.Status, st.Error))
		} else {
			parts = append(parts, fmt.Sprintf("%s %s (%d candidates)", v, st.Status, st.Candidates))
		}
	}
	return strings.Join(parts, "; ")
}
