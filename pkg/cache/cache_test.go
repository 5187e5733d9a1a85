package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/partscope/pkg/component"
)

type clock struct{ t time.Time }

func newClock() *clock {
	return &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func sampleParts() []component.Component {
	return []component.Component{
		{
			Vendor: "mouser", PartNumber: "IPW60R070CFD7", Category: component.CategorySwitch,
			UnitPrice: decimal.RequireFromString("6.42"), Stock: 412,
			Spec: component.SwitchSpec{Technology: "mosfet", VoltageMax: 600, CurrentMax: 31, OnResistance: 0.07, GateCharge: 67},
		},
		{
			Vendor: "digikey", PartNumber: "STF13N60M2", Category: component.CategorySwitch,
			UnitPrice: decimal.RequireFromString("1.65"), Stock: 2300,
			Spec: component.SwitchSpec{Technology: "mosfet", VoltageMax: 650, CurrentMax: 11, OnResistance: 0.38, GateCharge: 17},
		},
	}
}

type backend struct {
	name string
	open func(t *testing.T, clk *clock) Store
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T, clk *clock) Store {
			m := NewMemory(0)
			m.Now = clk.now
			return m
		}},
		{"sqlite", func(t *testing.T, clk *clock) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
			require.NoError(t, err)
			s.Now = clk.now
			return s
		}},
		{"badger", func(t *testing.T, clk *clock) Store {
			b, err := OpenBadger("")
			require.NoError(t, err)
			b.Now = clk.now
			return b
		}},
	}
}

func TestStoreRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	for _, be := range backends() {
		be := be
		t.Run(be.name, func(t *testing.T) {
			clk := newClock()
			s := be.open(t, clk)
			defer s.Close()

			key := "parts:v1:switch:mouser:abc"
			assert.Equal(t, Miss, s.Get(ctx, key).Kind)

			require.NoError(t, s.Put(ctx, key, sampleParts(), time.Hour))
			res := s.Get(ctx, key)
			require.Equal(t, Hit, res.Kind, "err: %v", res.Err)
			require.Len(t, res.Entry.Components, 2)
			assert.Equal(t, "IPW60R070CFD7", res.Entry.Components[0].PartNumber)
			assert.IsType(t, component.SwitchSpec{}, res.Entry.Components[0].Spec)
			assert.True(t, res.Entry.Components[1].UnitPrice.Equal(decimal.RequireFromString("1.65")))
			assert.Equal(t, time.Hour, res.Entry.TTL)

			clk.advance(time.Hour)
			assert.Equal(t, Hit, s.Get(ctx, key).Kind, "exactly ttl old is still fresh")

			clk.advance(time.Second)
			assert.Equal(t, Miss, s.Get(ctx, key).Kind)
		})
	}
}

func TestStoreDefaultTTL(t *testing.T) {
	ctx := context.Background()
	for _, be := range backends() {
		be := be
		t.Run(be.name, func(t *testing.T) {
			clk := newClock()
			s := be.open(t, clk)
			defer s.Close()

			require.NoError(t, s.Put(ctx, "k", sampleParts(), 0))
			res := s.Get(ctx, "k")
			require.Equal(t, Hit, res.Kind)
			assert.Equal(t, DefaultTTL, res.Entry.TTL)
		})
	}
}

func TestStoreInvalidate(t *testing.T) {
	ctx := context.Background()
	keys := []string{
		"parts:v1:switch:digikey,mouser:aaa",
		"parts:v1:switch:mouser:bbb",
		"parts:v1:capacitor:mouser:ccc",
		"parts:v1:diode:lcsc:ddd",
	}
	tests := []struct {
		pattern string
		removed int
		left    []string
	}{
		{"parts:v1:switch:", 2, []string{keys[2], keys[3]}},
		{"parts:v1:*mouser*", 3, []string{keys[3]}},
		{"parts:v1:diode:*", 1, []string{keys[0], keys[1], keys[2]}},
		{"", 4, nil},
		{"nothing:", 0, keys},
	}

	for _, be := range backends() {
		for _, tc := range tests {
			be, tc := be, tc
			t.Run(be.name+"/"+tc.pattern, func(t *testing.T) {
				s := be.open(t, newClock())
				defer s.Close()
				for _, k := range keys {
					require.NoError(t, s.Put(ctx, k, sampleParts(), time.Hour))
				}

				n, err := s.Invalidate(ctx, tc.pattern)
				require.NoError(t, err)
				assert.Equal(t, tc.removed, n)

				left := map[string]bool{}
				for _, k := range tc.left {
					left[k] = true
				}
				for _, k := range keys {
					want := Miss
					if left[k] {
						want = Hit
					}
					assert.Equal(t, want, s.Get(ctx, k).Kind, k)
				}
			})
		}
	}
}

func TestMemoryEvictsOldest(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	m := NewMemory(2)
	m.Now = clk.now

	require.NoError(t, m.Put(ctx, "a", nil, time.Hour))
	clk.advance(time.Second)
	require.NoError(t, m.Put(ctx, "b", nil, time.Hour))
	clk.advance(time.Second)
	require.NoError(t, m.Put(ctx, "c", nil, time.Hour))

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, Miss, m.Get(ctx, "a").Kind)
	assert.Equal(t, Hit, m.Get(ctx, "c").Kind)
}

func TestMemoryPutCopiesSlice(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	parts := sampleParts()
	require.NoError(t, m.Put(ctx, "k", parts, time.Hour))
	parts[0].PartNumber = "changed"

	assert.Equal(t, "IPW60R070CFD7", m.Get(ctx, "k").Entry.Components[0].PartNumber)
}

func TestSQLitePurge(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer s.Close()
	s.Now = clk.now

	require.NoError(t, s.Put(ctx, "short", sampleParts(), time.Minute))
	require.NoError(t, s.Put(ctx, "long", sampleParts(), time.Hour))
	clk.advance(2 * time.Minute)

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, Hit, s.Get(ctx, "long").Kind)
}

func TestBadgerFailedEvictionIsBackendError(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	dir := t.TempDir()

	b, err := OpenBadger(dir)
	require.NoError(t, err)
	b.Now = clk.now
	require.NoError(t, b.Put(ctx, "k", sampleParts(), time.Hour))
	require.NoError(t, b.Close())

	// A read-only database can serve the entry but cannot delete it.
	db, err := badger.Open(badger.DefaultOptions(dir).WithReadOnly(true).WithLogger(nil))
	require.NoError(t, err)
	ro := &Badger{db: db, Now: clk.now}
	defer ro.Close()

	assert.Equal(t, Hit, ro.Get(ctx, "k").Kind)

	clk.advance(2 * time.Hour)
	res := ro.Get(ctx, "k")
	assert.Equal(t, BackendError, res.Kind)
	assert.Error(t, res.Err)
}

func TestRedisUnreachableIsBackendError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r := NewRedis(RedisOptions{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond})
	defer r.Close()

	res := r.Get(ctx, "parts:v1:switch:mouser:abc")
	assert.Equal(t, BackendError, res.Kind)
	assert.Error(t, res.Err)
	assert.Error(t, r.Put(ctx, "k", sampleParts(), time.Hour))
	_, err := r.Invalidate(ctx, "parts:")
	assert.Error(t, err)
}

func TestNoneNeverHits(t *testing.T) {
	ctx := context.Background()
	var s Store = None{}
	require.NoError(t, s.Put(ctx, "k", sampleParts(), time.Hour))
	assert.Equal(t, Miss, s.Get(ctx, "k").Kind)
}

func TestMatch(t *testing.T) {
	assert.True(t, Match("parts:v1:switch", "parts:v1:switch:mouser:abc"))
	assert.True(t, Match("parts:*:capacitor:*", "parts:v1:capacitor:lcsc:abc"))
	assert.False(t, Match("parts:v1:diode", "parts:v1:switch:mouser:abc"))
	assert.False(t, Match("[", "parts"))
}
