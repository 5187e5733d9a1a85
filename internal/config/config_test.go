package config

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/partscope/pkg/component"
)

func fresh() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(fresh())
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 5, cfg.Recommend.Top)
	assert.Equal(t, 8*time.Second, cfg.Recommend.Deadline)
	assert.Equal(t, component.DefaultWeights(), cfg.Weights)
	assert.Empty(t, cfg.RateLimits)
}

func TestRateLimitOverrides(t *testing.T) {
	v := fresh()
	v.Set("ratelimit.mouser.capacity", 30)
	v.Set("ratelimit.digikey.period", "2m")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.RateLimits["mouser"].Capacity)
	assert.Equal(t, time.Minute, cfg.RateLimits["mouser"].Period)
	assert.Equal(t, 100, cfg.RateLimits["digikey"].Capacity)
	assert.Equal(t, 2*time.Minute, cfg.RateLimits["digikey"].Period)

	set, err := cfg.Limiters()
	require.NoError(t, err)
	assert.Equal(t, 30, set.For("mouser").Capacity())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PARTSCOPE_MOUSER_API_KEY", "from-env")
	t.Setenv("PARTSCOPE_CACHE_BACKEND", "memory")
	v := fresh()
	BindEnv(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Mouser.APIKey)
	assert.Equal(t, "memory", cfg.Cache.Backend)
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name  string
		set   map[string]interface{}
		field string
	}{
		{"unknown backend", map[string]interface{}{"cache.backend": "memcached"}, "cache.backend"},
		{"redis without address", map[string]interface{}{"cache.backend": "redis"}, "cache.redis_addr"},
		{"zero ttl", map[string]interface{}{"cache.ttl": "0s"}, "cache.ttl"},
		{"negative top", map[string]interface{}{"recommend.top": -1}, "recommend.top"},
		{"secret missing", map[string]interface{}{"digikey.client_id": "abc"}, "digikey.client_secret"},
		{"password missing", map[string]interface{}{"server.username": "admin"}, "server.password"},
		{"bad proxy", map[string]interface{}{"http.proxy": "not a url"}, "http.proxy"},
		{"weights sum", map[string]interface{}{"weights.cost": 0.9}, "weights"},
		{"negative weight", map[string]interface{}{"weights.cost": -0.1, "weights.thermal": 0.6}, "weights.cost"},
		{"zero capacity", map[string]interface{}{"ratelimit.lcsc.capacity": 0}, "ratelimit.lcsc.capacity"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			v := fresh()
			for k, val := range tc.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			var cfgErr *component.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}
