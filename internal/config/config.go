// Package config maps viper keys onto a typed, validated Config.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/sw33tLie/partscope/pkg/cache"
	"github.com/sw33tLie/partscope/pkg/component"
	"github.com/sw33tLie/partscope/pkg/ratelimit"
	"github.com/sw33tLie/partscope/pkg/recommend"
)

// EnvPrefix is prepended to every environment override, e.g.
// PARTSCOPE_MOUSER_API_KEY for mouser.api_key.
const EnvPrefix = "PARTSCOPE"

// Vendors are the catalogs partscope knows how to build.
var Vendors = []string{"digikey", "mouser", "lcsc", "dev"}

type DigiKey struct {
	ClientID     string `key:"client_id"`
	ClientSecret string `key:"client_secret" validate:"required_with=ClientID"`
	Sandbox      bool   `key:"sandbox"`
}

type Mouser struct {
	APIKey      string `key:"api_key"`
	InStockOnly bool   `key:"in_stock_only"`
}

type Toggle struct {
	Enabled bool `key:"enabled"`
}

type Cache struct {
	Backend       string        `key:"backend" validate:"oneof=memory sqlite redis badger none"`
	Path          string        `key:"path"`
	RedisAddr     string        `key:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `key:"redis_password"`
	RedisDB       int           `key:"redis_db" validate:"gte=0,lte=15"`
	TTL           time.Duration `key:"ttl" validate:"gt=0"`
	MaxEntries    int           `key:"max_entries" validate:"gte=0"`
}

type Recommend struct {
	Deadline time.Duration `key:"deadline" validate:"gt=0"`
	Top      int           `key:"top" validate:"gte=0"`
}

type HTTP struct {
	Timeout time.Duration `key:"timeout" validate:"gt=0"`
	Retries int           `key:"retries" validate:"gte=0,lte=10"`
	Proxy   string        `key:"proxy" validate:"omitempty,url"`
}

type Server struct {
	Listen   string `key:"listen" validate:"required"`
	Username string `key:"username"`
	Password string `key:"password" validate:"required_with=Username"`
}

type Config struct {
	DigiKey        DigiKey                     `key:"digikey"`
	Mouser         Mouser                      `key:"mouser"`
	LCSC           Toggle                      `key:"lcsc"`
	Dev            Toggle                      `key:"dev"`
	RateLimits     map[string]ratelimit.Config `key:"ratelimit"`
	AcquireTimeout time.Duration               `key:"ratelimit.acquire_timeout" validate:"gt=0"`
	Cache          Cache                       `key:"cache"`
	Recommend      Recommend                   `key:"recommend"`
	Weights        component.Weights           `key:"weights"`
	HTTP           HTTP                        `key:"http"`
	Server         Server                      `key:"server"`
}

// SetDefaults registers every key with its default value. Keys must be
// known to viper for AutomaticEnv to pick up their overrides on Get.
func SetDefaults(v *viper.Viper) {
	w := component.DefaultWeights()
	for key, value := range map[string]interface{}{
		"digikey.client_id":         "",
		"digikey.client_secret":     "",
		"digikey.sandbox":           false,
		"mouser.api_key":            "",
		"mouser.in_stock_only":      false,
		"lcsc.enabled":              false,
		"dev.enabled":               false,
		"ratelimit.acquire_timeout": 2 * time.Second,
		"cache.backend":             "sqlite",
		"cache.path":                "",
		"cache.redis_addr":          "",
		"cache.redis_password":      "",
		"cache.redis_db":            0,
		"cache.ttl":                 cache.DefaultTTL,
		"cache.max_entries":         1000,
		"recommend.deadline":        recommend.DefaultDeadline,
		"recommend.top":             5,
		"weights.cost":              w.Cost,
		"weights.availability":      w.Availability,
		"weights.efficiency":        w.Efficiency,
		"weights.thermal":           w.Thermal,
		"http.timeout":              30 * time.Second,
		"http.retries":              2,
		"http.proxy":                "",
		"server.listen":             ":8080",
		"server.username":           "",
		"server.password":           "",
	} {
		v.SetDefault(key, value)
	}
}

// BindEnv makes PARTSCOPE_<KEY> override <key>, with dots as underscores.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads and validates the configuration held by v. Any problem is a
// *component.ConfigurationError naming the offending key.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DigiKey: DigiKey{
			ClientID:     v.GetString("digikey.client_id"),
			ClientSecret: v.GetString("digikey.client_secret"),
			Sandbox:      v.GetBool("digikey.sandbox"),
		},
		Mouser: Mouser{
			APIKey:      v.GetString("mouser.api_key"),
			InStockOnly: v.GetBool("mouser.in_stock_only"),
		},
		LCSC:           Toggle{Enabled: v.GetBool("lcsc.enabled")},
		Dev:            Toggle{Enabled: v.GetBool("dev.enabled")},
		RateLimits:     make(map[string]ratelimit.Config),
		AcquireTimeout: v.GetDuration("ratelimit.acquire_timeout"),
		Cache: Cache{
			Backend:       strings.ToLower(v.GetString("cache.backend")),
			Path:          v.GetString("cache.path"),
			RedisAddr:     v.GetString("cache.redis_addr"),
			RedisPassword: v.GetString("cache.redis_password"),
			RedisDB:       v.GetInt("cache.redis_db"),
			TTL:           v.GetDuration("cache.ttl"),
			MaxEntries:    v.GetInt("cache.max_entries"),
		},
		Recommend: Recommend{
			Deadline: v.GetDuration("recommend.deadline"),
			Top:      v.GetInt("recommend.top"),
		},
		Weights: component.Weights{
			Cost:         v.GetFloat64("weights.cost"),
			Availability: v.GetFloat64("weights.availability"),
			Efficiency:   v.GetFloat64("weights.efficiency"),
			Thermal:      v.GetFloat64("weights.thermal"),
		},
		HTTP: HTTP{
			Timeout: v.GetDuration("http.timeout"),
			Retries: v.GetInt("http.retries"),
			Proxy:   v.GetString("http.proxy"),
		},
		Server: Server{
			Listen:   v.GetString("server.listen"),
			Username: v.GetString("server.username"),
			Password: v.GetString("server.password"),
		},
	}

	defaults := ratelimit.DefaultConfig()
	for _, vendor := range Vendors {
		prefix := "ratelimit." + vendor
		if !v.IsSet(prefix+".capacity") && !v.IsSet(prefix+".period") {
			continue
		}
		rl := defaults
		if v.IsSet(prefix + ".capacity") {
			rl.Capacity = v.GetInt(prefix + ".capacity")
		}
		if v.IsSet(prefix + ".period") {
			rl.Period = v.GetDuration(prefix + ".period")
		}
		cfg.RateLimits[vendor] = rl
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("key")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks struct tags, weights and rate limits.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &component.ConfigurationError{Field: fieldKey(fe.Namespace()), Reason: describe(fe)}
		}
		return &component.ConfigurationError{Field: "config", Reason: err.Error()}
	}
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if _, err := ratelimit.NewSet(ratelimit.DefaultConfig(), c.RateLimits); err != nil {
		return err
	}
	return nil
}

// fieldKey drops the root struct name: "Config.cache.backend" -> "cache.backend".
func fieldKey(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "required", "required_if", "required_with":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("out of range (%s %s), got %v", fe.Tag(), fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("not a valid URL: %v", fe.Value())
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}

// Limiters builds the per-vendor rate limiter set.
func (c *Config) Limiters() (*ratelimit.Set, error) {
	return ratelimit.NewSet(ratelimit.DefaultConfig(), c.RateLimits)
}
