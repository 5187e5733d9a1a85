package cmd

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sw33tLie/partscope/internal/config"
	"github.com/sw33tLie/partscope/internal/utils"
	"github.com/sw33tLie/partscope/pkg/cache"
	"github.com/sw33tLie/partscope/pkg/catalog"
	"github.com/sw33tLie/partscope/pkg/catalog/dev"
	"github.com/sw33tLie/partscope/pkg/catalog/digikey"
	"github.com/sw33tLie/partscope/pkg/catalog/lcsc"
	"github.com/sw33tLie/partscope/pkg/catalog/mouser"
	"github.com/sw33tLie/partscope/pkg/component"
	"github.com/sw33tLie/partscope/pkg/metrics"
	"github.com/sw33tLie/partscope/pkg/recommend"
	"github.com/sw33tLie/partscope/pkg/whttp"
)

// loadConfig validates the viper state, letting --proxy win over http.proxy.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if proxy, _ := cmd.Flags().GetString("proxy"); proxy != "" {
		viper.Set("http.proxy", proxy)
	}
	return config.Load(viper.GetViper())
}

// app is everything a command needs, built from one Config.
type app struct {
	cfg      *config.Config
	catalogs []catalog.Catalog
	store    cache.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	service  *recommend.Service
	lock     *utils.DBLock
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			utils.Log.Warnf("closing cache: %v", err)
		}
	}
	if a.lock != nil {
		if err := a.lock.Unlock(); err != nil {
			utils.Log.Warnf("releasing cache lock: %v", err)
		}
	}
}

// buildCatalogs returns every catalog that is configured. Catalogs missing
// credentials are skipped with a debug message; wanting one of them
// explicitly through only is an error.
func buildCatalogs(cfg *config.Config, m *metrics.Metrics, only []string) ([]catalog.Catalog, error) {
	limiters, err := cfg.Limiters()
	if err != nil {
		return nil, err
	}
	httpClient, err := whttp.NewClient(whttp.ClientOptions{
		Timeout: cfg.HTTP.Timeout,
		Retries: cfg.HTTP.Retries,
		Proxy:   cfg.HTTP.Proxy,
	})
	if err != nil {
		return nil, &component.ConfigurationError{Field: "http.proxy", Reason: err.Error()}
	}
	client := func(vendor string) *catalog.Client {
		return &catalog.Client{
			Vendor:         vendor,
			HTTP:           httpClient,
			Limiter:        limiters.For(vendor),
			AcquireTimeout: cfg.AcquireTimeout,
			Metrics:        m,
		}
	}

	wanted := map[string]bool{}
	for _, v := range cache.NormalizeVendors(only) {
		wanted[v] = true
	}
	want := func(name string, configured bool) bool {
		if len(wanted) > 0 {
			return wanted[name]
		}
		return configured
	}

	var cats []catalog.Catalog
	if want("digikey", cfg.DigiKey.ClientID != "") {
		c, err := digikey.New(digikey.Options{
			ClientID:     cfg.DigiKey.ClientID,
			ClientSecret: cfg.DigiKey.ClientSecret,
			Sandbox:      cfg.DigiKey.Sandbox,
		}, client("digikey"))
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	} else {
		utils.Log.Debug("digikey disabled: no client_id configured")
	}
	if want("mouser", cfg.Mouser.APIKey != "") {
		c, err := mouser.New(mouser.Options{APIKey: cfg.Mouser.APIKey, InStockOnly: cfg.Mouser.InStockOnly}, client("mouser"))
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	} else {
		utils.Log.Debug("mouser disabled: no api_key configured")
	}
	if want("lcsc", cfg.LCSC.Enabled) {
		cats = append(cats, lcsc.New(lcsc.Options{}, client("lcsc")))
	}
	if want("dev", cfg.Dev.Enabled) {
		cats = append(cats, dev.New(dev.Options{Limiter: limiters.For("dev")}))
	}

	for name := range wanted {
		found := false
		for _, c := range cats {
			found = found || c.Name() == name
		}
		if !found {
			return nil, fmt.Errorf("unknown vendor %q (available: %s)", name, strings.Join(config.Vendors, ", "))
		}
	}
	if len(cats) == 0 {
		return nil, fmt.Errorf("no catalog configured: set digikey or mouser credentials, or enable lcsc/dev in %s", viper.ConfigFileUsed())
	}
	return cats, nil
}

// openCache opens the configured backend. The sqlite backend is guarded by
// a file lock for the lifetime of the command.
func openCache(cfg *config.Config) (cache.Store, *utils.DBLock, error) {
	switch cfg.Cache.Backend {
	case "none":
		return cache.None{}, nil, nil
	case "memory":
		return cache.NewMemory(cfg.Cache.MaxEntries), nil, nil
	case "redis":
		return cache.NewRedis(cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		}), nil, nil
	case "badger":
		dir, err := utils.GetAbsBadgerDir(cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		store, err := cache.OpenBadger(dir)
		return store, nil, err
	default:
		path, err := utils.GetAbsDBPath(cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		lock, err := utils.NewDBLock(path)
		if err != nil {
			return nil, nil, err
		}
		if err := lock.Lock(); err != nil {
			return nil, nil, err
		}
		store, err := cache.OpenSQLite(path)
		if err != nil {
			lock.Unlock()
			return nil, nil, fmt.Errorf("open cache %s: %w", path, err)
		}
		utils.Log.Debugf("using cache %s", path)
		return store, lock, nil
	}
}

// newApp wires config, catalogs, cache and the recommendation service.
// vendors restricts the catalogs that are built; empty means all
// configured ones.
func newApp(cmd *cobra.Command, vendors []string) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}

	cats, err := buildCatalogs(cfg, m, vendors)
	if err != nil {
		return nil, err
	}

	store, lock, err := openCache(cfg)
	if err != nil {
		// A broken cache never blocks a search.
		utils.Log.Warnf("cache unavailable, continuing without: %v", err)
		store, lock = cache.None{}, nil
	}

	svc, err := recommend.New(recommend.Config{
		Catalogs: cats,
		Cache:    store,
		TTL:      cfg.Cache.TTL,
		Deadline: cfg.Recommend.Deadline,
		Log:      utils.Log,
		Metrics:  m,
	})
	if err != nil {
		store.Close()
		if lock != nil {
			lock.Unlock()
		}
		return nil, err
	}

	return &app{
		cfg:      cfg,
		catalogs: cats,
		store:    store,
		registry: reg,
		metrics:  m,
		service:  svc,
		lock:     lock,
	}, nil
}
