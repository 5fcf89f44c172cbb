package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sponge-spot/internal/config"
	"github.com/sells-group/sponge-spot/internal/dataset"
	"github.com/sells-group/sponge-spot/internal/geospatial"
	"github.com/sells-group/sponge-spot/internal/resilience"
	"github.com/sells-group/sponge-spot/internal/scorer"
	"github.com/sells-group/sponge-spot/internal/session"
)

// validateConfig checks the settings every command depends on, including
// the scorer weights.
func validateConfig(c *config.Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := scorer.ValidateConfig(c.Scorer); err != nil {
		return eris.Wrap(err, "config: scorer")
	}
	return nil
}

// loadDataset loads the configured catalog (file or URL), falling back to
// the embedded one.
func loadDataset(ctx context.Context, c *config.Config) (*dataset.Dataset, error) {
	return dataset.LoadSource(ctx, c.Dataset.Path, dataset.RemoteOptions{UserAgent: c.Tiles.UserAgent})
}

// sessionOptions maps the session config onto the delay simulation.
func sessionOptions(c *config.Config) session.Options {
	crit := c.Filter.Criteria()
	return session.Options{
		DelayMin: c.Session.DelayMin(),
		DelayMax: c.Session.DelayMax(),
		PickMin:  c.Session.PickMin,
		PickMax:  c.Session.PickMax,
		Criteria: &crit,
	}
}

// tileProxy builds the basemap proxy and its cache. A blank template
// disables the proxy.
func tileProxy(c *config.Config) (*geospatial.TileProxy, *geospatial.TileCache) {
	t := c.Tiles
	if t.Template == "" {
		return nil, nil
	}

	cache := geospatial.NewTileCache(t.CacheSize, t.CacheTTL)
	retry := resilience.DefaultRetryConfig()
	if t.MaxAttempts > 0 {
		retry.MaxAttempts = t.MaxAttempts
	}

	proxy := geospatial.NewTileProxy(geospatial.TileProxyOptions{
		Template:      t.Template,
		Subdomains:    t.Subdomains,
		MaxZoom:       t.MaxZoom,
		UserAgent:     t.UserAgent,
		Timeout:       time.Duration(t.TimeoutSecs) * time.Second,
		MaxBytes:      t.MaxBytes,
		RatePerSecond: t.RatePerSecond,
		Burst:         t.Burst,
		Retry:         retry,
		Breaker:       resilience.NewBreaker(t.BreakerThreshold, t.BreakerCooldown),
	}, cache)
	return proxy, cache
}
