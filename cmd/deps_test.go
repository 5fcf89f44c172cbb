package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sponge-spot/internal/config"
	"github.com/sells-group/sponge-spot/internal/model"
	"github.com/sells-group/sponge-spot/internal/scorer"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Session: config.SessionConfig{DelayMinMs: 4000, DelayMaxMs: 7000, PickMin: 1, PickMax: 15},
		Tiles: config.TilesConfig{
			Template:   "https://{s}.tile.example.org/{z}/{x}/{y}.png",
			Subdomains: []string{"a", "b"},
			MaxZoom:    19,
			CacheSize:  8,
			CacheTTL:   time.Minute,
		},
		Filter: config.FilterConfig{MinPopulation: 500, MaxBudget: model.DefaultMaxBudget},
		Scorer: scorer.DefaultScorerConfig(),
	}
}

func TestSessionOptions(t *testing.T) {
	opts := sessionOptions(testConfig())

	assert.Equal(t, 4*time.Second, opts.DelayMin)
	assert.Equal(t, 7*time.Second, opts.DelayMax)
	assert.Equal(t, 1, opts.PickMin)
	assert.Equal(t, 15, opts.PickMax)
	require.NotNil(t, opts.Criteria)
	assert.Equal(t, 500, opts.Criteria.MinPopulation)
}

func TestTileProxy(t *testing.T) {
	proxy, cache := tileProxy(testConfig())
	require.NotNil(t, proxy)
	require.NotNil(t, cache)
	assert.Equal(t, 8, cache.Stats().MaxEntries)

	c := testConfig()
	c.Tiles.Template = ""
	proxy, cache = tileProxy(c)
	assert.Nil(t, proxy)
	assert.Nil(t, cache)
}

func TestLoadDataset_Embedded(t *testing.T) {
	data, err := loadDataset(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, 18, data.Len())
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, validateConfig(testConfig()))

	c := testConfig()
	c.Session.DelayMinMs = 9000
	err := validateConfig(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session.delay_min_ms")

	c = testConfig()
	c.Scorer.FloodRiskWeight = 90
	err = validateConfig(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights should sum to 100")
}

func TestRootPreRun_RejectsInvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SPONGE_SESSION_PICK_MIN", "20")

	err := rootCmd.PersistentPreRunE(sessionCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session.pick_min")
}

func TestRootPreRun_LoadsValidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SPONGE_LOG_LEVEL", "error")

	require.NoError(t, rootCmd.PersistentPreRunE(sitesListCmd, nil))
	require.NotNil(t, cfg)
	assert.Equal(t, 5, cfg.Scorer.Recommendations)
}
