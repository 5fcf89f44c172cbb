package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/sponge-spot/internal/geospatial"
	"github.com/sells-group/sponge-spot/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Dataset DatasetConfig `yaml:"dataset" mapstructure:"dataset"`
	Session SessionConfig `yaml:"session" mapstructure:"session"`
	Tiles   TilesConfig   `yaml:"tiles" mapstructure:"tiles"`
	Map     MapConfig     `yaml:"map" mapstructure:"map"`
	Filter  FilterConfig  `yaml:"filter" mapstructure:"filter"`
	Scorer  ScorerConfig  `yaml:"scorer" mapstructure:"scorer"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `yaml:"port" mapstructure:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DatasetConfig selects the location catalog: a YAML or JSON file, an
// http(s) URL, or empty for the embedded catalog.
type DatasetConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SessionConfig configures the startup delay simulation and session reaping.
type SessionConfig struct {
	DelayMinMs    int           `yaml:"delay_min_ms" mapstructure:"delay_min_ms"`
	DelayMaxMs    int           `yaml:"delay_max_ms" mapstructure:"delay_max_ms"`
	PickMin       int           `yaml:"pick_min" mapstructure:"pick_min"`
	PickMax       int           `yaml:"pick_max" mapstructure:"pick_max"`
	IdleTTL       time.Duration `yaml:"idle_ttl" mapstructure:"idle_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
}

// TilesConfig configures the basemap tile proxy.
type TilesConfig struct {
	Template         string        `yaml:"template" mapstructure:"template"`
	Subdomains       []string      `yaml:"subdomains" mapstructure:"subdomains"`
	MaxZoom          int           `yaml:"max_zoom" mapstructure:"max_zoom"`
	UserAgent        string        `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs      int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxBytes         int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
	CacheSize        int           `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTL         time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	RatePerSecond    float64       `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst            int           `yaml:"burst" mapstructure:"burst"`
	MaxAttempts      int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	BreakerThreshold int           `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown" mapstructure:"breaker_cooldown"`
}

// MapConfig holds the initial map view handed to clients.
type MapConfig struct {
	CenterLat   float64 `yaml:"center_lat" mapstructure:"center_lat"`
	CenterLon   float64 `yaml:"center_lon" mapstructure:"center_lon"`
	Zoom        int     `yaml:"zoom" mapstructure:"zoom"`
	TileURL     string  `yaml:"tile_url" mapstructure:"tile_url"`
	Attribution string  `yaml:"attribution" mapstructure:"attribution"`
}

// FilterConfig holds the thresholds applied when a request omits them.
type FilterConfig struct {
	MinPopulation int   `yaml:"min_population" mapstructure:"min_population"`
	MaxBudget     int64 `yaml:"max_budget" mapstructure:"max_budget"`
}

// ScorerConfig holds the suitability weights and recommendation defaults.
type ScorerConfig struct {
	// Weights (sum = 100).
	FloodRiskWeight        float64 `yaml:"flood_risk_weight" mapstructure:"flood_risk_weight"`
	PopulationWeight       float64 `yaml:"population_weight" mapstructure:"population_weight"`
	GreenSpaceWeight       float64 `yaml:"green_space_weight" mapstructure:"green_space_weight"`
	HeatIslandWeight       float64 `yaml:"heat_island_weight" mapstructure:"heat_island_weight"`
	SoilPermeabilityWeight float64 `yaml:"soil_permeability_weight" mapstructure:"soil_permeability_weight"`
	LandAvailabilityWeight float64 `yaml:"land_availability_weight" mapstructure:"land_availability_weight"`
	CommunitySupportWeight float64 `yaml:"community_support_weight" mapstructure:"community_support_weight"`

	// PopulationCap is the nearby population that earns full marks.
	PopulationCap int `yaml:"population_cap" mapstructure:"population_cap"`

	// Thresholds.
	MinScore        float64 `yaml:"min_score" mapstructure:"min_score"`
	Recommendations int     `yaml:"recommendations" mapstructure:"recommendations"`
}

// DelayMin returns the lower startup delay bound.
func (c SessionConfig) DelayMin() time.Duration {
	return time.Duration(c.DelayMinMs) * time.Millisecond
}

// DelayMax returns the upper startup delay bound.
func (c SessionConfig) DelayMax() time.Duration {
	return time.Duration(c.DelayMaxMs) * time.Millisecond
}

// Criteria returns the default filter criteria for new sessions and queries.
func (c FilterConfig) Criteria() model.Criteria {
	crit := model.DefaultCriteria()
	crit.MinPopulation = c.MinPopulation
	crit.MaxBudget = c.MaxBudget
	return crit
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SPONGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("dataset.path", "")
	v.SetDefault("session.delay_min_ms", 4000)
	v.SetDefault("session.delay_max_ms", 7000)
	v.SetDefault("session.pick_min", 1)
	v.SetDefault("session.pick_max", 15)
	v.SetDefault("session.idle_ttl", 30*time.Minute)
	v.SetDefault("session.sweep_interval", time.Minute)
	v.SetDefault("tiles.template", geospatial.DefaultTileTemplate)
	v.SetDefault("tiles.subdomains", []string{"a", "b", "c"})
	v.SetDefault("tiles.max_zoom", 19)
	v.SetDefault("tiles.user_agent", "sponge-spot/1.0")
	v.SetDefault("tiles.timeout_secs", 15)
	v.SetDefault("tiles.max_bytes", geospatial.DefaultMaxTileBytes)
	v.SetDefault("tiles.cache_size", 2048)
	v.SetDefault("tiles.cache_ttl", 6*time.Hour)
	v.SetDefault("tiles.rate_per_second", 10.0)
	v.SetDefault("tiles.burst", 20)
	v.SetDefault("tiles.max_attempts", 3)
	v.SetDefault("tiles.breaker_threshold", 5)
	v.SetDefault("tiles.breaker_cooldown", 30*time.Second)
	v.SetDefault("map.center_lat", 43.6532)
	v.SetDefault("map.center_lon", -79.3832)
	v.SetDefault("map.zoom", 12)
	v.SetDefault("map.tile_url", "/tiles/{z}/{x}/{y}.png")
	v.SetDefault("map.attribution", "&copy; OpenStreetMap contributors")
	v.SetDefault("filter.min_population", model.DefaultMinPopulation)
	v.SetDefault("filter.max_budget", model.DefaultMaxBudget)
	v.SetDefault("scorer.flood_risk_weight", 25)
	v.SetDefault("scorer.population_weight", 15)
	v.SetDefault("scorer.green_space_weight", 10)
	v.SetDefault("scorer.heat_island_weight", 15)
	v.SetDefault("scorer.soil_permeability_weight", 15)
	v.SetDefault("scorer.land_availability_weight", 10)
	v.SetDefault("scorer.community_support_weight", 10)
	v.SetDefault("scorer.population_cap", model.PopulationRange.Max)
	v.SetDefault("scorer.min_score", 0)
	v.SetDefault("scorer.recommendations", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Session.DelayMinMs < 0 || c.Session.DelayMaxMs < c.Session.DelayMinMs {
		errs = append(errs, "session.delay_min_ms must be >= 0 and <= session.delay_max_ms")
	}
	if c.Session.PickMin < 0 || c.Session.PickMax < c.Session.PickMin {
		errs = append(errs, "session.pick_min must be >= 0 and <= session.pick_max")
	}
	if c.Tiles.MaxZoom < 0 || c.Tiles.MaxZoom > 22 {
		errs = append(errs, "tiles.max_zoom must be between 0 and 22")
	}
	for _, ph := range []string{"{z}", "{x}", "{y}"} {
		if c.Tiles.Template != "" && !strings.Contains(c.Tiles.Template, ph) {
			errs = append(errs, "tiles.template is missing "+ph)
		}
	}
	if c.Tiles.MaxBytes < 0 {
		errs = append(errs, "tiles.max_bytes must be >= 0")
	}
	if c.Filter.MaxBudget < 0 {
		errs = append(errs, "filter.max_budget must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
