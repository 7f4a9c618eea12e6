package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Map       MapConfig       `mapstructure:"map"`
	Seed      SeedConfig      `mapstructure:"seed"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// MapConfig tunes the per-session map behaviour pushed to browsers.
type MapConfig struct {
	ClusterRadius    int     `mapstructure:"cluster_radius"`
	ClusterMaxZoom   int     `mapstructure:"cluster_max_zoom"`
	SelectZoom       float64 `mapstructure:"select_zoom"`
	FlyMillis        int     `mapstructure:"fly_millis"`
	QueryTimeoutSecs int     `mapstructure:"query_timeout_secs"`
}

// SeedConfig controls demo data loaded on startup.
type SeedConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Sightings int     `mapstructure:"sightings"`
	CenterLat float64 `mapstructure:"center_lat"`
	CenterLng float64 `mapstructure:"center_lng"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("map.cluster_radius", 50)
	v.SetDefault("map.cluster_max_zoom", 14)
	v.SetDefault("map.select_zoom", 16)
	v.SetDefault("map.fly_millis", 800)
	v.SetDefault("map.query_timeout_secs", 5)
	v.SetDefault("seed.enabled", false)
	v.SetDefault("seed.sightings", 25)
	v.SetDefault("seed.center_lat", 43.263)
	v.SetDefault("seed.center_lng", -2.935)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: PATITAS_NATS_URL → nats.url
	v.SetEnvPrefix("PATITAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Map.ClusterRadius <= 0 {
		errs = append(errs, "map.cluster_radius must be positive")
	}
	if c.Map.ClusterMaxZoom <= 0 || c.Map.ClusterMaxZoom > 24 {
		errs = append(errs, fmt.Sprintf("map.cluster_max_zoom must be 1-24, got %d", c.Map.ClusterMaxZoom))
	}
	if c.Map.SelectZoom <= 0 || c.Map.SelectZoom > 24 {
		errs = append(errs, fmt.Sprintf("map.select_zoom must be 1-24, got %g", c.Map.SelectZoom))
	}
	if c.Map.FlyMillis <= 0 {
		errs = append(errs, "map.fly_millis must be positive")
	}
	if c.Map.QueryTimeoutSecs <= 0 {
		errs = append(errs, "map.query_timeout_secs must be positive")
	}
	if c.Seed.Enabled && c.Seed.Sightings <= 0 {
		errs = append(errs, "seed.sightings must be positive when seeding is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
