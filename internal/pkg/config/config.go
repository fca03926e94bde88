package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	HAFAS     HAFASConfig     `mapstructure:"hafas"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Radar     RadarConfig     `mapstructure:"radar"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// HAFASConfig selects the operator profile and how to reach it.
type HAFASConfig struct {
	Profile   string `mapstructure:"profile"`
	UserAgent string `mapstructure:"user_agent"`
	// Timeout is the per-request timeout in seconds.
	Timeout int `mapstructure:"timeout"`
	// Endpoint overrides the profile's endpoint when set.
	Endpoint string `mapstructure:"endpoint"`
}

func (h HAFASConfig) RequestTimeout() time.Duration {
	return time.Duration(h.Timeout) * time.Second
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
	// TTL is the response cache lifetime in seconds; 0 disables caching.
	TTL int `mapstructure:"ttl"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// RadarConfig is the area and cadence of the radar feed.
type RadarConfig struct {
	North float64 `mapstructure:"north"`
	West  float64 `mapstructure:"west"`
	South float64 `mapstructure:"south"`
	East  float64 `mapstructure:"east"`
	// Interval between polls in seconds.
	Interval int `mapstructure:"interval"`
	Results  int `mapstructure:"results"`
}

func (r RadarConfig) PollInterval() time.Duration {
	return time.Duration(r.Interval) * time.Second
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("hafas.profile", "bvg")
	v.SetDefault("hafas.user_agent", "hafasgo")
	v.SetDefault("hafas.timeout", 30)
	v.SetDefault("hafas.endpoint", "")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject_prefix", "hafas.movements")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.ttl", 30)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	// Berlin city centre.
	v.SetDefault("radar.north", 52.56)
	v.SetDefault("radar.west", 13.30)
	v.SetDefault("radar.south", 52.46)
	v.SetDefault("radar.east", 13.50)
	v.SetDefault("radar.interval", 30)
	v.SetDefault("radar.results", 256)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: HAFASGO_HAFAS_PROFILE → hafas.profile
	v.SetEnvPrefix("HAFASGO")
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
	if c.HAFAS.Profile == "" {
		errs = append(errs, "hafas.profile is required")
	}
	if c.HAFAS.UserAgent == "" {
		errs = append(errs, "hafas.user_agent is required")
	}
	if c.HAFAS.Timeout <= 0 {
		errs = append(errs, "hafas.timeout must be positive")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.NATS.SubjectPrefix == "" {
		errs = append(errs, "nats.subject_prefix is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Valkey.TTL < 0 {
		errs = append(errs, "valkey.ttl must not be negative")
	}
	if c.Radar.North <= c.Radar.South {
		errs = append(errs, "radar.north must be larger than radar.south")
	}
	if c.Radar.East <= c.Radar.West {
		errs = append(errs, "radar.east must be larger than radar.west")
	}
	if c.Radar.Interval <= 0 {
		errs = append(errs, "radar.interval must be positive")
	}
	if c.Radar.Results <= 0 {
		errs = append(errs, "radar.results must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
