// Package config provides configuration management for streamid using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration values. These mirror the normative constants from
// the design: they are defaults, not hardcoded literals, so operators can
// tune them without recompiling.
const (
	defaultServerPort          = 5000
	defaultShutdownTimeout     = 10 * time.Second
	defaultWindowWidth         = 12
	defaultKDimension          = 6
	defaultLeafSize            = 400
	defaultSegmentTimeGap      = 2 * time.Second
	defaultMinSegmentSize      = 5_000
	defaultMaxSegmentSize      = 9_000_000
	defaultHTTPHeaders         = 801
	defaultTLSOverhead         = 1.0018
	defaultNBBestMatches       = 10
	defaultMaxMatchesPerStream = 100
	defaultAlpha               = 0.33
	defaultIdentificationThr   = 0.75
	defaultLegacyPearsonThr    = 0.99999999
	defaultBufferTimeSeconds   = 60
	defaultSinkTimeout         = 1 * time.Second
	defaultSinkRatePerSecond   = 20
	defaultFlowIdleTimeout     = 5 * time.Minute
	defaultEvictionInterval    = 1 * time.Minute
	defaultDiskSpillThreshold  = 256 * 1024 * 1024 // 256MB
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Index      IndexConfig      `mapstructure:"index"`
	Identifier IdentifierConfig `mapstructure:"identifier"`
	Segmenter  SegmenterConfig  `mapstructure:"segmenter"`
	Capture    CaptureConfig    `mapstructure:"capture"`
	Sink       SinkConfig       `mapstructure:"sink"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
}

// ServerConfig holds the sink HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// DatabaseConfig holds fingerprint store configuration.
type DatabaseConfig struct {
	// CSVPath is the path to the tabular fingerprint source.
	CSVPath string `mapstructure:"csv_path"`
	// CachePath is where the gob-encoded binary cache of the parsed CSV is kept.
	// Empty disables caching.
	CachePath string `mapstructure:"cache_path"`
	// Watch is read from configuration but no command uses it; CSVPath is
	// not reloaded while a command runs.
	Watch bool `mapstructure:"watch"`
	// ManifestDSN is the sqlite DSN for the index build manifest store.
	ManifestDSN string `mapstructure:"manifest_dsn"`
}

// IndexConfig holds k-d tree index configuration.
type IndexConfig struct {
	WindowWidth          int    `mapstructure:"window_width"`
	KDimension           int    `mapstructure:"k_dimension"`
	LeafSize             int    `mapstructure:"leaf_size"`
	BinaryCachePath      string `mapstructure:"binary_cache_path"`
	DiskSpillThreshold   ByteSize `mapstructure:"disk_spill_threshold"`
}

// IdentifierConfig holds identification-confidence tuning.
type IdentifierConfig struct {
	NBBestMatches          int     `mapstructure:"nb_best_matches"`
	MaxMatchesPerStream    int     `mapstructure:"max_matches_per_stream"`
	Alpha                  float64 `mapstructure:"alpha"`
	IdentificationThreshold float64 `mapstructure:"identification_threshold"`
	// LegacyMode enables the single-shot high-Pearson-threshold identification
	// path instead of the canonical EMA path.
	LegacyMode          bool    `mapstructure:"legacy_mode"`
	LegacyPearsonThresh float64 `mapstructure:"legacy_pearson_threshold"`
	BufferTimeSeconds   int     `mapstructure:"buffer_time_seconds"`
}

// SegmenterConfig holds traffic-segmenter tuning.
type SegmenterConfig struct {
	SegmentTimeThreshold time.Duration `mapstructure:"segment_time_threshold"`
	MinSegmentSize       ByteSize      `mapstructure:"min_segment_size"`
	MaxSegmentSize       ByteSize      `mapstructure:"max_segment_size"`
	HTTPHeaders          int           `mapstructure:"http_headers"`
	TLSOverhead          float64       `mapstructure:"tls_overhead"`
}

// CaptureConfig holds packet-source configuration.
type CaptureConfig struct {
	Interface     string `mapstructure:"interface"`
	FullCDNSearch bool   `mapstructure:"full_cdn_search"`
	Backend       string `mapstructure:"backend"` // auto, tshark, tcpdump
	ExtraFilter   string `mapstructure:"extra_filter"`
}

// SinkConfig holds event-sink configuration.
type SinkConfig struct {
	PostURL         string        `mapstructure:"post_url"`
	AuthToken       string        `mapstructure:"auth_token"`
	PostTimeout     time.Duration `mapstructure:"post_timeout"`
	RatePerSecond   float64       `mapstructure:"rate_per_second"`
	CLIMode         bool          `mapstructure:"cli_mode"`
	SubscriberQueue int           `mapstructure:"subscriber_queue"`
}

// PipelineConfig holds ingest-pipeline glue configuration.
type PipelineConfig struct {
	FlowIdleTimeout  Duration `mapstructure:"flow_idle_timeout"`
	EvictionInterval Duration `mapstructure:"eviction_interval"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with STREAMID_ and use underscores for nesting.
// Example: STREAMID_SERVER_PORT=5000.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".streamid")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/streamid")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix("STREAMID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("database.csv_path", "svtplay_db.csv")
	v.SetDefault("database.cache_path", "svtplay_db.bin")
	v.SetDefault("database.watch", false)
	v.SetDefault("database.manifest_dsn", "streamid_index.db")

	v.SetDefault("index.window_width", defaultWindowWidth)
	v.SetDefault("index.k_dimension", defaultKDimension)
	v.SetDefault("index.leaf_size", defaultLeafSize)
	v.SetDefault("index.binary_cache_path", "")
	v.SetDefault("index.disk_spill_threshold", defaultDiskSpillThreshold)

	v.SetDefault("identifier.nb_best_matches", defaultNBBestMatches)
	v.SetDefault("identifier.max_matches_per_stream", defaultMaxMatchesPerStream)
	v.SetDefault("identifier.alpha", defaultAlpha)
	v.SetDefault("identifier.identification_threshold", defaultIdentificationThr)
	v.SetDefault("identifier.legacy_mode", false)
	v.SetDefault("identifier.legacy_pearson_threshold", defaultLegacyPearsonThr)
	v.SetDefault("identifier.buffer_time_seconds", defaultBufferTimeSeconds)

	v.SetDefault("segmenter.segment_time_threshold", defaultSegmentTimeGap)
	v.SetDefault("segmenter.min_segment_size", defaultMinSegmentSize)
	v.SetDefault("segmenter.max_segment_size", defaultMaxSegmentSize)
	v.SetDefault("segmenter.http_headers", defaultHTTPHeaders)
	v.SetDefault("segmenter.tls_overhead", defaultTLSOverhead)

	v.SetDefault("capture.interface", "")
	v.SetDefault("capture.full_cdn_search", false)
	v.SetDefault("capture.backend", "auto")
	v.SetDefault("capture.extra_filter", "")

	v.SetDefault("sink.post_url", "http://localhost:5000")
	v.SetDefault("sink.auth_token", "")
	v.SetDefault("sink.post_timeout", defaultSinkTimeout)
	v.SetDefault("sink.rate_per_second", defaultSinkRatePerSecond)
	v.SetDefault("sink.cli_mode", false)
	v.SetDefault("sink.subscriber_queue", 3)

	v.SetDefault("pipeline.flow_idle_timeout", defaultFlowIdleTimeout)
	v.SetDefault("pipeline.eviction_interval", defaultEvictionInterval)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Index.KDimension <= 0 || c.Index.WindowWidth <= 0 {
		return fmt.Errorf("index.window_width and index.k_dimension must be positive")
	}
	if c.Index.KDimension > c.Index.WindowWidth {
		return fmt.Errorf("index.k_dimension (%d) must be <= index.window_width (%d)", c.Index.KDimension, c.Index.WindowWidth)
	}
	if c.Index.WindowWidth%c.Index.KDimension != 0 {
		return fmt.Errorf("index.window_width (%d) must be divisible by index.k_dimension (%d)", c.Index.WindowWidth, c.Index.KDimension)
	}

	if c.Database.CSVPath == "" {
		return fmt.Errorf("database.csv_path is required")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
