package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)

	// Database defaults
	assert.Equal(t, "svtplay_db.csv", cfg.Database.CSVPath)
	assert.Equal(t, "svtplay_db.bin", cfg.Database.CachePath)
	assert.False(t, cfg.Database.Watch)

	// Index defaults
	assert.Equal(t, 12, cfg.Index.WindowWidth)
	assert.Equal(t, 6, cfg.Index.KDimension)
	assert.Equal(t, 400, cfg.Index.LeafSize)

	// Identifier defaults
	assert.Equal(t, 10, cfg.Identifier.NBBestMatches)
	assert.Equal(t, 100, cfg.Identifier.MaxMatchesPerStream)
	assert.InDelta(t, 0.33, cfg.Identifier.Alpha, 1e-9)
	assert.False(t, cfg.Identifier.LegacyMode)

	// Segmenter defaults
	assert.Equal(t, 2*time.Second, cfg.Segmenter.SegmentTimeThreshold)
	assert.Equal(t, ByteSize(5_000), cfg.Segmenter.MinSegmentSize)
	assert.Equal(t, ByteSize(9_000_000), cfg.Segmenter.MaxSegmentSize)
	assert.Equal(t, 801, cfg.Segmenter.HTTPHeaders)

	// Capture defaults
	assert.Equal(t, "auto", cfg.Capture.Backend)
	assert.False(t, cfg.Capture.FullCDNSearch)

	// Pipeline defaults
	assert.Equal(t, Duration(5*time.Minute), cfg.Pipeline.FlowIdleTimeout)
	assert.Equal(t, Duration(1*time.Minute), cfg.Pipeline.EvictionInterval)
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 60s

database:
  csv_path: "fingerprints.csv"
  cache_path: "fingerprints.bin"

index:
  window_width: 20
  k_dimension: 4
  disk_spill_threshold: 10MB

logging:
  level: "debug"
  format: "text"

pipeline:
  flow_idle_timeout: 2d
  eviction_interval: 30s
`
	err := os.WriteFile(configPath, []byte(configContent), 0o600)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "fingerprints.csv", cfg.Database.CSVPath)
	assert.Equal(t, "fingerprints.bin", cfg.Database.CachePath)
	assert.Equal(t, 20, cfg.Index.WindowWidth)
	assert.Equal(t, 4, cfg.Index.KDimension)
	assert.Equal(t, ByteSize(10*1024*1024), cfg.Index.DiskSpillThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, Duration(48*time.Hour), cfg.Pipeline.FlowIdleTimeout)
	assert.Equal(t, Duration(30*time.Second), cfg.Pipeline.EvictionInterval)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("STREAMID_SERVER_PORT", "3000")
	t.Setenv("STREAMID_LOGGING_LEVEL", "warn")
	t.Setenv("STREAMID_CAPTURE_INTERFACE", "eth0")
	t.Setenv("STREAMID_INDEX_WINDOW_WIDTH", "24")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "eth0", cfg.Capture.Interface)
	assert.Equal(t, 24, cfg.Index.WindowWidth)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 5000
database:
  csv_path: "test.csv"
`
	err := os.WriteFile(configPath, []byte(configContent), 0o600)
	require.NoError(t, err)

	t.Setenv("STREAMID_SERVER_PORT", "9000")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "test.csv", cfg.Database.CSVPath)
}

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Host: "0.0.0.0", Port: 5000},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{
			CSVPath: "svtplay_db.csv",
		},
		Index: IndexConfig{WindowWidth: 12, KDimension: 6},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	err := validConfig().Validate()
	assert.NoError(t, err)
}

func TestValidate_InvalidPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"zero port", 0},
		{"negative port", -1},
		{"port too high", 70000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Port = tt.port
			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "server.port")
		})
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "invalid"
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "logging.format")
}

func TestValidate_EmptyCSVPath(t *testing.T) {
	cfg := validConfig()
	cfg.Database.CSVPath = ""
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database.csv_path")
}

func TestValidate_WindowKDimension(t *testing.T) {
	tests := []struct {
		name        string
		window      int
		k           int
		errContains string
	}{
		{"zero window", 0, 6, "positive"},
		{"negative k", 12, -1, "positive"},
		{"k exceeds window", 6, 12, "must be <="},
		{"not divisible", 10, 3, "divisible"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Index.WindowWidth = tt.window
			cfg.Index.KDimension = tt.k
			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		port     int
		expected string
	}{
		{"localhost", "127.0.0.1", 5000, "127.0.0.1:5000"},
		{"all interfaces", "0.0.0.0", 3000, "0.0.0.0:3000"},
		{"hostname", "example.com", 443, "example.com:443"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &ServerConfig{Host: tt.host, Port: tt.port}
			assert.Equal(t, tt.expected, cfg.Address())
		})
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidContent := `
server:
  port: "not a number"
  invalid yaml structure
`
	err := os.WriteFile(configPath, []byte(invalidContent), 0o600)
	require.NoError(t, err)

	_, err = Load(configPath)
	assert.Error(t, err)
}

func TestLoad_NonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoad_ByteSizeAndDurationSuffixes(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  csv_path: "x.csv"
segmenter:
  min_segment_size: 5KB
  max_segment_size: 9MB
pipeline:
  flow_idle_timeout: 1w2d12h
`
	err := os.WriteFile(configPath, []byte(configContent), 0o600)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, ByteSize(5*1024), cfg.Segmenter.MinSegmentSize)
	assert.Equal(t, ByteSize(9*1024*1024), cfg.Segmenter.MaxSegmentSize)
	assert.Equal(t, Duration(9*24*time.Hour+12*time.Hour), cfg.Pipeline.FlowIdleTimeout)
}
