package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/hupe1980/clusterkit"
	"github.com/hupe1980/clusterkit/internal/server"
	"github.com/hupe1980/clusterkit/resource"
)

// config is the clusterd configuration file.
type config struct {
	Addr      string `toml:"addr"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	// Store is a local directory, s3://bucket/prefix or
	// minio://endpoint/bucket/prefix.
	Store      string `toml:"store"`
	CacheBytes int64  `toml:"cache_bytes"`

	ResultCodec       string `toml:"result_codec"`
	ResultCompression string `toml:"result_compression"`

	Server    server.Config   `toml:"server"`
	Resources resourcesConfig `toml:"resources"`
	Engine    engineConfig    `toml:"engine"`
	S3        s3Config        `toml:"s3"`
	MinIO     minioConfig     `toml:"minio"`
}

type resourcesConfig struct {
	MemoryLimitBytes   int64   `toml:"memory_limit_bytes"`
	MaxConcurrentFits  int64   `toml:"max_concurrent_fits"`
	RequestsPerSecond  float64 `toml:"requests_per_second"`
	Burst              int     `toml:"burst"`
	IOLimitBytesPerSec int64   `toml:"io_limit_bytes_per_sec"`
}

type engineConfig struct {
	Seed            *int64 `toml:"seed"`
	DefaultMaxIters int    `toml:"default_max_iters"`
	EMStop          bool   `toml:"em_stop_on_convergence"`
}

type s3Config struct {
	Region string `toml:"region"`
	// DDBTable routes CURRENT pointers through DynamoDB when set.
	DDBTable string `toml:"ddb_table"`
}

type minioConfig struct {
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Secure    bool   `toml:"secure"`
}

func defaultConfig() config {
	return config{
		Addr:              ":8080",
		LogLevel:          "info",
		LogFormat:         "text",
		Store:             "./data",
		CacheBytes:        64 << 20,
		ResultCodec:       "go-json",
		ResultCompression: "zstd",
		Server:            server.DefaultConfig(),
		Resources: resourcesConfig{
			MaxConcurrentFits: 4,
		},
		Engine: engineConfig{
			DefaultMaxIters: clusterkit.DefaultMaxIters,
		},
	}
}

// loadConfig reads path over the defaults. An empty path returns the
// defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("config %s: unknown keys %v", path, undecoded)
	}
	return cfg, nil
}

func (c resourcesConfig) controller() *resource.Controller {
	return resource.NewController(resource.Config{
		MemoryLimitBytes:   c.MemoryLimitBytes,
		MaxConcurrentFits:  c.MaxConcurrentFits,
		RequestsPerSecond:  c.RequestsPerSecond,
		Burst:              c.Burst,
		IOLimitBytesPerSec: c.IOLimitBytesPerSec,
	})
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}

func (c config) logger() (*clusterkit.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(c.LogFormat) {
	case "json":
		return clusterkit.NewJSONLogger(level), nil
	case "", "text":
		return clusterkit.NewTextLogger(level), nil
	default:
		return nil, fmt.Errorf("log format %q", c.LogFormat)
	}
}
