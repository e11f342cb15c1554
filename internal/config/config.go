package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/toolchainworks/relpack/pkg/logger"
)

// Config holds all application configuration. Components receive this
// struct explicitly instead of reading environment or working-directory
// state on their own.
type Config struct {
	Cache    CacheConfig    `mapstructure:"cache"`
	Output   OutputConfig   `mapstructure:"output"`
	Download DownloadConfig `mapstructure:"download"`
	Release  ReleaseConfig  `mapstructure:"release"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CacheConfig holds download and extraction cache configuration
type CacheConfig struct {
	Dir        string `mapstructure:"dir"`
	ExtractDir string `mapstructure:"extract_dir"`
	Enabled    bool   `mapstructure:"enabled"`
}

// OutputConfig holds the staging output configuration
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// DownloadConfig holds HTTP download configuration
type DownloadConfig struct {
	TimeoutSeconds int   `mapstructure:"timeout_seconds"`
	LimitRate      int64 `mapstructure:"limit_rate"` // bytes/sec, 0 = unlimited
}

// ReleaseConfig holds release derivation and publishing configuration
type ReleaseConfig struct {
	Product string `mapstructure:"product"` // version-marker in source URLs
	Publish bool   `mapstructure:"publish"`
	Repo    string `mapstructure:"repo"` // owner/name passed to gh --repo
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// DefaultCacheDir returns the default download cache directory
func DefaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".", "cache")
	}
	return filepath.Join(base, "relpack", "archives")
}

// DefaultExtractDir returns the default extraction cache directory
func DefaultExtractDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".", "extract-cache")
	}
	return filepath.Join(base, "relpack", "extracted")
}

// LoadConfig loads configuration from file, environment and defaults
func LoadConfig(path string) (*Config, error) {
	// Publishing credentials may live in a project-local .env file
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("cache.dir", DefaultCacheDir())
	v.SetDefault("cache.extract_dir", DefaultExtractDir())
	v.SetDefault("cache.enabled", true)

	v.SetDefault("output.dir", "./output")

	v.SetDefault("download.timeout_seconds", 300)
	v.SetDefault("download.limit_rate", 0)

	v.SetDefault("release.product", "LLVM")
	v.SetDefault("release.publish", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("relpack")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/relpack")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("RELPACK")

	err := v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	err = v.Unmarshal(&config)
	if err != nil {
		return nil, err
	}

	if err := initLogger(&config.Logging); err != nil {
		return nil, err
	}

	return &config, nil
}

// initLogger initializes the logger with the provided configuration
func initLogger(cfg *LoggingConfig) error {
	logConfig := logger.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		File:   cfg.File,
		Module: "main",
	}

	return logger.Init(logConfig)
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Dir:        DefaultCacheDir(),
			ExtractDir: DefaultExtractDir(),
			Enabled:    true,
		},
		Output: OutputConfig{
			Dir: "./output",
		},
		Download: DownloadConfig{
			TimeoutSeconds: 300,
		},
		Release: ReleaseConfig{
			Product: "LLVM",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
