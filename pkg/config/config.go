package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

const (
	SinkDir = "dir"
	SinkGCS = "gcs"

	envPrefix = "BTS"
)

// Config is the client configuration. Values come from, in increasing
// precedence: defaults, the YAML config file, BTS_* environment variables
// (a .env file in the working directory is loaded first) and command-line
// flags.
type Config struct {
	APIURL         string        `mapstructure:"api_url"`
	OutputDir      string        `mapstructure:"output_dir"`
	Sink           string        `mapstructure:"sink"`
	Bucket         string        `mapstructure:"bucket"`
	BucketPrefix   string        `mapstructure:"bucket_prefix"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	LogLevel       string        `mapstructure:"log_level"`
	Port           string        `mapstructure:"port"`
}

// fileConfig is the on-disk shape; durations are written as "30s".
type fileConfig struct {
	APIURL         string `yaml:"api_url"`
	OutputDir      string `yaml:"output_dir"`
	Sink           string `yaml:"sink"`
	Bucket         string `yaml:"bucket,omitempty"`
	BucketPrefix   string `yaml:"bucket_prefix,omitempty"`
	RequestTimeout string `yaml:"request_timeout"`
	LogLevel       string `yaml:"log_level"`
	Port           string `yaml:"port"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"api":       "api_url",
	"out":       "output_dir",
	"sink":      "sink",
	"bucket":    "bucket",
	"prefix":    "bucket_prefix",
	"timeout":   "request_timeout",
	"log-level": "log_level",
	"port":      "port",
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIURL:    "http://localhost:8000",
		OutputDir: "downloads",
		Sink:      SinkDir,
		LogLevel:  "info",
		Port:      "3000",
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("sink", d.Sink)
	v.SetDefault("bucket", d.Bucket)
	v.SetDefault("bucket_prefix", d.BucketPrefix)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("port", d.Port)
}

// Build loads the configuration. cfgFile may be empty, in which case
// config.yaml is looked up in the working directory and in
// $HOME/.config/bts. flags may be nil.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// a missing .env is fine
	_ = gotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/bts")
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that would otherwise fail later and far from
// their source.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api_url %q: must be an absolute URL", c.APIURL)
	}
	switch c.Sink {
	case SinkDir:
		if c.OutputDir == "" {
			return fmt.Errorf("output_dir is required for the %q sink", SinkDir)
		}
	case SinkGCS:
		if c.Bucket == "" {
			return fmt.Errorf("bucket is required for the %q sink", SinkGCS)
		}
	default:
		return fmt.Errorf("invalid sink %q (want %s or %s)", c.Sink, SinkDir, SinkGCS)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() (log.Level, error) {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	fc := fileConfig{
		APIURL:       cfg.APIURL,
		OutputDir:    cfg.OutputDir,
		Sink:         cfg.Sink,
		Bucket:       cfg.Bucket,
		BucketPrefix: cfg.BucketPrefix,
		LogLevel:     cfg.LogLevel,
		Port:         cfg.Port,
	}
	if cfg.RequestTimeout > 0 {
		fc.RequestTimeout = cfg.RequestTimeout.String()
	} else {
		fc.RequestTimeout = "0s"
	}
	data, err := yaml.Marshal(&fc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
