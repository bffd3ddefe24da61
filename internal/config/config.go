// Package config loads the server configuration from environment variables,
// with an optional YAML file underneath. All tunables live here; business
// logic never reads the environment directly.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level server configuration.
type Config struct {
	Port           string        `mapstructure:"port"`
	DataDir        string        `mapstructure:"data_dir"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	UploadMaxBytes   int64 `mapstructure:"upload_max_bytes"`
	FreeFixPackLimit int   `mapstructure:"free_fix_pack_limit"`

	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`

	Redis Redis `mapstructure:"redis"`
}

// Redis holds the optional Redis connection settings. An empty address means
// the server runs with in-memory fallbacks.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Load reads configuration from LAUNCHCHECK_* environment variables and an
// optional config file, with defaults applied.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Set defaults.
	v.SetDefault("port", "8080")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("upload_max_bytes", int64(500*1024*1024))
	v.SetDefault("free_fix_pack_limit", 3)
	v.SetDefault("rate_limit_per_minute", 60)
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetEnvPrefix("LAUNCHCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("launchcheck")
		v.SetConfigType("yaml")
	}

	// Read config file if it exists; missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
