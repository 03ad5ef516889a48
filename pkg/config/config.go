package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Auth struct {
		Token string `yaml:"token"`
	} `yaml:"auth"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Cache struct {
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Fetcher struct {
		Mode           string        `yaml:"mode"` // sequential or racing
		Concurrency    int           `yaml:"concurrency"`
		OverallTimeout time.Duration `yaml:"overall_timeout"`
		Retry          struct {
			MaxRetries     int           `yaml:"max_retries"`
			BaseDelay      time.Duration `yaml:"base_delay"`
			MaxDelay       time.Duration `yaml:"max_delay"`
			RateLimitBase  time.Duration `yaml:"rate_limit_base"`
			DisconnectBase time.Duration `yaml:"disconnect_base"`
		} `yaml:"retry"`
		Breaker struct {
			FailureThreshold int           `yaml:"failure_threshold"`
			RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
			HalfOpenMaxCalls int           `yaml:"half_open_max_calls"`
			SuccessThreshold int           `yaml:"success_threshold"`
		} `yaml:"breaker"`
		// Sources tunes or disables individual catalog entries by
		// source name.
		Sources map[string]SourceOverride `yaml:"sources"`
	} `yaml:"fetcher"`
}

// SourceOverride adjusts one named data source; zero fields keep the
// built-in tuning.
type SourceOverride struct {
	Priority    int           `yaml:"priority"`
	MinInterval time.Duration `yaml:"min_interval"`
	MaxRetries  int           `yaml:"max_retries"`
	Timeout     time.Duration `yaml:"timeout"`
	Disabled    bool          `yaml:"disabled"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables, so secrets stay out of the file.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("API_AUTH_TOKEN"); v != "" {
		c.Auth.Token = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Enabled = true
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := os.Getenv("FETCH_MODE"); v != "" {
		c.Fetcher.Mode = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	switch c.Fetcher.Mode {
	case "", "sequential", "racing":
	default:
		return fmt.Errorf("fetcher.mode must be 'sequential' or 'racing', got '%s'", c.Fetcher.Mode)
	}
	if c.Cache.Redis.Enabled && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when redis is enabled")
	}
	return nil
}

// Racing reports whether fetches should run in concurrent mode.
func (c *Config) Racing() bool { return c.Fetcher.Mode == "racing" }
