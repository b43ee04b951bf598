package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" validate:"required,oneof=dev staging prod"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Moex struct {
		BaseURL        string        `yaml:"base_url" default:"https://iss.moex.com" validate:"url"`
		Engine         string        `yaml:"engine" default:"stock"`
		Market         string        `yaml:"market" default:"shares"`
		Board          string        `yaml:"board" default:"TQBR"`
		UserAgent      string        `yaml:"user_agent" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64)"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"30s"`
		// PageSize is the feed's undocumented per-request row cap; a page
		// shorter than this is treated as the final one.
		PageSize int `yaml:"page_size" default:"500" validate:"gte=1"`
		MaxPages int `yaml:"max_pages" default:"100" validate:"gte=1"`
		Rate     struct {
			Capacity     float64 `yaml:"capacity" default:"5"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"2"`
		} `yaml:"rate"`
	} `yaml:"moex"`
	History struct {
		Dir                string `yaml:"dir" default:"historical_data"`
		DefaultPeriodYears int    `yaml:"default_period_years" default:"1" validate:"gte=1,lte=25"`
	} `yaml:"history"`
	Securities struct {
		File     string        `yaml:"file" default:"moex_companies.csv"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"10m"`
		Redis    struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"securities"`
}

// Load reads and parses a YAML configuration file, applies defaults and
// validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("MOEX_BASE_URL"); v != "" {
		c.Moex.BaseURL = v
	}
	if v := os.Getenv("MOEX_BOARD"); v != "" {
		c.Moex.Board = v
	}
	if v := os.Getenv("HISTORY_DIR"); v != "" {
		c.History.Dir = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Securities.Redis.Enabled = true
		c.Securities.Redis.Host = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
