// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds server and engine configuration. Values are layered: defaults,
// then the YAML file, then the environment (including a .env file), then
// command-line flags applied by the caller.
type Config struct {
	Host         string  `yaml:"host" json:"host"`
	Port         int     `yaml:"port" json:"port"`
	DBPath       string  `yaml:"db_path" json:"db_path"`
	CaloriesCSV  string  `yaml:"calories_csv" json:"calories_csv"`
	WatchCSV     bool    `yaml:"watch_csv" json:"watch_csv"`
	PerUnitScale float64 `yaml:"per_unit_scale" json:"per_unit_scale"`
	DefaultLimit int     `yaml:"default_limit" json:"default_limit"`
	LogLevel     string  `yaml:"log_level" json:"log_level"`
	LogFormat    string  `yaml:"log_format" json:"log_format"` // "text" | "json"

	Chat ChatConfig `yaml:"chat" json:"chat"`
}

// ChatConfig points the assistant tools at an OpenRouter gateway behind an
// MCP proxy. An empty ProxyURL disables them.
type ChatConfig struct {
	ProxyURL string        `yaml:"proxy_url" json:"proxy_url"`
	APIKey   string        `yaml:"api_key" json:"-"`
	Model    string        `yaml:"model" json:"model"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

func Default() *Config {
	return &Config{
		Host:         "0.0.0.0",
		Port:         8011,
		DBPath:       "/data/nutrition-log.db",
		CaloriesCSV:  "food_calories.csv",
		WatchCSV:     false,
		PerUnitScale: 6,
		DefaultLimit: 20,
		LogLevel:     "INFO",
		LogFormat:    "text",
		Chat: ChatConfig{
			ProxyURL: "http://mcp-compose-http-proxy:9876",
			APIKey:   "myapikey",
			Model:    "anthropic/claude-3.5-sonnet",
			Timeout:  60 * time.Second,
		},
	}
}

// Load builds a Config from defaults, the optional YAML file at path and the
// environment. envFile, if set and present, is loaded into the environment
// first; variables already set win over the file.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("NUTRITION_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("NUTRITION_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid NUTRITION_PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := os.Getenv("NUTRITION_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("NUTRITION_CALORIES_CSV"); v != "" {
		c.CaloriesCSV = v
	}
	if v := os.Getenv("NUTRITION_WATCH_CSV"); v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid NUTRITION_WATCH_CSV %q: %w", v, err)
		}
		c.WatchCSV = watch
	}
	if v := os.Getenv("NUTRITION_PER_UNIT_SCALE"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid NUTRITION_PER_UNIT_SCALE %q: %w", v, err)
		}
		c.PerUnitScale = scale
	}
	if v := os.Getenv("NUTRITION_DEFAULT_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid NUTRITION_DEFAULT_LIMIT %q: %w", v, err)
		}
		c.DefaultLimit = limit
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("MCP_PROXY_URL"); v != "" {
		c.Chat.ProxyURL = v
	}
	if v := os.Getenv("MCP_PROXY_API_KEY"); v != "" {
		c.Chat.APIKey = v
	}
	if v := os.Getenv("OPENROUTER_MODEL"); v != "" {
		c.Chat.Model = v
	}
	if v := os.Getenv("CHAT_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CHAT_TIMEOUT %q: %w", v, err)
		}
		c.Chat.Timeout = timeout
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.PerUnitScale <= 0 {
		return fmt.Errorf("per_unit_scale must be positive, got %v", c.PerUnitScale)
	}
	if c.DefaultLimit <= 0 {
		return fmt.Errorf("default_limit must be positive, got %d", c.DefaultLimit)
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.Chat.Timeout <= 0 {
		return fmt.Errorf("chat timeout must be positive, got %v", c.Chat.Timeout)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
