package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Port              string `json:"port" yaml:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
}

type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // text | json
}

type Display struct {
	MaxAgeSec int `json:"max_age_sec" yaml:"max_age_sec"`
}

type Yahoo struct {
	Enabled                bool   `json:"enabled" yaml:"enabled"`
	BaseURL                string `json:"base_url" yaml:"base_url"`
	MaxRequestsPerMinute   int    `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`
	MinRequestIntervalMs   int    `json:"min_request_interval_ms" yaml:"min_request_interval_ms"`
	Burst                  int    `json:"burst" yaml:"burst"`
	MaxConcurrency         int    `json:"max_concurrency" yaml:"max_concurrency"`
	CacheTTLSeconds        int    `json:"cache_ttl_sec" yaml:"cache_ttl_sec"`
	SummaryCacheTTLSeconds int    `json:"summary_cache_ttl_sec" yaml:"summary_cache_ttl_sec"`
}

type FMP struct {
	APIKey          string `json:"api_key" yaml:"api_key"`
	BaseURL         string `json:"base_url" yaml:"base_url"`
	MaxConcurrency  int    `json:"max_concurrency" yaml:"max_concurrency"`
	CacheTTLSeconds int    `json:"cache_ttl_sec" yaml:"cache_ttl_sec"`
}

type Alpaca struct {
	APIKey    string `json:"api_key" yaml:"api_key"`
	APISecret string `json:"api_secret" yaml:"api_secret"`
	DataURL   string `json:"data_url" yaml:"data_url"`
	Feed      string `json:"feed" yaml:"feed"`
}

type Cache struct {
	Backend       string `json:"backend" yaml:"backend"` // memory | redis
	MaxItems      int    `json:"max_items" yaml:"max_items"`
	RedisAddr     string `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `json:"redis_password" yaml:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db"`
	RedisPrefix   string `json:"redis_prefix" yaml:"redis_prefix"`
}

type Config struct {
	Server  Server  `json:"server" yaml:"server"`
	Log     Log     `json:"log" yaml:"log"`
	Display Display `json:"display" yaml:"display"`
	Yahoo   Yahoo   `json:"yahoo" yaml:"yahoo"`
	FMP     FMP     `json:"fmp" yaml:"fmp"`
	Alpaca  Alpaca  `json:"alpaca" yaml:"alpaca"`
	Cache   Cache   `json:"cache" yaml:"cache"`
}

// AlpacaEnabled reports whether both Alpaca credentials are present.
func (c Config) AlpacaEnabled() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

func Default() Config {
	return Config{
		Server:  Server{Port: "8080", RequestTimeoutSec: 10},
		Log:     Log{Level: "info", Format: "text"},
		Display: Display{MaxAgeSec: 8 * 60 * 60},
		Yahoo: Yahoo{
			Enabled:                true,
			MaxRequestsPerMinute:   120,
			Burst:                  5,
			MaxConcurrency:         8,
			CacheTTLSeconds:        15,
			SummaryCacheTTLSeconds: 300,
		},
		FMP: FMP{
			MaxConcurrency:  8,
			CacheTTLSeconds: 60,
		},
		Alpaca: Alpaca{Feed: "iex"},
		Cache: Cache{
			Backend:     "memory",
			MaxItems:    10000,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "marketquotes:",
		},
	}
}

// Load reads config from path (JSON, or YAML for .yaml/.yml). If path is
// empty, config.json and then config.yaml are probed; a missing file yields
// defaults. A .env file in the working directory is loaded first, then
// environment variables override select fields.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		for _, p := range []string{"config.json", "config.yaml"} {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := decode(path, b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setInt(&cfg.Server.RequestTimeoutSec, "REQUEST_TIMEOUT_SEC", 1)
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setInt(&cfg.Display.MaxAgeSec, "DISPLAY_MAX_AGE_SEC", 1)

	setBool(&cfg.Yahoo.Enabled, "YAHOO_ENABLED")
	setString(&cfg.Yahoo.BaseURL, "YAHOO_BASE_URL")
	setInt(&cfg.Yahoo.MaxRequestsPerMinute, "YAHOO_MAX_RPM", 0)

	setString(&cfg.FMP.APIKey, "FMP_API_KEY")
	setString(&cfg.FMP.BaseURL, "FMP_BASE_URL")

	setString(&cfg.Alpaca.APIKey, "APCA_API_KEY_ID")
	setString(&cfg.Alpaca.APISecret, "APCA_API_SECRET_KEY")
	setString(&cfg.Alpaca.DataURL, "ALPACA_DATA_URL")

	setString(&cfg.Cache.Backend, "CACHE_BACKEND")
	setString(&cfg.Cache.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Cache.RedisPassword, "REDIS_PASSWORD")
	setInt(&cfg.Cache.RedisDB, "REDIS_DB", 0)
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// setInt ignores unparsable values and values below minimum.
func setInt(dst *int, key string, minimum int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	x, err := strconv.Atoi(v)
	if err != nil || x < minimum {
		return
	}
	*dst = x
}

func setBool(dst *bool, key string) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y":
		*dst = true
	case "0", "false", "no", "n":
		*dst = false
	}
}
