package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tailscale/hujson"
)

var ErrInvalid = errors.New("invalid config")

// Duration reads "3s" style strings or a number of seconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("duration must be a string or a number, got %T", raw)
	}
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	ListenAddress string `json:"listen_address"`
	DebugAddress  string `json:"debug_address"`
	Country       string `json:"country"`
	DataDir       string `json:"data_dir"`

	RedisUrl      string   `json:"redis_url"`
	RedisPassword string   `json:"redis_password"`
	RedisDb       int      `json:"redis_db"`
	CacheTTL      Duration `json:"cache_ttl"`

	RabbitUrl    string `json:"rabbit_url"`
	RabbitPrefix string `json:"rabbit_prefix"`

	// DatabaseUrl switches the content repository to postgres.
	DatabaseUrl string `json:"database_url"`

	QueryTimeout     Duration `json:"query_timeout"`
	FacetConcurrency int      `json:"facet_concurrency"`
	BatchSize        int      `json:"batch_size"`
}

func Default() Config {
	return Config{
		ListenAddress:    ":8080",
		DebugAddress:     ":8081",
		Country:          "se",
		DataDir:          "data",
		CacheTTL:         Duration(5 * time.Minute),
		RabbitPrefix:     "inventory",
		QueryTimeout:     Duration(3 * time.Second),
		FacetConcurrency: 4,
		BatchSize:        500,
	}
}

// Parse reads JSON with comments and trailing commas over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err = json.Unmarshal(standardized, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, cfg.Validate()
}

// Load reads the optional config file and applies environment overrides.
// An empty path or a missing file gives the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if cfg, err = Parse(data); err != nil {
				return cfg, fmt.Errorf("%s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, err
		}
	}
	cfg = ApplyEnv(cfg, os.LookupEnv)
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from the environment, malformed numbers and
// durations are ignored.
func ApplyEnv(cfg Config, lookup func(string) (string, bool)) Config {
	str := func(curr *string, env string) {
		if v, ok := lookup(env); ok && v != "" {
			*curr = v
		}
	}
	num := func(curr *int, env string) {
		if v, ok := lookup(env); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*curr = n
			}
		}
	}
	dur := func(curr *Duration, env string) {
		if v, ok := lookup(env); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*curr = Duration(d)
			}
		}
	}
	str(&cfg.ListenAddress, "LISTEN_ADDRESS")
	str(&cfg.DebugAddress, "DEBUG_ADDRESS")
	str(&cfg.Country, "COUNTRY")
	str(&cfg.DataDir, "DATA_DIR")
	str(&cfg.RedisUrl, "REDIS_URL")
	str(&cfg.RedisPassword, "REDIS_PASSWORD")
	num(&cfg.RedisDb, "REDIS_DB")
	dur(&cfg.CacheTTL, "CACHE_TTL")
	str(&cfg.RabbitUrl, "RABBIT_HOST")
	str(&cfg.RabbitPrefix, "RABBIT_PREFIX")
	str(&cfg.DatabaseUrl, "DATABASE_URL")
	dur(&cfg.QueryTimeout, "QUERY_TIMEOUT")
	num(&cfg.FacetConcurrency, "FACET_CONCURRENCY")
	num(&cfg.BatchSize, "BATCH_SIZE")
	return cfg
}

func (c Config) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("%w: listen_address is empty", ErrInvalid)
	}
	if c.FacetConcurrency < 1 {
		return fmt.Errorf("%w: facet_concurrency must be at least 1", ErrInvalid)
	}
	if c.QueryTimeout < 0 {
		return fmt.Errorf("%w: query_timeout is negative", ErrInvalid)
	}
	return nil
}
