// Package config loads c4arch settings. Sources are layered: built-in
// defaults, then a YAML or JSON file, then a .env file, then C4ARCH_*
// environment variables. Command-line flags are applied last by the caller.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"c4arch/editor"
	"c4arch/internal/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "C4ARCH_"

// Store kinds
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// StoreConfig selects where session state is kept.
type StoreConfig struct {
	Kind          string        `yaml:"kind" json:"kind" mapstructure:"kind"`
	RedisAddr     string        `yaml:"redis_addr" json:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" json:"redis_password" mapstructure:"redis_password"`
	RedisDB       int           `yaml:"redis_db" json:"redis_db" mapstructure:"redis_db"`
	TTL           time.Duration `yaml:"ttl" json:"ttl" mapstructure:"ttl"`
}

// Config is the full application configuration.
type Config struct {
	RemoteURL     string         `yaml:"remote_url" json:"remote_url" mapstructure:"remote_url"`
	RemoteTimeout time.Duration  `yaml:"remote_timeout" json:"remote_timeout" mapstructure:"remote_timeout"`
	Listen        string         `yaml:"listen" json:"listen" mapstructure:"listen"`
	Log           logging.Config `yaml:"log" json:"log" mapstructure:"log"`
	Store         StoreConfig    `yaml:"store" json:"store" mapstructure:"store"`
	HistoryLimit  int            `yaml:"history_limit" json:"history_limit" mapstructure:"history_limit"`
	LabelPolicy   string         `yaml:"label_policy" json:"label_policy" mapstructure:"label_policy"`
	Font          string         `yaml:"font" json:"font" mapstructure:"font"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		RemoteURL:     "http://localhost:5000",
		RemoteTimeout: 30 * time.Second,
		Listen:        ":8080",
		Log:           logging.Config{Level: "info"},
		Store: StoreConfig{
			Kind:      StoreMemory,
			RedisAddr: "localhost:6379",
			TTL:       24 * time.Hour,
		},
		HistoryLimit: editor.DefaultHistoryLimit,
		LabelPolicy:  editor.LabelEditInPlace.String(),
	}
}

// envKeys maps environment variables to config paths.
var envKeys = map[string][]string{
	"REMOTE_URL":           {"remote_url"},
	"REMOTE_TIMEOUT":       {"remote_timeout"},
	"LISTEN":               {"listen"},
	"LOG_LEVEL":            {"log", "level"},
	"LOG_JSON":             {"log", "json"},
	"LOG_FILE":             {"log", "file"},
	"STORE_KIND":           {"store", "kind"},
	"STORE_REDIS_ADDR":     {"store", "redis_addr"},
	"STORE_REDIS_PASSWORD": {"store", "redis_password"},
	"STORE_REDIS_DB":       {"store", "redis_db"},
	"STORE_TTL":            {"store", "ttl"},
	"HISTORY_LIMIT":        {"history_limit"},
	"LABEL_POLICY":         {"label_policy"},
	"FONT":                 {"font"},
}

// Load builds a Config from defaults, the file at path (optional), the
// .env file at envFile (optional) and the process environment.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := readFile(path)
		if err != nil {
			return cfg, err
		}
		if err := decode(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overlays C4ARCH_* variables found through lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	raw := map[string]any{}
	for suffix, path := range envKeys {
		value, ok := lookup(EnvPrefix + suffix)
		if !ok {
			continue
		}
		node := raw
		for _, key := range path[:len(path)-1] {
			child, ok := node[key].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[key] = child
			}
			node = child
		}
		node[path[len(path)-1]] = value
	}
	if len(raw) == 0 {
		return nil
	}
	if err := decode(raw, cfg); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.RemoteURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("remote_url %q must be an http(s) URL", c.RemoteURL))
	}
	if c.RemoteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("remote_timeout must be positive"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Kind {
	case StoreMemory:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("store.redis_addr is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store kind %q", c.Store.Kind))
	}
	if c.Store.TTL < 0 {
		errs = append(errs, fmt.Errorf("store.ttl must not be negative"))
	}
	if c.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("history_limit must not be negative"))
	}
	if _, err := editor.ParseLabelPolicy(c.LabelPolicy); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Policy returns the parsed label policy.
func (c Config) Policy() editor.LabelPolicy {
	p, _ := editor.ParseLabelPolicy(c.LabelPolicy)
	return p
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	raw := map[string]any{}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return raw, nil
}

func decode(raw map[string]any, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}
