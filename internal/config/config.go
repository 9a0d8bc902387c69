// Package config loads the leadform configuration.
//
// Values are resolved in order: built-in defaults, an optional YAML file,
// then LEADFORM_* environment variables. A nested key such as http.addr is
// read from LEADFORM_HTTP_ADDR. Command-line flags are applied last by the CLI.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LEADFORM_"

// Config is the full application configuration.
type Config struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	Form       FormConfig       `mapstructure:"form" yaml:"form"`
	Submit     SubmitConfig     `mapstructure:"submit" yaml:"submit"`
	HTTP       HTTPConfig       `mapstructure:"http" yaml:"http"`
	Redis      RedisConfig      `mapstructure:"redis" yaml:"redis"`
	Telegram   TelegramConfig   `mapstructure:"telegram" yaml:"telegram"`
	Encryption EncryptionConfig `mapstructure:"encryption" yaml:"encryption"`
}

// FormConfig holds the wizard timings.
type FormConfig struct {
	SplashDelay   time.Duration `mapstructure:"splash_delay" yaml:"splash_delay"`
	SelectDelay   time.Duration `mapstructure:"select_delay" yaml:"select_delay"`
	DefaultSource string        `mapstructure:"default_source" yaml:"default_source"`
}

// SubmitConfig describes the form-processing endpoint.
type SubmitConfig struct {
	Endpoint  string        `mapstructure:"endpoint" yaml:"endpoint"`
	Multipart bool          `mapstructure:"multipart" yaml:"multipart"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// HTTPConfig configures the JSON API server.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// RedisConfig enables the Redis session store when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// TelegramConfig configures the chat frontend.
type TelegramConfig struct {
	Token string `mapstructure:"token" yaml:"token"`
}

// EncryptionConfig enables at-rest encryption of stored sessions.
// Keys are base64-encoded 32-byte AES keys.
type EncryptionConfig struct {
	Key          string   `mapstructure:"key" yaml:"key"`
	FallbackKeys []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`
	// ScrubSubmitted removes personal answers from sessions once they are submitted.
	ScrubSubmitted bool `mapstructure:"scrub_submitted" yaml:"scrub_submitted"`
}

// Defaults returns the built-in configuration values as a nested map.
func Defaults() map[string]any {
	return map[string]any{
		"log_level":  "info",
		"log_format": "text",
		"form": map[string]any{
			"splash_delay":   "2.5s",
			"select_delay":   "300ms",
			"default_source": "direct",
		},
		"submit": map[string]any{
			"endpoint":  "",
			"multipart": false,
			"timeout":   "15s",
		},
		"http": map[string]any{
			"addr": ":8080",
		},
		"redis": map[string]any{
			"addr":     "",
			"password": "",
			"db":       0,
			"prefix":   "leadform:session:",
			"ttl":      "24h",
		},
		"telegram": map[string]any{
			"token": "",
		},
		"encryption": map[string]any{
			"key":             "",
			"fallback_keys":   []string{},
			"scrub_submitted": true,
		},
	}
}

// Load resolves the configuration from defaults, the YAML file at path
// (skipped when path is empty) and the given environment ("KEY=value" pairs).
func Load(path string, environ []string) (*Config, error) {
	raw := Defaults()

	if path != "" {
		// #nosec G304
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var file map[string]any
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
		merge(raw, file)
	}

	applyEnv(raw, environ)

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that cannot be enforced by decoding alone.
func (c *Config) Validate() error {
	var errs []error
	if c.Submit.Endpoint != "" {
		u, err := url.Parse(c.Submit.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("submit.endpoint must be an absolute http(s) URL, got %q", c.Submit.Endpoint))
		}
	}
	if c.Submit.Timeout <= 0 {
		errs = append(errs, errors.New("submit.timeout must be positive"))
	}
	if c.Form.SplashDelay < 0 || c.Form.SelectDelay < 0 {
		errs = append(errs, errors.New("form delays cannot be negative"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// EnvKeys lists the environment variables understood by Load, sorted.
func EnvKeys() []string {
	var keys []string
	walk(Defaults(), nil, func(path []string, _ map[string]any) {
		keys = append(keys, envName(path))
	})
	sort.Strings(keys)
	return keys
}

// merge copies src into dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				merge(existing, sub)
				continue
			}
		}
		dst[k] = v
	}
}

// applyEnv overrides every known key found in environ.
func applyEnv(raw map[string]any, environ []string) {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}
	if len(env) == 0 {
		return
	}
	walk(raw, nil, func(path []string, parent map[string]any) {
		if v, ok := env[envName(path)]; ok {
			parent[path[len(path)-1]] = v
		}
	})
}

// walk calls fn for every leaf key of m with the key path and its parent map.
func walk(m map[string]any, prefix []string, fn func(path []string, parent map[string]any)) {
	for k, v := range m {
		path := append(append([]string(nil), prefix...), k)
		if sub, ok := v.(map[string]any); ok {
			walk(sub, path, fn)
			continue
		}
		fn(path, m)
	}
}

func envName(path []string) string {
	return EnvPrefix + strings.ToUpper(strings.Join(path, "_"))
}
