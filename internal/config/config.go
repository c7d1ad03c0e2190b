// Package config handles bibcheck configuration: the provider cascade,
// request pacing, the relay service and logging.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/matsen/bibcheck/internal/catalog"
	"github.com/matsen/bibcheck/internal/logging"
)

// Config is the whole configuration, stored as YAML.
type Config struct {
	Mailto      string           `yaml:"mailto,omitempty" json:"mailto,omitempty"`         // Sent to CrossRef and OpenAlex for their polite pools
	UserAgent   string           `yaml:"user_agent,omitempty" json:"user_agent,omitempty"` // Empty uses the catalog default
	RateLimit   float64          `yaml:"rate_limit" json:"rate_limit"`                     // Requests per second per catalog; 0 disables limiting
	Pause       time.Duration    `yaml:"pause" json:"pause"`                               // Delay between entries in sequential mode
	Concurrency int              `yaml:"concurrency" json:"concurrency"`                   // Entries verified at once
	Providers   []ProviderConfig `yaml:"providers" json:"providers"`                       // Cascade, in order
	Relay       RelayConfig      `yaml:"relay" json:"relay"`
	Log         LogConfig        `yaml:"log" json:"log"`
}

// ProviderConfig is one step of the cascade.
type ProviderConfig struct {
	Name          string        `yaml:"name" json:"name"`
	Threshold     int           `yaml:"threshold" json:"threshold"`                               // Skip this step when the best match already reaches it
	MinConfidence int           `yaml:"min_confidence,omitempty" json:"min_confidence,omitempty"` // Ignore candidates below it
	Timeout       time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`               // Zero uses the catalog default
	BaseURL       string        `yaml:"base_url,omitempty" json:"base_url,omitempty"`             // Override for mirrors and tests
	Disabled      bool          `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// RelayConfig configures the INIST relay service.
type RelayConfig struct {
	Addr           string        `yaml:"addr" json:"addr"`
	INISTURL       string        `yaml:"inist_url" json:"inist_url"`
	AllowedOrigins []string      `yaml:"allowed_origins" json:"allowed_origins"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

const (
	DefaultINISTURL  = "https://biblio-ref.services.istex.fr/v1/validate"
	DefaultRelayAddr = "localhost:3001"
	DefaultRelayWait = 30 * time.Second
)

// Environment variables read by ApplyEnv.
const (
	EnvMailto    = "BIBCHECK_MAILTO"
	EnvRelayAddr = "BIBCHECK_RELAY_ADDR"
	EnvINISTURL  = "BIBCHECK_INIST_URL"
	EnvLogLevel  = "BIBCHECK_LOG_LEVEL"
)

// defaultThresholds holds the cascade thresholds. BnF SPARQL candidates are
// only kept when they are already good enough to stop HAL from running.
var defaultThresholds = map[string][2]int{
	catalog.NameBnFSPARQL:   {70, 70},
	catalog.NameHAL:         {80, 0},
	catalog.NameBnFSRU:      {70, 0},
	catalog.NameOpenLibrary: {70, 0},
	catalog.NameCrossRef:    {70, 0},
	catalog.NameOpenAlex:    {70, 0},
}

// Default returns the built-in configuration.
func Default() *Config {
	providers := make([]ProviderConfig, 0, len(catalog.DefaultOrder))
	for _, name := range catalog.DefaultOrder {
		t := defaultThresholds[name]
		providers = append(providers, ProviderConfig{Name: name, Threshold: t[0], MinConfidence: t[1]})
	}

	return &Config{
		RateLimit:   catalog.DefaultRateLimit,
		Pause:       200 * time.Millisecond,
		Concurrency: 1,
		Providers:   providers,
		Relay: RelayConfig{
			Addr:           DefaultRelayAddr,
			INISTURL:       DefaultINISTURL,
			AllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
			Timeout:        DefaultRelayWait,
		},
		Log: LogConfig{Level: "info", Format: logging.FormatJSON},
	}
}

// ApplyEnv overrides fields from BIBCHECK_* environment variables that are
// set and non-empty.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvMailto); v != "" {
		c.Mailto = v
	}
	if v := os.Getenv(EnvRelayAddr); v != "" {
		c.Relay.Addr = v
	}
	if v := os.Getenv(EnvINISTURL); v != "" {
		c.Relay.INISTURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// EnabledProviders returns the cascade without disabled steps.
func (c *Config) EnabledProviders() []ProviderConfig {
	var out []ProviderConfig
	for _, p := range c.Providers {
		if !p.Disabled {
			out = append(out, p)
		}
	}
	return out
}

// ErrNoProviders is returned when every provider is disabled.
var ErrNoProviders = errors.New("no providers enabled")

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for i, p := range c.Providers {
		if _, err := catalog.NewProvider(p.Name); err != nil {
			return fmt.Errorf("providers[%d]: %w", i, err)
		}
		if seen[p.Name] {
			return fmt.Errorf("providers[%d]: %q listed twice", i, p.Name)
		}
		seen[p.Name] = true
		if p.Threshold < 0 || p.Threshold > 100 {
			return fmt.Errorf("providers[%d]: threshold %d out of range 0-100", i, p.Threshold)
		}
		if p.MinConfidence < 0 || p.MinConfidence > 100 {
			return fmt.Errorf("providers[%d]: min_confidence %d out of range 0-100", i, p.MinConfidence)
		}
		if p.Timeout < 0 {
			return fmt.Errorf("providers[%d]: negative timeout", i)
		}
	}
	if len(c.EnabledProviders()) == 0 {
		return ErrNoProviders
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative: %v", c.RateLimit)
	}
	if c.Pause < 0 {
		return fmt.Errorf("pause must not be negative: %v", c.Pause)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1: %d", c.Concurrency)
	}

	if c.Relay.Addr == "" {
		return errors.New("relay.addr is empty")
	}
	if u, err := url.Parse(c.Relay.INISTURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("relay.inist_url is not an absolute URL: %q", c.Relay.INISTURL)
	}
	for _, o := range c.Relay.AllowedOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("relay.allowed_origins: %q must be \"*\" or start with http:// or https://", o)
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", logging.FormatJSON, logging.FormatConsole:
	default:
		return fmt.Errorf("invalid log format %q (valid: json, console)", c.Log.Format)
	}
	return nil
}
