// Package config loads navexpect settings from a YAML file and NAVEXPECT_*
// environment variables. Command-line flags override both.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/navexpect/internal/cdp"
	"github.com/roach88/navexpect/internal/webnav"
)

// Config is the full settings file.
type Config struct {
	// BaseURL resolves relative scenario URLs.
	BaseURL string `yaml:"base_url"`

	// DB is the SQLite file runs are recorded to. Empty disables recording.
	DB string `yaml:"db"`

	// GoldenDir holds trace snapshots. Empty disables golden checks.
	GoldenDir string `yaml:"golden_dir"`

	// MetricsAddr serves /metrics while running, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr"`

	LogLevel string `yaml:"log_level"`

	// Settle keeps listening after a scenario is satisfied to catch
	// trailing events.
	Settle Duration `yaml:"settle"`

	Browser Browser `yaml:"browser"`
}

// Browser holds Chrome launch settings.
type Browser struct {
	Headless        *bool    `yaml:"headless"`
	NoSandbox       bool     `yaml:"no_sandbox"`
	ExecPath        string   `yaml:"exec_path"`
	UserAgent       string   `yaml:"user_agent"`
	WindowWidth     int      `yaml:"window_width"`
	WindowHeight    int      `yaml:"window_height"`
	NavigateTimeout Duration `yaml:"navigate_timeout"`
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the settings used when no file is given.
func Default() Config {
	headless := true
	return Config{
		LogLevel: "info",
		Browser: Browser{
			Headless:        &headless,
			WindowWidth:     1280,
			WindowHeight:    800,
			NavigateTimeout: Duration(30 * time.Second),
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode rejects unknown fields so a misspelled key is not silently ignored.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"NAVEXPECT_BASE_URL":     &c.BaseURL,
		"NAVEXPECT_DB":           &c.DB,
		"NAVEXPECT_GOLDEN_DIR":   &c.GoldenDir,
		"NAVEXPECT_METRICS_ADDR": &c.MetricsAddr,
		"NAVEXPECT_LOG_LEVEL":    &c.LogLevel,
		"NAVEXPECT_CHROME_PATH":  &c.Browser.ExecPath,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	if v, ok := lookup("NAVEXPECT_HEADLESS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NAVEXPECT_HEADLESS: %w", err)
		}
		c.Browser.Headless = &b
	}
	if v, ok := lookup("NAVEXPECT_NO_SANDBOX"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NAVEXPECT_NO_SANDBOX: %w", err)
		}
		c.Browser.NoSandbox = b
	}
	if v, ok := lookup("NAVEXPECT_SETTLE"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NAVEXPECT_SETTLE: %w", err)
		}
		c.Settle = Duration(d)
	}
	return nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := webnav.NewURLResolver(c.BaseURL); err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if c.Settle < 0 {
		return fmt.Errorf("settle must not be negative")
	}
	if c.Browser.WindowWidth < 0 || c.Browser.WindowHeight < 0 {
		return fmt.Errorf("browser window size must not be negative")
	}
	if c.Browser.NavigateTimeout < 0 {
		return fmt.Errorf("browser.navigate_timeout must not be negative")
	}
	return nil
}

// CDP returns the Chrome launch configuration.
func (c Config) CDP() cdp.Config {
	out := cdp.DefaultConfig()
	if c.Browser.Headless != nil {
		out.Headless = *c.Browser.Headless
	}
	out.NoSandbox = c.Browser.NoSandbox
	out.ExecPath = c.Browser.ExecPath
	out.UserAgent = c.Browser.UserAgent
	if c.Browser.WindowWidth > 0 {
		out.WindowWidth = c.Browser.WindowWidth
	}
	if c.Browser.WindowHeight > 0 {
		out.WindowHeight = c.Browser.WindowHeight
	}
	if c.Browser.NavigateTimeout > 0 {
		out.NavigateTimeout = time.Duration(c.Browser.NavigateTimeout)
	}
	return out
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
