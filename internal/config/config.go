package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/Haunes/ComparendosTransito/internal/calendar"
	"github.com/Haunes/ComparendosTransito/internal/citation"
	"github.com/Haunes/ComparendosTransito/internal/source"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

type Source struct {
	Code    string `yaml:"code"`
	Enabled bool   `yaml:"enabled"`
}

type Config struct {
	GraceDays           int      `yaml:"grace_days"`
	AuthoritativeSource string   `yaml:"authoritative_source"`
	Country             string   `yaml:"country"`
	ExtraHolidays       []string `yaml:"extra_holidays"`
	Retention           string   `yaml:"retention"`
	BackfillDownSources bool     `yaml:"backfill_down_sources"`
	Sources             []Source `yaml:"sources"`
}

func (c *Config) RetentionDuration() time.Duration {
	if c.Retention == "" {
		return 30 * 24 * time.Hour
	}
	// Support "Nd" day syntax
	if len(c.Retention) > 1 && c.Retention[len(c.Retention)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(c.Retention, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	d, err := time.ParseDuration(c.Retention)
	if err != nil {
		return 30 * 24 * time.Hour
	}
	return d
}

func (c *Config) EnabledSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// Priority lists the enabled sources in configured order.
func (c *Config) Priority() []source.Source {
	var out []source.Source
	for _, s := range c.EnabledSources() {
		out = append(out, source.Normalize(s.Code))
	}
	return out
}

// Authority returns the authoritative source, SIMIT when unset.
func (c *Config) Authority() source.Source {
	if c.AuthoritativeSource == "" {
		return source.Simit
	}
	return source.Normalize(c.AuthoritativeSource)
}

// Calendar builds the business-day calendar for the configured country.
func (c *Config) Calendar() (*calendar.Calendar, error) {
	extra, err := parseHolidays(c.ExtraHolidays)
	if err != nil {
		return nil, err
	}
	return calendar.New(c.Country, extra)
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "comparendos", "config.yaml")
}

func StorePath() string {
	return filepath.Join(xdg.DataHome, "comparendos", "comparendos.db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Write defaults to config path on first run
			if err := writeDefaults(path); err != nil {
				// Non-fatal: just use embedded defaults
				return defaults, nil
			}
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Keys missing from the file keep their default values.
	cfg, _ := loadDefaults()
	cfg.Sources = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	mergeDefaultSources(cfg, defaults)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

// mergeDefaultSources appends default sources the user config does not
// mention. User entries keep their position and enabled flag.
func mergeDefaultSources(cfg, defaults *Config) {
	seen := map[source.Source]bool{}
	for _, s := range cfg.Sources {
		seen[source.Normalize(s.Code)] = true
	}
	for _, d := range defaults.Sources {
		if !seen[source.Normalize(d.Code)] {
			cfg.Sources = append(cfg.Sources, d)
		}
	}
}

func validate(cfg *Config) error {
	if cfg.GraceDays < 0 {
		return fmt.Errorf("grace_days must not be negative, got %d", cfg.GraceDays)
	}
	seen := map[source.Source]bool{}
	for i, s := range cfg.Sources {
		if strings.TrimSpace(s.Code) == "" {
			return fmt.Errorf("source %d: code is required", i)
		}
		code, err := source.Parse(s.Code)
		if err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
		if seen[code] {
			return fmt.Errorf("source %q listed twice", s.Code)
		}
		seen[code] = true
		cfg.Sources[i].Code = string(code)
	}

	auth, err := source.Parse(string(cfg.Authority()))
	if err != nil {
		return fmt.Errorf("authoritative_source: %w", err)
	}
	enabled := false
	for _, s := range cfg.EnabledSources() {
		if source.Source(s.Code) == auth {
			enabled = true
		}
	}
	if !enabled {
		return fmt.Errorf("authoritative_source %q is not an enabled source", auth)
	}

	if _, err := cfg.Calendar(); err != nil {
		return err
	}
	return nil
}

func parseHolidays(days []string) ([]time.Time, error) {
	var out []time.Time
	for _, d := range days {
		t, err := time.Parse(citation.ISODate, strings.TrimSpace(d))
		if err != nil {
			return nil, fmt.Errorf("extra_holidays: %q is not a yyyy-mm-dd date", d)
		}
		out = append(out, t)
	}
	return out, nil
}
