package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"deskcal/internal/calendar"
	appLog "deskcal/internal/log"
)

// ICSSource is an iCalendar subscription imported at startup.
type ICSSource struct {
	// ID is used in logs; defaults to Name, then URL.
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
	// Color is applied to imported events without a COLOR property.
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// PreviewConfig controls the headless-browser PNG of the month page.
type PreviewConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Width   int    `yaml:"width,omitempty" json:"width,omitempty"`
	Height  int    `yaml:"height,omitempty" json:"height,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used to decide which date is "today".
	// Event times are never converted.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is the weekday that opens each grid row
	// ("sunday" by default; any English weekday name is accepted).
	WeekStart string `yaml:"week_start" json:"week_start"`

	// Bootstrap is the starter dataset (.json or .yaml) loaded when no saved
	// state exists.
	Bootstrap string `yaml:"bootstrap" json:"bootstrap"`

	// StatePath, if set, is a bbolt file holding the last saved collection.
	StatePath string `yaml:"state_path" json:"state_path"`

	// Snapshot is the cron spec for background jobs (state save, ICS export,
	// preview capture).
	Snapshot string `yaml:"snapshot" json:"snapshot"`

	// ICSExport, if set, is where the scheduler writes the calendar as .ics.
	ICSExport string `yaml:"ics_export" json:"ics_export"`

	// ICSCacheDir holds downloaded subscription bodies.
	ICSCacheDir string `yaml:"ics_cache_dir" json:"ics_cache_dir"`

	// ICSSources are subscriptions merged into the seed collection.
	ICSSources []ICSSource `yaml:"ics_sources" json:"ics_sources"`

	Preview PreviewConfig `yaml:"preview" json:"preview"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen    = "127.0.0.1:8080"
	defaultWeekStart = "sunday"
	defaultBootstrap = "data/events.json"
	defaultSnapshot  = "@every 5m"
	defaultLogLevel  = "info"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    "",
		WeekStart:   defaultWeekStart,
		Bootstrap:   defaultBootstrap,
		Snapshot:    defaultSnapshot,
		ICSCacheDir: "cache/ics",
		ICSSources:  []ICSSource{},
		Preview: PreviewConfig{
			Path: "cache/preview.png",
		},
		LogLevel: defaultLogLevel,
	}
}

// Normalize fills missing values with defaults so that partial or older
// config files still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	if _, err := calendar.ParseWeekday(c.WeekStart); err != nil {
		if c.WeekStart != "" {
			appLog.Warn("config: unknown week_start; using default", "week_start", c.WeekStart, "default", defaultWeekStart)
		}
		c.WeekStart = defaultWeekStart
	}
	if c.Snapshot == "" {
		c.Snapshot = defaultSnapshot
	}
	if c.ICSCacheDir == "" {
		c.ICSCacheDir = "cache/ics"
	}
	if c.ICSSources == nil {
		c.ICSSources = []ICSSource{}
	}
	for i := range c.ICSSources {
		s := &c.ICSSources[i]
		if s.ID == "" {
			if s.Name != "" {
				s.ID = s.Name
			} else {
				s.ID = s.URL
			}
		}
	}
	if c.Preview.Path == "" {
		c.Preview.Path = "cache/preview.png"
	}
	if _, ok := appLog.ParseLevel(c.LogLevel); !ok {
		c.LogLevel = defaultLogLevel
	}
}

// BasicAuthEnabled reports whether usable credentials are configured.
func (c *Config) BasicAuthEnabled() bool {
	return c.BasicAuth != nil && c.BasicAuth.Username != "" && c.BasicAuth.Password != ""
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600)
// and returned. Otherwise the file is parsed and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// The defaults are still usable; let the caller decide.
				return cfg, err
			}
			appLog.Info("config: wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".deskcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
