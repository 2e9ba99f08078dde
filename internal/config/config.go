package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ICSConfig describes a single ICS subscription merged into the calendar.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for logging and cache keys.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`

	// Semester, Type and Color are applied to imported events that do not
	// carry their own values.
	Semester string `yaml:"semester,omitempty" json:"semester,omitempty"`
	Type     string `yaml:"type,omitempty" json:"type,omitempty"`
	Color    string `yaml:"color,omitempty" json:"color,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web UI/API.
// PasswordHash (an Argon2id hash from `acadcal hash-password`) takes
// precedence over a plain Password.
type BasicAuthConfig struct {
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password,omitempty" json:"password,omitempty"`
	PasswordHash string `yaml:"password_hash,omitempty" json:"password_hash,omitempty"`
}

// CaptureConfig sizes PNG snapshots of the month view.
type CaptureConfig struct {
	Width          int `yaml:"width" json:"width"`
	Height         int `yaml:"height" json:"height"`
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`

	// Palette is "full" (default), "bw" or "bwr" for e-paper panels.
	Palette string `yaml:"palette,omitempty" json:"palette,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Title is shown in the page header and as the ICS calendar name.
	Title string `yaml:"title" json:"title"`

	// Timezone is the IANA zone that decides what "today" is.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is the first column of the month grid: "sunday" (default)
	// or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// DataFile is a JSON or YAML event list. Empty means the bundled
	// calendar.
	DataFile string `yaml:"data_file" json:"data_file"`

	// Semesters lists the semester view columns in order.
	Semesters []string `yaml:"semesters" json:"semesters"`

	// UpcomingLimit is how many events the "coming up" panel shows.
	UpcomingLimit int `yaml:"upcoming_limit" json:"upcoming_limit"`

	// RefreshCron reloads the dataset on a cron schedule
	// (e.g. "*/30 * * * *"). Empty disables reloading.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir stores downloaded ICS feeds.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if set, protects everything except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`
}

const (
	defaultListen        = "127.0.0.1:8080"
	defaultTitle         = "Academic Calendar"
	defaultTimezone      = "Asia/Dhaka"
	defaultWeekStart     = "sunday"
	defaultUpcomingLimit = 3
	defaultCacheDir      = "./var/ics-cache"
)

// DefaultSemesters is the trimester order of the bundled calendar.
var DefaultSemesters = []string{"Spring", "Summer", "Autumn"}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing or invalid values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Title == "" {
		c.Title = defaultTitle
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = defaultWeekStart
	}
	if len(c.Semesters) == 0 {
		c.Semesters = append([]string(nil), DefaultSemesters...)
	}
	if c.UpcomingLimit <= 0 {
		c.UpcomingLimit = defaultUpcomingLimit
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].ID == "" {
			if c.ICS[i].Name != "" {
				c.ICS[i].ID = c.ICS[i].Name
			} else {
				c.ICS[i].ID = fmt.Sprintf("ics-%d", i+1)
			}
		}
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || (c.BasicAuth.Password == "" && c.BasicAuth.PasswordHash == "")) {
		c.BasicAuth = nil
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = 1280
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = 1024
	}
	if c.Capture.TimeoutSeconds <= 0 {
		c.Capture.TimeoutSeconds = 30
	}
}

// Location resolves Timezone, falling back to time.Local when the zone
// database does not know it.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FirstWeekday converts WeekStart to a time.Weekday.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// CaptureTimeout returns the snapshot timeout as a duration.
func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.Capture.TimeoutSeconds) * time.Second
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist a default config is written there (0600)
// and returned. Otherwise the file is decoded and normalized. An empty
// path returns the defaults without touching the filesystem.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
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

	tmp, err := os.CreateTemp(dir, ".acadcal-config-*.tmp")
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

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
