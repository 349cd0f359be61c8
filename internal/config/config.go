package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"rostersync/internal/portal"
)

// PortalConfig locates and authenticates against the rostering portal.
type PortalConfig struct {
	// Driver selects the session implementation: "browser" (headless
	// Chromium) or "http" (WebForms postback replay).
	Driver    string `yaml:"driver" json:"driver"`
	LoginURL  string `yaml:"login_url" json:"login_url"`
	RosterURL string `yaml:"roster_url" json:"roster_url"`

	// Username / Password may be left empty in the file and supplied
	// via ROSTERSYNC_USERNAME / ROSTERSYNC_PASSWORD instead (a .env
	// file next to the working directory is honored).
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`

	// SettleDelayMS is the pause after each month-navigation click,
	// giving the portal time to re-render the grid.
	SettleDelayMS int `yaml:"settle_delay_ms" json:"settle_delay_ms"`
}

// GoogleConfig targets a Google Calendar.
type GoogleConfig struct {
	CalendarID      string `yaml:"calendar_id" json:"calendar_id"`
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
}

// CalDAVConfig targets a CalDAV collection.
type CalDAVConfig struct {
	URL          string `yaml:"url" json:"url"`
	CalendarPath string `yaml:"calendar_path" json:"calendar_path"`
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password" json:"-"`
	// AlarmEmail receives email-action VALARMs; leave empty to get
	// display alarms only.
	AlarmEmail string `yaml:"alarm_email" json:"alarm_email"`
}

// CalendarConfig selects and configures the remote calendar backend.
type CalendarConfig struct {
	// Backend is "google" or "caldav".
	Backend string       `yaml:"backend" json:"backend"`
	Google  GoogleConfig `yaml:"google" json:"google"`
	CalDAV  CalDAVConfig `yaml:"caldav" json:"caldav"`
}

// BasicAuthConfig protects the status HTTP server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA site time zone all shifts are anchored in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// SiteLocation is the fixed address stamped on every event.
	SiteLocation string `yaml:"site_location" json:"site_location"`

	// WindowDays is the future reconciliation window: remote events
	// from today through this many days ahead are replaced on each run.
	WindowDays int `yaml:"window_days" json:"window_days"`

	// Navigation is the month-page walk after the initial page, each
	// entry "next" or "prev".
	Navigation []string `yaml:"navigation" json:"navigation"`

	// ExportPath, if set, also writes the aggregated shifts to an ICS
	// file before reconciling.
	ExportPath string `yaml:"export_path" json:"export_path"`

	// Refresh is a cron expression for scheduled runs; empty means a
	// single run.
	Refresh string `yaml:"refresh" json:"refresh"`

	// Listen is the status HTTP server address, used in scheduled mode.
	Listen string `yaml:"listen" json:"listen"`

	Portal   PortalConfig   `yaml:"portal" json:"portal"`
	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`

	// BasicAuth, if non-nil, enables HTTP basic auth on the status
	// server except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:   "Australia/Sydney",
		WindowDays: 60,
		Navigation: []string{"next"},
		Portal: PortalConfig{
			Driver:        "browser",
			LoginURL:      portal.DefaultLoginURL,
			RosterURL:     portal.DefaultRosterURL,
			SettleDelayMS: 1000,
		},
		Calendar: CalendarConfig{
			Backend: "google",
			Google:  GoogleConfig{CalendarID: "primary"},
		},
	}
}

// Normalize fills missing values with defaults so partially-filled
// configs behave correctly.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = "Australia/Sydney"
	}
	if c.WindowDays <= 0 {
		c.WindowDays = 60
	}
	if len(c.Navigation) == 0 {
		c.Navigation = []string{"next"}
	}
	switch c.Portal.Driver {
	case "browser", "http":
	default:
		c.Portal.Driver = "browser"
	}
	if c.Portal.LoginURL == "" {
		c.Portal.LoginURL = portal.DefaultLoginURL
	}
	if c.Portal.RosterURL == "" {
		c.Portal.RosterURL = portal.DefaultRosterURL
	}
	if c.Portal.SettleDelayMS <= 0 {
		c.Portal.SettleDelayMS = 1000
	}
	switch c.Calendar.Backend {
	case "google", "caldav":
	default:
		c.Calendar.Backend = "google"
	}
	if c.Calendar.Google.CalendarID == "" {
		c.Calendar.Google.CalendarID = "primary"
	}
}

// Validate rejects configs the run cannot start with.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: bad timezone %q: %w", c.Timezone, err)
	}
	if c.Portal.Username == "" || c.Portal.Password == "" {
		return errors.New("config: portal credentials missing (set portal.username/password or ROSTERSYNC_USERNAME/ROSTERSYNC_PASSWORD)")
	}
	for _, step := range c.Navigation {
		if _, err := portal.ParseStep(step); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

// Steps converts the navigation list; call Validate first.
func (c *Config) Steps() []portal.Step {
	steps := make([]portal.Step, 0, len(c.Navigation))
	for _, s := range c.Navigation {
		step, err := portal.ParseStep(s)
		if err != nil {
			continue
		}
		steps = append(steps, step)
	}
	return steps
}

// Location resolves the configured time zone; call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - A .env file in the working directory, if present, is loaded
//     first; ROSTERSYNC_USERNAME / ROSTERSYNC_PASSWORD and
//     ROSTERSYNC_CALDAV_PASSWORD override the corresponding fields so
//     secrets can stay out of the YAML file.
//   - If the file does not exist, a default config is written there
//     with 0600 perms and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	// Best effort; a missing .env is not an error.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.applyEnv()

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ROSTERSYNC_USERNAME"); v != "" {
		c.Portal.Username = v
	}
	if v := os.Getenv("ROSTERSYNC_PASSWORD"); v != "" {
		c.Portal.Password = v
	}
	if v := os.Getenv("ROSTERSYNC_CALDAV_PASSWORD"); v != "" {
		c.Calendar.CalDAV.Password = v
	}
}

// Save writes the configuration to path: parent dir 0700, atomic
// temp-file + rename, final perms 0600 (the file may hold credentials).
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

	tmp, err := os.CreateTemp(dir, ".rostersync-config-*.tmp")
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
