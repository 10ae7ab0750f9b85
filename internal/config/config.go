// Package config loads eventsync configuration from an optional YAML
// file plus EVENTSYNC_* environment overrides. Environment wins over
// file, file wins over defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fieldday/eventsync/internal/engine"
)

// Config keys. Dots map to YAML nesting; EVENTSYNC_DB_DSN etc. override.
const (
	KeyDBDSN = "db.dsn"

	KeySpreadsheetID   = "sheets.spreadsheet-id"
	KeyCredentialsFile = "sheets.credentials-file"

	KeyProjectsTab          = "sheets.projects.tab"
	KeyProjectsHeaderRow    = "sheets.projects.header-row"
	KeyProjectsDataStartRow = "sheets.projects.data-start-row"
	KeyProjectsWidth        = "sheets.projects.width"

	KeyEventsTab          = "sheets.events.tab"
	KeyEventsHeaderRow    = "sheets.events.header-row"
	KeyEventsDataStartRow = "sheets.events.data-start-row"
	KeyEventsWidth        = "sheets.events.width"

	KeySyncInterval = "sync.interval"
	KeySyncLockKey  = "sync.lock-key"
	KeySyncTimezone = "sync.timezone"

	KeyNotifyWebhookURL = "notify.webhook-url"
	KeyNotifyTo         = "notify.to"

	KeyLogLevel = "log.level"
)

// Config is the resolved runtime configuration.
type Config struct {
	DSN string

	SpreadsheetID   string
	CredentialsFile string

	Projects engine.SheetRange
	Events   engine.SheetRange

	Interval time.Duration
	LockKey  string
	Timezone string

	WebhookURL string
	NotifyTo   string

	LogLevel string
}

// Load reads configuration. configFile may be empty, in which case only
// defaults and environment apply.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault(KeyProjectsTab, "Projects")
	v.SetDefault(KeyProjectsHeaderRow, 1)
	v.SetDefault(KeyProjectsDataStartRow, 2)
	v.SetDefault(KeyProjectsWidth, 7)

	v.SetDefault(KeyEventsTab, "Event Requests")
	v.SetDefault(KeyEventsHeaderRow, 1)
	v.SetDefault(KeyEventsDataStartRow, 2)
	v.SetDefault(KeyEventsWidth, 10)

	v.SetDefault(KeySyncInterval, 5*time.Minute)
	v.SetDefault(KeySyncLockKey, "eventsync.pass")
	v.SetDefault(KeySyncTimezone, "Local")
	v.SetDefault(KeyLogLevel, "info")

	v.SetEnvPrefix("EVENTSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		DSN:             v.GetString(KeyDBDSN),
		SpreadsheetID:   v.GetString(KeySpreadsheetID),
		CredentialsFile: v.GetString(KeyCredentialsFile),
		Projects: engine.SheetRange{
			Tab:          v.GetString(KeyProjectsTab),
			HeaderRow:    v.GetInt(KeyProjectsHeaderRow),
			DataStartRow: v.GetInt(KeyProjectsDataStartRow),
			Width:        v.GetInt(KeyProjectsWidth),
		},
		Events: engine.SheetRange{
			Tab:          v.GetString(KeyEventsTab),
			HeaderRow:    v.GetInt(KeyEventsHeaderRow),
			DataStartRow: v.GetInt(KeyEventsDataStartRow),
			Width:        v.GetInt(KeyEventsWidth),
		},
		Interval:   v.GetDuration(KeySyncInterval),
		LockKey:    v.GetString(KeySyncLockKey),
		Timezone:   v.GetString(KeySyncTimezone),
		WebhookURL: v.GetString(KeyNotifyWebhookURL),
		NotifyTo:   v.GetString(KeyNotifyTo),
		LogLevel:   v.GetString(KeyLogLevel),
	}
	return cfg, nil
}

// Validate checks the fields a running sync cannot do without.
// Misconfiguration is fatal at startup, never retried.
func (c *Config) Validate() error {
	var errs []error
	if c.DSN == "" {
		errs = append(errs, errors.New("db.dsn is required (EVENTSYNC_DB_DSN)"))
	}
	if c.SpreadsheetID == "" {
		errs = append(errs, errors.New("sheets.spreadsheet-id is required (EVENTSYNC_SHEETS_SPREADSHEET_ID)"))
	}
	if c.Interval < time.Minute {
		errs = append(errs, fmt.Errorf("sync.interval %s is below the 1m floor", c.Interval))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("sync.timezone: %w", err))
	}
	return errors.Join(errs...)
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
