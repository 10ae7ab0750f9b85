package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Projects", cfg.Projects.Tab)
	assert.Equal(t, 2, cfg.Projects.DataStartRow)
	assert.Equal(t, 7, cfg.Projects.Width)
	assert.Equal(t, "Event Requests", cfg.Events.Tab)
	assert.Equal(t, 10, cfg.Events.Width)
	assert.Equal(t, 5*time.Minute, cfg.Interval)
	assert.Equal(t, "eventsync.pass", cfg.LockKey)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("EVENTSYNC_DB_DSN", "user:pw@tcp(localhost:3306)/fieldday?parseTime=true")
	t.Setenv("EVENTSYNC_SHEETS_SPREADSHEET_ID", "sheet-123")
	t.Setenv("EVENTSYNC_SYNC_INTERVAL", "10m")
	t.Setenv("EVENTSYNC_SHEETS_EVENTS_TAB", "Form Responses 1")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "user:pw@tcp(localhost:3306)/fieldday?parseTime=true", cfg.DSN)
	assert.Equal(t, "sheet-123", cfg.SpreadsheetID)
	assert.Equal(t, 10*time.Minute, cfg.Interval)
	assert.Equal(t, "Form Responses 1", cfg.Events.Tab)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eventsync.yaml")
	content := `
db:
  dsn: file-dsn
sheets:
  spreadsheet-id: file-sheet
  projects:
    tab: Plans
sync:
  interval: 15m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-dsn", cfg.DSN)
	assert.Equal(t, "file-sheet", cfg.SpreadsheetID)
	assert.Equal(t, "Plans", cfg.Projects.Tab)
	assert.Equal(t, 15*time.Minute, cfg.Interval)

	// Environment still beats the file.
	t.Setenv("EVENTSYNC_SYNC_INTERVAL", "20m")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Minute, cfg.Interval)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db.dsn")
	assert.Contains(t, err.Error(), "spreadsheet-id")

	cfg.DSN = "dsn"
	cfg.SpreadsheetID = "sheet"
	require.NoError(t, cfg.Validate())

	cfg.Interval = 10 * time.Second
	assert.Error(t, cfg.Validate(), "sub-minute intervals would hammer the Sheets quota")

	cfg.Interval = 5 * time.Minute
	cfg.Timezone = "Not/AZone"
	assert.Error(t, cfg.Validate())

	cfg.Timezone = "America/Chicago"
	require.NoError(t, cfg.Validate())
}
