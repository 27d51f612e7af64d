package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("ADMIN_IDS", "1, 2,3")
	t.Setenv("REMINDER_DAYS", "oops")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, cfg.AdminIDs)
	assert.Equal(t, 3, cfg.ReminderDays)
	assert.Equal(t, "0 9 * * *", cfg.ReminderCron)
	assert.Equal(t, 2, cfg.DefaultAllowedDevices)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoad_BadAdminIDs(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("ADMIN_IDS", "1,abc")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MissingTokenPanics(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("DATABASE_URL", "postgres://x")
	assert.Panics(t, func() { _, _ = Load() })
}
