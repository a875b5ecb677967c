package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("MYSQL_DSN", "")
	t.Setenv("DAILY_SWIPE_LIMIT", "")

	cfg := New()

	assert.Equal(t, 10, cfg.Limits.DailySwipes)
	assert.Equal(t, 50, cfg.Limits.DiscoverLimit)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Contains(t, cfg.DB.DSN, "@tcp(localhost:3306)/ember_dating?parseTime=true")
	assert.True(t, cfg.Auth.CookieSecure)
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("DAILY_SWIPE_LIMIT", "25")
	t.Setenv("MESSAGE_EDIT_WINDOW", "5m")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("COOKIE_SECURE", "off")
	t.Setenv("MYSQL_DSN", "u:p@tcp(db:3306)/x")

	cfg := New()

	assert.Equal(t, 25, cfg.Limits.DailySwipes)
	assert.Equal(t, 5*time.Minute, cfg.Limits.MessageEditWindow)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.False(t, cfg.Auth.CookieSecure)
	assert.Equal(t, "u:p@tcp(db:3306)/x", cfg.DB.DSN)
}

func TestEnvHelpers_IgnoreGarbage(t *testing.T) {
	t.Setenv("X_INT", "ten")
	t.Setenv("X_DUR", "soon")

	assert.Equal(t, 3, getEnvInt("X_INT", 3))
	assert.Equal(t, time.Second, getEnvDuration("X_DUR", time.Second))
	assert.True(t, isTruthy(" YES "))
	assert.False(t, isTruthy("maybe"))
}
