package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_DISCORD_DRY_RUN", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Extract.ScriptIndex)
	assert.Equal(t, 1000, cfg.Extract.SkipModules)
	assert.Equal(t, "INTERACTION_REQUIRED_TITLE", cfg.Extract.MarkerKey)
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.Equal(t, 10, cfg.Discord.BatchSize)
	assert.Empty(t, cfg.Postgres.Host)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_DISCORD_TOKEN", "tok")
	t.Setenv("APP_DISCORD_CHANNEL_ID", "123")
	t.Setenv("APP_BUILDS_POLL_INTERVAL_SECONDS", "30")
	t.Setenv("APP_EXTRACT_SKIP_MODULES", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", cfg.Discord.Token)
	assert.Equal(t, "123", cfg.Discord.ChannelID)
	assert.Equal(t, 30*time.Second, cfg.PollInterval())
	assert.Equal(t, 0, cfg.Extract.SkipModules)
}

func TestLoad_RequiresDiscordCredentials(t *testing.T) {
	t.Setenv("APP_DISCORD_TOKEN", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	var c Config
	c.Postgres.User, c.Postgres.Password, c.Postgres.Host = "u", "p", "db"
	c.Postgres.Port, c.Postgres.DBName, c.Postgres.SSLMode = 5432, "watch", "disable"
	assert.Equal(t, "postgres://u:p@db:5432/watch?sslmode=disable", c.DSN())
}
