package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration (file + env overrides)
type Config struct {
	Server struct {
		Addr      string `mapstructure:"addr"`
		LogLevel  string `mapstructure:"log_level"`
		LogFormat string `mapstructure:"log_format"`
	} `mapstructure:"server"`

	Builds struct {
		APIBaseURL          string `mapstructure:"api_base_url"`
		AssetBaseURL        string `mapstructure:"asset_base_url"`
		PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
		TickTimeoutSeconds  int    `mapstructure:"tick_timeout_seconds"`
		RequestTimeoutSecs  int    `mapstructure:"request_timeout_seconds"`
	} `mapstructure:"builds"`

	Extract struct {
		ScriptIndex int    `mapstructure:"script_index"`
		SkipModules int    `mapstructure:"skip_modules"`
		MarkerKey   string `mapstructure:"marker_key"`
	} `mapstructure:"extract"`

	Discord struct {
		Token             string `mapstructure:"token"`
		ChannelID         string `mapstructure:"channel_id"`
		GlobalEnvRoleID   string `mapstructure:"global_env_role_id"`
		StringsRoleID     string `mapstructure:"strings_role_id"`
		ExperimentsRoleID string `mapstructure:"experiments_role_id"`
		CSSRoleID         string `mapstructure:"css_role_id"`
		BatchSize         int    `mapstructure:"batch_size"`
		DryRun            bool   `mapstructure:"dry_run"`
	} `mapstructure:"discord"`

	// Postgres is optional. Without a host the last build hash lives in memory.
	Postgres struct {
		Host         string `mapstructure:"host"`
		Port         int    `mapstructure:"port"`
		User         string `mapstructure:"user"`
		Password     string `mapstructure:"password"`
		DBName       string `mapstructure:"db_name"`
		SSLMode      string `mapstructure:"ssl_mode"`
		MaxOpenConns int    `mapstructure:"max_open_conns"`
		MaxIdleConns int    `mapstructure:"max_idle_conns"`
	} `mapstructure:"postgres"`
}

var defaults = map[string]any{
	"server.addr":                    ":8080",
	"server.log_level":               "info",
	"server.log_format":              "console",
	"builds.api_base_url":            "https://builds.discord.sale/api",
	"builds.asset_base_url":          "https://canary.discord.com/assets",
	"builds.poll_interval_seconds":   5,
	"builds.tick_timeout_seconds":    120,
	"builds.request_timeout_seconds": 30,
	"extract.script_index":           3,
	"extract.skip_modules":           1000,
	"extract.marker_key":             "INTERACTION_REQUIRED_TITLE",
	"discord.token":                  "",
	"discord.channel_id":             "",
	"discord.global_env_role_id":     "",
	"discord.strings_role_id":        "",
	"discord.experiments_role_id":    "",
	"discord.css_role_id":            "",
	"discord.batch_size":             10,
	"discord.dry_run":                false,
	"postgres.host":                  "",
	"postgres.port":                  5432,
	"postgres.user":                  "",
	"postgres.password":              "",
	"postgres.db_name":               "",
	"postgres.ssl_mode":              "disable",
	"postgres.max_open_conns":        4,
	"postgres.max_idle_conns":        1,
}

// Load reads configs/application.yaml if present, then APP_* environment
// variables (APP_DISCORD_TOKEN overrides discord.token).
func Load() (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	_ = v.ReadInConfig() // optional; env can fully configure

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to decode config: %w", err)
	}
	return cfg, validate(&cfg)
}

func validate(c *Config) error {
	if c.Builds.PollIntervalSeconds <= 0 {
		c.Builds.PollIntervalSeconds = 5
	}
	if c.Discord.BatchSize <= 0 || c.Discord.BatchSize > 10 {
		c.Discord.BatchSize = 10
	}
	if c.Builds.APIBaseURL == "" || c.Builds.AssetBaseURL == "" {
		return errors.New("builds.api_base_url and builds.asset_base_url are required")
	}
	if !c.Discord.DryRun && (c.Discord.Token == "" || c.Discord.ChannelID == "") {
		return errors.New("discord.token and discord.channel_id are required unless discord.dry_run is set")
	}
	return nil
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.DBName,
		c.Postgres.SSLMode,
	)
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Builds.PollIntervalSeconds) * time.Second
}

func (c Config) TickTimeout() time.Duration {
	return time.Duration(c.Builds.TickTimeoutSeconds) * time.Second
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Builds.RequestTimeoutSecs) * time.Second
}
