package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	port         string
	databasePath string
	location     *time.Location

	discordAppToken string
	discordGuildID  string
	discordClientId string

	confirmationSweepInterval time.Duration
	reconcileInterval         time.Duration
	metricCollectionInterval  time.Duration
	notifyTimeout             time.Duration
}

func NewConfig() *Config {
	durationEnv := func(key string, fallback string) time.Duration {
		value := os.Getenv(key)
		if value == "" {
			value = fallback
		}
		duration, err := time.ParseDuration(value)
		if err != nil || duration < 0 {
			slog.Error("invalid duration", "env", key, "value", value, "error", err)
			os.Exit(1)
		}
		slog.Debug("env", key, value, "duration", duration)
		return duration
	}

	c := &Config{
		port: func() string {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			slog.Debug("env", "PORT", port)
			return port
		}(),
		databasePath: func() string {
			databasePath := os.Getenv("DATABASE_PATH")
			if databasePath == "" {
				databasePath = "./sqlite.db"
			}
			slog.Debug("env", "DATABASE_PATH", databasePath)
			return filepath.Clean(databasePath)
		}(),
		location: func() *time.Location {
			timezoneStr := os.Getenv("TIMEZONE")
			var loc *time.Location
			var err error
			switch timezoneStr {
			case "":
				slog.Warn("TIMEZONE is not set, using local timezone", "timezone", time.Local)
				loc = time.Local
			case "UTC":
				loc = time.UTC
			default:
				loc, err = time.LoadLocation(timezoneStr)
				if err != nil {
					slog.Error("invalid timezone", "timezone", timezoneStr, "error", err)
					os.Exit(1)
				}
			}
			slog.Debug("env", "TIMEZONE", timezoneStr)
			return loc
		}(),

		discordAppToken: func() string {
			discordAppToken := os.Getenv("DISCORD_APP_TOKEN")
			if discordAppToken == "" {
				slog.Warn("DISCORD_APP_TOKEN is not set, Discord is disabled and notifications are only logged")
				return ""
			}
			if len(discordAppToken) > 3 {
				slog.Debug("env", "DISCORD_APP_TOKEN", discordAppToken[0:3]+"...")
			}
			return discordAppToken
		}(),

		confirmationSweepInterval: durationEnv("CONFIRMATION_SWEEP_INTERVAL", "15m"),
		reconcileInterval:         durationEnv("RECONCILE_INTERVAL", "1h"),
		metricCollectionInterval:  durationEnv("METRIC_COLLECTION_INTERVAL", "5s"),
		notifyTimeout:             durationEnv("NOTIFY_TIMEOUT", "10s"),
	}

	// only needed to register slash commands
	if c.discordAppToken != "" {
		c.discordGuildID = func() string {
			discordGuildID := os.Getenv("DISCORD_GUILD_ID")
			if discordGuildID == "" {
				slog.Error("DISCORD_GUILD_ID is not set")
				os.Exit(1)
			}
			slog.Debug("env", "DISCORD_GUILD_ID", discordGuildID)
			return discordGuildID
		}()
		c.discordClientId = func() string {
			discordClientId := os.Getenv("DISCORD_CLIENT_ID")
			if discordClientId == "" {
				slog.Error("DISCORD_CLIENT_ID is not set")
				os.Exit(1)
			}
			slog.Debug("env", "DISCORD_CLIENT_ID", discordClientId)
			return discordClientId
		}()
	}
	if c.metricCollectionInterval == 0 {
		slog.Error("METRIC_COLLECTION_INTERVAL must be positive")
		os.Exit(1)
	}

	return c
}

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get DATABASE_PATH env, default to ./sqlite.db
func (c *Config) GetDatabasePath() string {
	return c.databasePath
}

// Get TIMEZONE env
func (c *Config) GetLocation() *time.Location {
	return c.location
}

// Get DISCORD_APP_TOKEN env, blank when Discord is disabled
func (c *Config) GetDiscordAppToken() string {
	return c.discordAppToken
}

// Get DISCORD_GUILD_ID env
func (c *Config) GetDiscordGuildID() string {
	return c.discordGuildID
}

// Get DISCORD_CLIENT_ID env
func (c *Config) GetDiscordClientId() string {
	return c.discordClientId
}

// Get CONFIRMATION_SWEEP_INTERVAL env, 0 disables the in-process sweep
func (c *Config) GetConfirmationSweepInterval() time.Duration {
	return c.confirmationSweepInterval
}

// Get RECONCILE_INTERVAL env, 0 disables the in-process reconcile loop
func (c *Config) GetReconcileInterval() time.Duration {
	return c.reconcileInterval
}

// Get METRIC_COLLECTION_INTERVAL env
func (c *Config) GetMetricCollectionInterval() time.Duration {
	return c.metricCollectionInterval
}

// Get NOTIFY_TIMEOUT env
func (c *Config) GetNotifyTimeout() time.Duration {
	return c.notifyTimeout
}
