// SPDX-License-Identifier: MIT

// Package config loads and validates the daemon configuration from the
// process environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ManuGH/censord/internal/log"
)

// Environment variable names documented in .env.default. These form the
// operator-facing configuration surface of the censor client.
const (
	EnvWebhookWordWhitelist     = "DISCORD_WEBHOOK_WORD_WHITELIST_CHANNEL"
	EnvWebhookUsernameWhitelist = "DISCORD_WEBHOOK_USERNAME_WHITELIST_CHANNEL"
	EnvWebhookBlacklistAlert    = "DISCORD_WEBHOOK_BLACKLIST_ALERT_CHANNEL"
	EnvBlacklistAlertUserID     = "DISCORD_BLACKLIST_ALERT_USER_ID"
	EnvTwitchChannel            = "TWITCH_CHAT_CHANNEL"
	EnvTwitchToken              = "TWITCH_BOT_TOKEN"
	EnvWSClientID               = "WS_CLIENT_ID"
	EnvWSServerID               = "WS_SERVER_ID"
	EnvWSServerURL              = "WS_SERVER_URL"
	EnvSFTPHost                 = "SFTP_HOST"
	EnvSFTPUser                 = "SFTP_USER"
	EnvSFTPPassword             = "SFTP_PASSWORD"
)

// AppConfig holds the full runtime configuration of the daemon.
type AppConfig struct {
	// Discord
	WebhookWordWhitelist     string
	WebhookUsernameWhitelist string
	WebhookBlacklistAlert    string
	BlacklistAlertUserID     string

	// Twitch
	TwitchChannel     string
	TwitchToken       string
	TwitchBotUsername string

	// Central server link
	WSClientID  string
	WSServerID  string
	WSServerURL string

	// SFTP dataset master
	SFTPHost       string
	SFTPUser       string
	SFTPPassword   string
	SFTPRemoteRoot string

	// Daemon
	ListenAddr     string
	DataDir        string
	LogLevel       string
	LogService     string
	SyncInterval   time.Duration
	MetricsEnabled bool
	MetricsAddr    string
	RateLimitRPM   int
	Version        string
}

// Load reads configuration with precedence ENV > .env file > defaults.
// envFile may be empty; a missing file is not an error (matches the
// dotenv behaviour the deployment docs describe).
func Load(envFile, version string) (AppConfig, error) {
	logger := log.WithComponent("config")
	if envFile != "" {
		// godotenv never overrides variables already present in the
		// process environment.
		if err := godotenv.Load(envFile); err == nil {
			logger.Info().
				Str("event", "config.dotenv_loaded").
				Str("path", envFile).
				Msg("loaded .env file")
		} else {
			logger.Debug().
				Str("path", envFile).
				Msg("no .env file loaded")
		}
	}

	cfg := AppConfig{
		WebhookWordWhitelist:     ParseString(EnvWebhookWordWhitelist, ""),
		WebhookUsernameWhitelist: ParseString(EnvWebhookUsernameWhitelist, ""),
		WebhookBlacklistAlert:    ParseString(EnvWebhookBlacklistAlert, ""),
		BlacklistAlertUserID:     ParseString(EnvBlacklistAlertUserID, ""),

		TwitchChannel: ParseString(EnvTwitchChannel, ""),
		TwitchToken:   ParseString(EnvTwitchToken, ""),
		// The IRC login must match the token's account. Empty means the
		// channel owner is the bot.
		TwitchBotUsername: ParseString("CENSORD_TWITCH_BOT_USERNAME", ""),

		WSClientID:  ParseString(EnvWSClientID, ""),
		WSServerID:  ParseString(EnvWSServerID, ""),
		WSServerURL: ParseString(EnvWSServerURL, ""),

		SFTPHost:       ParseString(EnvSFTPHost, ""),
		SFTPUser:       ParseString(EnvSFTPUser, ""),
		SFTPPassword:   ParseString(EnvSFTPPassword, ""),
		SFTPRemoteRoot: ParseString("CENSORD_SFTP_REMOTE_ROOT", "remote_data"),

		ListenAddr:     ParseString("CENSORD_LISTEN", ":8086"),
		DataDir:        ParseString("CENSORD_DATA", "./data"),
		LogLevel:       ParseString("CENSORD_LOG_LEVEL", "info"),
		LogService:     ParseString("CENSORD_LOG_SERVICE", "censord"),
		SyncInterval:   ParseDuration("CENSORD_SYNC_INTERVAL", time.Minute),
		MetricsEnabled: ParseBool("CENSORD_METRICS_ENABLED", true),
		MetricsAddr:    ParseString("CENSORD_METRICS_ADDR", ""),
		RateLimitRPM:   ParseInt("CENSORD_RATE_LIMIT_RPM", 600),
		Version:        version,
	}

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// WSEnabled reports whether the central server link is configured.
func (c AppConfig) WSEnabled() bool {
	return c.WSServerURL != ""
}

// SFTPEnabled reports whether the dataset mirror is configured.
func (c AppConfig) SFTPEnabled() bool {
	return c.SFTPHost != ""
}

// WebhooksEnabled reports whether direct Discord whitelist requests are configured.
func (c AppConfig) WebhooksEnabled() bool {
	return c.WebhookWordWhitelist != "" && c.WebhookUsernameWhitelist != ""
}

// Validate enforces the invariants of the documented configuration surface.
// It fails fast naming the offending key so a bad .env is caught at startup.
func (c AppConfig) Validate() error {
	if c.TwitchChannel == "" {
		return fmt.Errorf("%s must be set", EnvTwitchChannel)
	}
	if c.TwitchToken == "" {
		return fmt.Errorf("%s must be set", EnvTwitchToken)
	}

	// The WS triple is all-or-none: a partially configured link would
	// connect and then fail every ID check.
	wsSet := 0
	for _, v := range []string{c.WSClientID, c.WSServerID, c.WSServerURL} {
		if v != "" {
			wsSet++
		}
	}
	if wsSet != 0 && wsSet != 3 {
		return fmt.Errorf("%s, %s and %s must be set together", EnvWSClientID, EnvWSServerID, EnvWSServerURL)
	}
	if c.WSServerURL != "" {
		u, err := url.Parse(c.WSServerURL)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvWSServerURL, err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("%s must use ws:// or wss:// (got %q)", EnvWSServerURL, u.Scheme)
		}
	}

	// Same for the SFTP triple.
	sftpSet := 0
	for _, v := range []string{c.SFTPHost, c.SFTPUser, c.SFTPPassword} {
		if v != "" {
			sftpSet++
		}
	}
	if sftpSet != 0 && sftpSet != 3 {
		return fmt.Errorf("%s, %s and %s must be set together", EnvSFTPHost, EnvSFTPUser, EnvSFTPPassword)
	}

	// Without the central server link, whitelist requests fall back to the
	// Discord webhooks, so one of the two paths must exist.
	if !c.WSEnabled() && !c.WebhooksEnabled() {
		return fmt.Errorf("either the WS link (%s) or both whitelist webhooks (%s, %s) must be configured",
			EnvWSServerURL, EnvWebhookWordWhitelist, EnvWebhookUsernameWhitelist)
	}

	for _, wh := range []struct {
		key string
		val string
	}{
		{EnvWebhookWordWhitelist, c.WebhookWordWhitelist},
		{EnvWebhookUsernameWhitelist, c.WebhookUsernameWhitelist},
		{EnvWebhookBlacklistAlert, c.WebhookBlacklistAlert},
	} {
		if wh.val == "" {
			continue
		}
		u, err := url.Parse(wh.val)
		if err != nil || u.Scheme != "https" || !strings.Contains(u.Host, "discord") {
			return fmt.Errorf("%s must be an https Discord webhook URL", wh.key)
		}
	}

	return nil
}

// KnownKeys returns the documented environment variable names, i.e. the
// exact set an operator is expected to provide via .env. Used to keep
// .env.default and the code from drifting apart.
func KnownKeys() []string {
	return []string{
		EnvWebhookWordWhitelist,
		EnvWebhookUsernameWhitelist,
		EnvWebhookBlacklistAlert,
		EnvBlacklistAlertUserID,
		EnvTwitchChannel,
		EnvTwitchToken,
		EnvWSClientID,
		EnvWSServerID,
		EnvWSServerURL,
		EnvSFTPHost,
		EnvSFTPUser,
		EnvSFTPPassword,
	}
}
