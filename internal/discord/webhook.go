// SPDX-License-Identifier: MIT

// Package discord posts whitelist requests and blacklist alerts to Discord
// webhook channels.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/censord/internal/log"
)

// maxInlineCommands is the largest request that still gets one webhook
// message per command; bigger batches collapse into a single message.
const maxInlineCommands = 3

// Config holds the webhook URLs and context for message formatting.
type Config struct {
	WordWhitelistURL     string
	UsernameWhitelistURL string
	BlacklistAlertURL    string
	AlertUserID          string // optional, "" pings nobody
	TwitchChannel        string
}

// Client posts to the configured webhooks.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

type webhookPayload struct {
	Content  string `json:"content"`
	Username string `json:"username"`
}

func (c *Client) post(ctx context.Context, url string, payload webhookPayload) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", res.StatusCode)
	}
	return nil
}

func (c *Client) viewercardURL(username string) string {
	return fmt.Sprintf("https://twitch.tv/popout/%s/viewercard/%s", c.cfg.TwitchChannel, strings.ToLower(username))
}

// WhitelistRequest posts a request header followed by ready-to-run
// moderation commands, one per word (collapsed into a single message when
// there are more than maxInlineCommands).
func (c *Client) WhitelistRequest(ctx context.Context, words []string, message, username string, isUsernameReq bool) error {
	url := c.cfg.WordWhitelistURL
	command := "!whitelist"
	webhookUsername := "Word Whitelist Request"
	title := fmt.Sprintf("__Whitelist Request from %s__", username)
	if isUsernameReq {
		url = c.cfg.UsernameWhitelistURL
		command = "!userwhitelist"
		webhookUsername = "User Whitelist Request"
		title = fmt.Sprintf("__Username Request__\n**%s**", username)
	}
	if url == "" {
		return fmt.Errorf("no webhook configured for %s requests", kindLabel(isUsernameReq))
	}

	header := fmt.Sprintf(
		"** **\n** **\n%s\n```%s```\n<%s>\n<https://twitch.tv/%s>\n** **",
		title, message, c.viewercardURL(username), c.cfg.TwitchChannel,
	)
	if err := c.post(ctx, url, webhookPayload{Content: header, Username: webhookUsername}); err != nil {
		return fmt.Errorf("whitelist request header: %w", err)
	}

	logger := log.WithComponentFromContext(ctx, "discord")
	logger.Info().
		Str("event", "whitelist.header_sent").
		Str(log.FieldKind, kindLabel(isUsernameReq)).
		Str(log.FieldUsername, username).
		Msg("whitelist request header sent")

	commands := make([]string, 0, len(words))
	for _, word := range words {
		commands = append(commands, command+" "+word)
	}
	if len(commands) > maxInlineCommands {
		commands = []string{strings.Join(commands, "\n")}
	}

	for _, content := range commands {
		if err := c.post(ctx, url, webhookPayload{Content: content, Username: webhookUsername}); err != nil {
			return fmt.Errorf("whitelist request command: %w", err)
		}
		logger.Info().
			Str("event", "whitelist.command_sent").
			Str("command", content).
			Msg("whitelist request command sent")
	}

	return nil
}

// BlacklistAlert notifies the alert channel that a user tried to send
// blacklisted words, pinging the configured user if any.
func (c *Client) BlacklistAlert(ctx context.Context, username, message string, words []string) error {
	if c.cfg.BlacklistAlertURL == "" {
		return fmt.Errorf("no blacklist alert webhook configured")
	}

	var b strings.Builder
	if c.cfg.AlertUserID != "" {
		fmt.Fprintf(&b, "<@%s>\n", c.cfg.AlertUserID)
	}
	fmt.Fprintf(&b, "[BLACKLIST ALERT]\nUser: `%s`\nMessage: %s\nBlacklisted Words: `%s`\n<%s>",
		username, message, strings.Join(words, ", "), c.viewercardURL(username))

	if err := c.post(ctx, c.cfg.BlacklistAlertURL, webhookPayload{Content: b.String(), Username: "Blacklist Alert"}); err != nil {
		return fmt.Errorf("blacklist alert: %w", err)
	}
	return nil
}

func kindLabel(isUsernameReq bool) string {
	if isUsernameReq {
		return "username"
	}
	return "word"
}
