// SPDX-License-Identifier: MIT

// Package twitch maintains the chat connection used to announce whitelist
// approvals back into the channel.
package twitch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	irc "github.com/gempir/go-twitch-irc/v4"
	"golang.org/x/time/rate"

	"github.com/ManuGH/censord/internal/log"
	"github.com/ManuGH/censord/internal/metrics"
)

// Bot is a single-channel chat bot. Announcements are rate limited so a
// burst of approvals does not trip Twitch's message limits.
type Bot struct {
	channel string
	login   string
	client  *irc.Client
	limiter *rate.Limiter

	mu        sync.RWMutex
	connected bool
}

// New builds a bot for the given channel. login is the bot account's name and
// must match the account the token was issued for; when empty the channel
// name is used, for the self-hosted case where the broadcaster is the bot.
// token is the OAuth token, with or without the "oauth:" prefix.
func New(channel, login, token string) *Bot {
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}
	if login == "" {
		login = channel
	}
	b := &Bot{
		channel: strings.ToLower(channel),
		login:   strings.ToLower(login),
		client:  irc.NewClient(strings.ToLower(login), token),
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}

	b.client.OnConnect(func() {
		b.mu.Lock()
		b.connected = true
		b.mu.Unlock()
		logger := log.WithComponent("twitch")
		logger.Info().Str(log.FieldChannel, b.channel).Msg("connected to chat")
		b.client.Say(b.channel, "[Censor Service Connected.]")
	})
	b.client.Join(b.channel)
	return b
}

// Run connects and blocks until ctx is cancelled or the connection fails
// permanently.
func (b *Bot) Run(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- b.client.Connect() }()

	select {
	case <-ctx.Done():
		_ = b.client.Disconnect()
		<-done
		return ctx.Err()
	case err := <-done:
		b.mu.Lock()
		b.connected = false
		b.mu.Unlock()
		if err != nil {
			return fmt.Errorf("twitch connection: %w", err)
		}
		return nil
	}
}

// Connected reports whether the chat connection is up.
func (b *Bot) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

// Announce sends message to the channel, waiting on the rate limiter first.
// Send failures are logged, not returned; announcements are best effort.
func (b *Bot) Announce(ctx context.Context, message string) {
	logger := log.WithComponentFromContext(ctx, "twitch")
	if err := b.limiter.Wait(ctx); err != nil {
		metrics.IncTwitchSend("dropped")
		logger.Warn().Err(err).Msg("announcement dropped")
		return
	}
	if !b.Connected() {
		metrics.IncTwitchSend("dropped")
		logger.Warn().Str(log.FieldChannel, b.channel).Msg("announcement dropped, not connected")
		return
	}
	b.client.Say(b.channel, message)
	metrics.IncTwitchSend("success")
	logger.Debug().Str(log.FieldChannel, b.channel).Msg("announcement sent")
}
