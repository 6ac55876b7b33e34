// SPDX-License-Identifier: MIT

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/censord/internal/config"
)

func TestWebhookClientWiring(t *testing.T) {
	const url = "https://discord.com/api/webhooks/1/x"

	t.Run("nothing configured", func(t *testing.T) {
		client, fallback, alerts := webhookClient(config.AppConfig{})
		assert.Nil(t, client)
		assert.False(t, fallback)
		assert.False(t, alerts)
	})

	t.Run("alert channel only", func(t *testing.T) {
		// A WS-linked deployment with just the blacklist alert webhook
		// still has to post alerts.
		client, fallback, alerts := webhookClient(config.AppConfig{
			WebhookBlacklistAlert: url,
		})
		assert.NotNil(t, client)
		assert.False(t, fallback)
		assert.True(t, alerts)
	})

	t.Run("whitelist pair only", func(t *testing.T) {
		client, fallback, alerts := webhookClient(config.AppConfig{
			WebhookWordWhitelist:     url,
			WebhookUsernameWhitelist: url,
		})
		assert.NotNil(t, client)
		assert.True(t, fallback)
		assert.False(t, alerts)
	})

	t.Run("all channels", func(t *testing.T) {
		client, fallback, alerts := webhookClient(config.AppConfig{
			WebhookWordWhitelist:     url,
			WebhookUsernameWhitelist: url,
			WebhookBlacklistAlert:    url,
		})
		assert.NotNil(t, client)
		assert.True(t, fallback)
		assert.True(t, alerts)
	})
}
