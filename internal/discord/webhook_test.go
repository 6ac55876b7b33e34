// SPDX-License-Identifier: MIT

package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu       sync.Mutex
	payloads []webhookPayload
}

func (c *capture) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		c.mu.Lock()
		c.payloads = append(c.payloads, p)
		c.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func newTestClient(url string) *Client {
	return New(Config{
		WordWhitelistURL:     url + "/word",
		UsernameWhitelistURL: url + "/user",
		BlacklistAlertURL:    url + "/alert",
		AlertUserID:          "42",
		TwitchChannel:        "somechannel",
	})
}

func TestWordWhitelistRequest(t *testing.T) {
	var got capture
	srv := httptest.NewServer(got.handler(t))
	defer srv.Close()
	c := newTestClient(srv.URL)

	err := c.WhitelistRequest(context.Background(), []string{"foo", "bar"}, "foo bar baz", "alice", false)
	require.NoError(t, err)

	require.Len(t, got.payloads, 3, "header plus one message per word")

	header := got.payloads[0]
	assert.Equal(t, "Word Whitelist Request", header.Username)
	assert.Contains(t, header.Content, "Whitelist Request from alice")
	assert.Contains(t, header.Content, "```foo bar baz```")
	assert.Contains(t, header.Content, "https://twitch.tv/popout/somechannel/viewercard/alice")

	assert.Equal(t, "!whitelist foo", got.payloads[1].Content)
	assert.Equal(t, "!whitelist bar", got.payloads[2].Content)
}

func TestManyWordsCollapseIntoOneMessage(t *testing.T) {
	var got capture
	srv := httptest.NewServer(got.handler(t))
	defer srv.Close()
	c := newTestClient(srv.URL)

	words := []string{"a", "b", "c", "d"}
	err := c.WhitelistRequest(context.Background(), words, "msg", "alice", false)
	require.NoError(t, err)

	require.Len(t, got.payloads, 2, "header plus a single collapsed message")
	lines := strings.Split(got.payloads[1].Content, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "!whitelist a", lines[0])
	assert.Equal(t, "!whitelist d", lines[3])
}

func TestUsernameWhitelistRequest(t *testing.T) {
	var got capture
	srv := httptest.NewServer(got.handler(t))
	defer srv.Close()
	c := newTestClient(srv.URL)

	err := c.WhitelistRequest(context.Background(), []string{"alice"}, "hi", "alice", true)
	require.NoError(t, err)

	require.Len(t, got.payloads, 2)
	assert.Equal(t, "User Whitelist Request", got.payloads[0].Username)
	assert.Contains(t, got.payloads[0].Content, "__Username Request__")
	assert.Equal(t, "!userwhitelist alice", got.payloads[1].Content)
}

func TestBlacklistAlert(t *testing.T) {
	var got capture
	srv := httptest.NewServer(got.handler(t))
	defer srv.Close()
	c := newTestClient(srv.URL)

	err := c.BlacklistAlert(context.Background(), "Bob", "a slur here", []string{"slur"})
	require.NoError(t, err)

	require.Len(t, got.payloads, 1)
	content := got.payloads[0].Content
	assert.Contains(t, content, "<@42>")
	assert.Contains(t, content, "[BLACKLIST ALERT]")
	assert.Contains(t, content, "User: `Bob`")
	assert.Contains(t, content, "Blacklisted Words: `slur`")
	assert.Contains(t, content, "viewercard/bob", "viewercard link is lowercased")
}

func TestWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()
	c := newTestClient(srv.URL)

	err := c.WhitelistRequest(context.Background(), []string{"foo"}, "msg", "alice", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestMissingWebhookConfigured(t *testing.T) {
	c := New(Config{TwitchChannel: "somechannel"})

	err := c.WhitelistRequest(context.Background(), []string{"foo"}, "msg", "alice", false)
	assert.ErrorContains(t, err, "no webhook configured")

	err = c.BlacklistAlert(context.Background(), "alice", "msg", []string{"x"})
	assert.ErrorContains(t, err, "no blacklist alert webhook")
}
