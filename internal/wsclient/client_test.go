// SPDX-License-Identifier: MIT

package wsclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/censord/internal/dataset"
)

// stubServer speaks the server side of the protocol: it completes the AUTH
// handshake and acknowledges whitelist requests.
type stubServer struct {
	t        *testing.T
	clientID string
	serverID string

	mu       sync.Mutex
	conn     *websocket.Conn
	requests []Message
}

func newStubServer(t *testing.T) (*stubServer, string) {
	s := &stubServer{t: t, clientID: "client-1", serverID: "server-1"}
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		var auth Message
		require.NoError(t, conn.ReadJSON(&auth))
		require.Equal(t, FunctionAuth, auth.Function)
		require.NoError(t, conn.WriteJSON(Message{ID: auth.ID, Response: ResponseAuthSuccess}))

		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			s.mu.Lock()
			s.requests = append(s.requests, msg)
			s.mu.Unlock()
			if msg.Function == FunctionWhitelistRequest {
				_ = conn.WriteJSON(Message{ID: msg.ID, Timestamp: msg.Timestamp, Response: ResponseComplete})
			}
		}
	}))
	t.Cleanup(srv.Close)

	return s, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (s *stubServer) push(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

func newTestDatasets(t *testing.T) *dataset.Store {
	t.Helper()
	p := dataset.NewPaths(t.TempDir())
	require.NoError(t, dataset.EnsureFiles(p))
	for name, value := range map[string]any{
		dataset.FileBlacklist:      []string{},
		dataset.FileDictionary:     []string{},
		dataset.FileRandomPrefixes: []string{},
		dataset.FileRandomSuffixes: []string{},
	} {
		require.NoError(t, dataset.WriteJSON(p.RemoteFile(name), value))
	}
	store, err := dataset.NewStore(p)
	require.NoError(t, err)
	return store
}

func startClient(t *testing.T, url string, datasets *dataset.Store, announce func(context.Context, string)) *Client {
	t.Helper()
	c := New(Config{
		URL:         url,
		ClientID:    "client-1",
		ServerID:    "server-1",
		ChannelName: "somechannel",
	}, datasets, announce)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond, "client never connected")
	return c
}

func TestWhitelistRequestRoundTrip(t *testing.T) {
	server, url := newStubServer(t)
	c := startClient(t, url, newTestDatasets(t), nil)

	err := c.WhitelistRequest(context.Background(), []string{"foo", "bar"}, "foo bar", "alice", false)
	require.NoError(t, err)

	server.mu.Lock()
	defer server.mu.Unlock()
	require.Len(t, server.requests, 1)
	req := server.requests[0]
	assert.Equal(t, "client-1", req.ID)
	assert.True(t, strings.HasPrefix(req.Timestamp, "msg_"))

	var data requestData
	require.NoError(t, json.Unmarshal(req.Data, &data))
	assert.Equal(t, []string{"foo", "bar"}, data.Requests)
	assert.Equal(t, "alice", data.Username)
	assert.Equal(t, "somechannel", data.ChannelName)
	assert.False(t, data.IsUsernameReq)
}

func TestWhitelistUpdatePush(t *testing.T) {
	server, url := newStubServer(t)
	datasets := newTestDatasets(t)

	var mu sync.Mutex
	var announced []string
	announce := func(_ context.Context, msg string) {
		mu.Lock()
		announced = append(announced, msg)
		mu.Unlock()
	}
	startClient(t, url, datasets, announce)

	data, err := json.Marshal(map[string]any{"word": "fresh", "is_username": false})
	require.NoError(t, err)
	require.NoError(t, server.push(Message{ID: "server-1", Response: ResponseWhitelistUpdate, Data: data}))

	require.Eventually(t, func() bool {
		return datasets.OverlayContains("fresh")
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, announced, 1)
	assert.Contains(t, announced[0], `"fresh"`)
	assert.Contains(t, announced[0], "added to the whitelist")
}

func TestWhitelistUpdateRejectsWrongServerID(t *testing.T) {
	server, url := newStubServer(t)
	datasets := newTestDatasets(t)
	startClient(t, url, datasets, nil)

	data, err := json.Marshal(map[string]any{"word": "evil", "is_username": false})
	require.NoError(t, err)
	require.NoError(t, server.push(Message{ID: "imposter", Response: ResponseWhitelistUpdate, Data: data}))

	// Give the client time to (not) apply it.
	time.Sleep(200 * time.Millisecond)
	assert.False(t, datasets.OverlayContains("evil"))
}

func TestUsernameUpdatePush(t *testing.T) {
	server, url := newStubServer(t)
	datasets := newTestDatasets(t)
	startClient(t, url, datasets, nil)

	data, err := json.Marshal(map[string]any{"word": "newuser", "is_username": true})
	require.NoError(t, err)
	require.NoError(t, server.push(Message{ID: "server-1", Response: ResponseWhitelistUpdate, Data: data}))

	require.Eventually(t, func() bool {
		return datasets.OverlayContains("newuser")
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, datasets.OverlaySizes()[dataset.OverlayUsernames])
}

func TestUsernameRequestTimesOutWithoutConnection(t *testing.T) {
	c := New(Config{
		URL:      "ws://127.0.0.1:1/ws",
		ClientID: "client-1",
		ServerID: "server-1",
	}, newTestDatasets(t), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// Username requests give up; the short ctx keeps the test fast either way.
	err := c.WhitelistRequest(ctx, []string{"alice"}, "hi", "alice", true)
	require.Error(t, err)
}
