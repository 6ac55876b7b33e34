// SPDX-License-Identifier: MIT

// Package wsclient keeps a persistent connection to the central whitelist
// server: it forwards whitelist requests and receives approval pushes.
package wsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ManuGH/censord/internal/dataset"
	"github.com/ManuGH/censord/internal/log"
	"github.com/ManuGH/censord/internal/metrics"
)

// Protocol function and response names.
const (
	FunctionAuth             = "AUTH"
	FunctionWhitelistRequest = "WHITELIST_REQUEST"

	ResponseComplete        = "COMPLETE"
	ResponseAuthSuccess     = "AUTH_SUCCESS"
	ResponseWhitelistUpdate = "WHITELIST_UPDATE"
)

const (
	reconnectDelay = 5 * time.Second
	replyTimeout   = 10 * time.Second

	// Username requests give up after a few liveness checks so the state
	// machine can mark them failed and retry on the user's next message.
	// Word requests have no such fallback and wait for the connection.
	usernameLiveAttempts = 3
)

// Message is the wire format in both directions.
type Message struct {
	ID        string          `json:"id,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Function  string          `json:"function,omitempty"`
	Response  string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type requestData struct {
	Requests      []string `json:"requests"`
	Message       string   `json:"message"`
	Username      string   `json:"username"`
	IsUsernameReq bool     `json:"is_username_req"`
	ChannelName   string   `json:"channel_name"`
}

type updateData struct {
	Word       *string `json:"word"`
	IsUsername *bool   `json:"is_username"`
}

// Config identifies this client to the server.
type Config struct {
	URL         string
	ClientID    string
	ServerID    string
	ChannelName string
}

// Client is the connection manager. Run keeps the connection alive;
// WhitelistRequest can be called from any goroutine.
type Client struct {
	cfg      Config
	datasets *dataset.Store
	announce func(ctx context.Context, message string) // may be nil

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan Message

	// The websocket package allows one concurrent writer per connection.
	writeMu sync.Mutex
}

func (c *Client) writeJSON(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func New(cfg Config, datasets *dataset.Store, announce func(ctx context.Context, message string)) *Client {
	return &Client{
		cfg:      cfg,
		datasets: datasets,
		announce: announce,
		pending:  make(map[string]chan Message),
	}
}

// Connected reports whether the connection is currently live.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Run connects, authenticates and reads pushes until ctx is cancelled,
// reconnecting after a delay on any failure.
func (c *Client) Run(ctx context.Context) error {
	logger := log.WithComponent("wsclient")
	for {
		if err := c.connectAndServe(ctx); err != nil {
			logger.Warn().Err(err).Str(log.FieldURL, c.cfg.URL).Msg("connection lost")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Client) connectAndServe(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, replyTimeout)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.cfg.URL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := c.authenticate(conn); err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	metrics.SetWSConnected(true)
	connLogger := log.WithComponent("wsclient")
	connLogger.Info().
		Str(log.FieldURL, c.cfg.URL).
		Str(log.FieldClientID, c.cfg.ClientID).
		Msg("connected and authenticated")

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		metrics.SetWSConnected(false)
	}()

	// Unblock ReadMessage when the caller shuts down.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	return c.readLoop(ctx, conn)
}

func (c *Client) authenticate(conn *websocket.Conn) error {
	if err := conn.WriteJSON(Message{ID: c.cfg.ClientID, Function: FunctionAuth}); err != nil {
		return err
	}

	var reply Message
	_ = conn.SetReadDeadline(time.Now().Add(replyTimeout))
	err := conn.ReadJSON(&reply)
	_ = conn.SetReadDeadline(time.Time{})
	if err != nil {
		return err
	}

	if reply.ID != c.cfg.ClientID {
		return fmt.Errorf("client ID mismatch (found %q, expected %q)", reply.ID, c.cfg.ClientID)
	}
	if reply.Response != ResponseAuthSuccess {
		return fmt.Errorf("unexpected response %q, expected %q", reply.Response, ResponseAuthSuccess)
	}
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	logger := log.WithComponent("wsclient")
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			// A malformed frame is the server's problem, not a reason to
			// drop the connection.
			logger.Warn().Err(err).Msg("skipping malformed frame")
			continue
		}

		if msg.Response == ResponseWhitelistUpdate {
			if err := c.applyUpdate(ctx, msg); err != nil {
				metrics.IncWSPush("rejected")
				logger.Warn().Err(err).Msg("whitelist update rejected")
			}
			continue
		}

		c.deliver(msg)
	}
}

// applyUpdate validates a server push and layers the approved entry into the
// dataset overlay.
func (c *Client) applyUpdate(ctx context.Context, msg Message) error {
	if msg.ID != c.cfg.ServerID {
		return fmt.Errorf("server ID mismatch (found %q, expected %q)", msg.ID, c.cfg.ServerID)
	}

	var data updateData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return fmt.Errorf("malformed update data: %w", err)
	}
	if data.Word == nil {
		return fmt.Errorf("malformed update data, word missing")
	}
	if data.IsUsername == nil {
		return fmt.Errorf("malformed update data, is_username missing")
	}

	index := dataset.OverlayCustom
	if *data.IsUsername {
		index = dataset.OverlayUsernames
	}
	if err := c.datasets.AddOverlay(index, *data.Word); err != nil {
		return err
	}
	metrics.IncWSPush("applied")
	pushLogger := log.WithComponent("wsclient")
	pushLogger.Info().
		Str(log.FieldWords, *data.Word).
		Str(log.FieldKind, index).
		Msg("whitelist updated from push")

	if c.announce != nil {
		if *data.IsUsername {
			c.announce(ctx, fmt.Sprintf("[The username %q has been approved.]", *data.Word))
		} else {
			c.announce(ctx, fmt.Sprintf("[The word %q has been added to the whitelist.]", *data.Word))
		}
	}
	return nil
}

func (c *Client) deliver(msg Message) {
	if msg.Timestamp == "" {
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[msg.Timestamp]
	if ok {
		delete(c.pending, msg.Timestamp)
	}
	c.mu.Unlock()
	if ok {
		ch <- msg
	}
}
