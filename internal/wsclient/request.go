// SPDX-License-Identifier: MIT

package wsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ManuGH/censord/internal/log"
)

// WhitelistRequest sends the words (or username) to the central server and
// waits for the COMPLETE acknowledgement. Word requests wait for the
// connection for as long as ctx allows; username requests give up after a few
// attempts so the caller can record the failure and retry later.
func (c *Client) WhitelistRequest(ctx context.Context, words []string, message, username string, isUsernameReq bool) error {
	maxAttempts := 0
	if isUsernameReq {
		maxAttempts = usernameLiveAttempts
	}
	conn, err := c.waitUntilLive(ctx, maxAttempts)
	if err != nil {
		return err
	}

	correlationID := "msg_" + uuid.NewString()
	data, err := json.Marshal(requestData{
		Requests:      words,
		Message:       message,
		Username:      username,
		IsUsernameReq: isUsernameReq,
		ChannelName:   c.cfg.ChannelName,
	})
	if err != nil {
		return err
	}

	reply := make(chan Message, 1)
	c.mu.Lock()
	c.pending[correlationID] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, correlationID)
		c.mu.Unlock()
	}()

	out := Message{
		ID:        c.cfg.ClientID,
		Timestamp: correlationID,
		Function:  FunctionWhitelistRequest,
		Data:      data,
	}
	if err := c.writeJSON(conn, out); err != nil {
		return fmt.Errorf("send whitelist request: %w", err)
	}
	logger := log.WithComponentFromContext(ctx, "wsclient")
	logger.Info().
		Str(log.FieldWords, strings.Join(words, ",")).
		Str(log.FieldUsername, username).
		Bool("is_username_req", isUsernameReq).
		Msg("whitelist request sent")

	select {
	case msg := <-reply:
		if msg.ID != c.cfg.ClientID {
			return fmt.Errorf("response client ID mismatch (found %q, expected %q)", msg.ID, c.cfg.ClientID)
		}
		if msg.Response != ResponseComplete {
			return fmt.Errorf("unexpected response %q, expected %q", msg.Response, ResponseComplete)
		}
		return nil
	case <-time.After(replyTimeout):
		return fmt.Errorf("timed out waiting for reply to %s", correlationID)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitUntilLive blocks until the connection is up. maxAttempts of zero waits
// for as long as ctx allows.
func (c *Client) waitUntilLive(ctx context.Context, maxAttempts int) (*websocket.Conn, error) {
	attempts := 0
	for {
		c.mu.Lock()
		live := c.conn
		c.mu.Unlock()
		if live != nil {
			return live, nil
		}

		attempts++
		if maxAttempts > 0 && attempts > maxAttempts {
			return nil, fmt.Errorf("timed out waiting for connection")
		}
		waitLogger := log.WithComponentFromContext(ctx, "wsclient")
		waitLogger.Debug().Msg("waiting for connection")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}
