// SPDX-License-Identifier: MIT

// Package requests routes whitelist requests to the central server link,
// falling back to Discord webhooks when the link is unavailable.
package requests

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/censord/internal/log"
	"github.com/ManuGH/censord/internal/metrics"
)

// defaultPrimaryTimeout bounds how long a request waits on the server link
// before the webhook fallback takes over. Long enough for one reconnect
// cycle plus the reply window.
const defaultPrimaryTimeout = 20 * time.Second

// Sender is one transport for whitelist requests.
type Sender interface {
	WhitelistRequest(ctx context.Context, words []string, message, username string, isUsernameReq bool) error
}

// Router tries Primary first and falls back to Fallback. Either may be nil;
// at least one must be set for requests to succeed.
type Router struct {
	Primary  Sender // central server link
	Fallback Sender // webhook

	// PrimaryTimeout caps the Primary attempt when a Fallback exists, so a
	// down link cannot stall the request forever while a working transport
	// sits idle. Zero means defaultPrimaryTimeout. Without a Fallback the
	// Primary keeps the caller's full deadline.
	PrimaryTimeout time.Duration
}

func (r *Router) WhitelistRequest(ctx context.Context, words []string, message, username string, isUsernameReq bool) error {
	kind := "word"
	if isUsernameReq {
		kind = "username"
	}
	logger := log.WithComponentFromContext(ctx, "requests")

	var primaryErr error
	if r.Primary != nil {
		pctx := ctx
		if r.Fallback != nil {
			timeout := r.PrimaryTimeout
			if timeout <= 0 {
				timeout = defaultPrimaryTimeout
			}
			var cancel context.CancelFunc
			pctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		primaryErr = r.Primary.WhitelistRequest(pctx, words, message, username, isUsernameReq)
		if primaryErr == nil {
			metrics.IncWhitelistRequest(kind, "ws", "success")
			return nil
		}
		metrics.IncWhitelistRequest(kind, "ws", "failure")
		logger.Warn().Err(primaryErr).
			Str(log.FieldKind, kind).
			Str(log.FieldWords, strings.Join(words, ",")).
			Msg("server link request failed")
	}

	if r.Fallback != nil {
		if err := r.Fallback.WhitelistRequest(ctx, words, message, username, isUsernameReq); err != nil {
			metrics.IncWhitelistRequest(kind, "webhook", "failure")
			if primaryErr != nil {
				return fmt.Errorf("webhook fallback: %w (after server link: %v)", err, primaryErr)
			}
			return fmt.Errorf("webhook request: %w", err)
		}
		metrics.IncWhitelistRequest(kind, "webhook", "success")
		return nil
	}

	if primaryErr != nil {
		return primaryErr
	}
	return fmt.Errorf("no whitelist request transport configured")
}
