// SPDX-License-Identifier: MIT

// Package audit records every censor decision for later review: who said
// what, what verdict was reached, and which words triggered it.
package audit

import (
	"context"
	"strings"
	"time"

	"github.com/ManuGH/censord/internal/log"
)

// Decision is one processed message.
type Decision struct {
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Verdict   string    `json:"verdict"` // trusted|clean|censored|blacklisted
	Words     []string  `json:"words,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// Recorder persists decisions.
type Recorder interface {
	Record(ctx context.Context, d Decision) error
	Close() error
}

// LogRecorder writes decisions to the structured log only. Used when the
// sqlite store cannot be opened, so auditing degrades instead of failing.
type LogRecorder struct{}

func (LogRecorder) Record(ctx context.Context, d Decision) error {
	logDecision(ctx, d)
	return nil
}

func (LogRecorder) Close() error { return nil }

func logDecision(ctx context.Context, d Decision) {
	logger := log.WithComponentFromContext(ctx, "audit")
	logger.Info().
		Str("log_type", "audit").
		Str(log.FieldUsername, d.Username).
		Str(log.FieldVerdict, d.Verdict).
		Str(log.FieldWords, strings.Join(d.Words, ",")).
		Msg("censor decision")
}
