// SPDX-License-Identifier: MIT

package censor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/censord/internal/audit"
	"github.com/ManuGH/censord/internal/dataset"
	"github.com/ManuGH/censord/internal/log"
	"github.com/ManuGH/censord/internal/metrics"
	"github.com/ManuGH/censord/internal/state"
)

// Requester forwards censored words or unapproved usernames for approval.
type Requester interface {
	WhitelistRequest(ctx context.Context, words []string, message, username string, isUsernameReq bool) error
}

// Alerter notifies moderators about blacklisted messages.
type Alerter interface {
	BlacklistAlert(ctx context.Context, username, message string, words []string) error
}

// Service ties the censor engine to the dataset store, the username request
// state machine, whitelist requests and the audit trail.
type Service struct {
	Datasets *dataset.Store
	State    *state.Store
	Audit    audit.Recorder
	Requests Requester // may be nil when no request path is configured
	Alerts   Alerter   // may be nil
}

// Process runs the full decision flow for one chat message and returns the
// censored result to display.
func (s *Service) Process(ctx context.Context, username, message string) (Result, error) {
	snap := s.Datasets.Snapshot()
	lists := Lists{Snap: snap, Overlay: s.Datasets.OverlayContains}
	logger := log.WithComponentFromContext(ctx, "censor")

	nickname := snap.Nickname(username)
	if snap.Trusted(username) {
		s.record(ctx, username, message, VerdictTrusted, nil)
		return Result{
			Username:         displayName(nickname, username),
			Message:          message,
			BotReplies:       []string{},
			SendUsersMessage: true,
		}, nil
	}

	displayed := displayName(nickname, username)
	replies := []string{}

	if nickname == "" && !UsernameWhitelisted(lists, username) {
		displayed = TempUsername(snap, username)
		metrics.IncTempUsername()

		initial, err := s.State.Advance(username, func() error {
			return s.requestWhitelist(ctx, []string{strings.ToLower(username)}, message, username, true)
		})
		if err != nil {
			logger.Error().Err(err).Str(log.FieldUsername, username).Msg("username request state update failed")
		}
		if initial == state.StatusNotOnRecord {
			replies = append(replies, fmt.Sprintf(
				"[Assigning random username '%s'. Your real username '%s' is pending approval.]",
				displayed, username,
			))
		}
	}

	if blacklisted := BlacklistedWords(snap, message); len(blacklisted) > 0 {
		replies = append(replies, fmt.Sprintf(
			"[You've attempted to send a message with blacklisted words (%s).]",
			strings.Join(blacklisted, ", "),
		))
		if s.Alerts != nil {
			if err := s.Alerts.BlacklistAlert(ctx, username, message, blacklisted); err != nil {
				logger.Error().Err(err).Str(log.FieldUsername, username).Msg("blacklist alert failed")
			}
		}
		s.record(ctx, username, message, VerdictBlacklisted, blacklisted)
		return Result{
			Username:         displayed,
			Message:          message,
			BotReplies:       replies,
			SendUsersMessage: false,
		}, nil
	}

	censoredWords, censored := Censor(lists, message)

	verdict := VerdictClean
	if len(censoredWords) > 0 {
		verdict = VerdictCensored
		metrics.AddCensoredWords(len(censoredWords))
		replies = append(replies, fmt.Sprintf(
			"[Some words you used are not in the whitelist for new users and have been sent for approval (%s)]",
			strings.Join(censoredWords, ", "),
		))
		if err := s.requestWhitelist(ctx, censoredWords, message, username, false); err != nil {
			logger.Error().Err(err).
				Str(log.FieldUsername, username).
				Str(log.FieldWords, strings.Join(censoredWords, ",")).
				Msg("word whitelist request failed")
		}
	}

	s.record(ctx, username, message, verdict, censoredWords)
	return Result{
		Username:         displayed,
		Message:          censored,
		BotReplies:       replies,
		SendUsersMessage: true,
	}, nil
}

func (s *Service) requestWhitelist(ctx context.Context, words []string, message, username string, isUsernameReq bool) error {
	if s.Requests == nil {
		return fmt.Errorf("no whitelist request path configured")
	}
	return s.Requests.WhitelistRequest(ctx, words, message, username, isUsernameReq)
}

func (s *Service) record(ctx context.Context, username, message, verdict string, words []string) {
	metrics.IncDecision(verdict)
	err := s.Audit.Record(ctx, audit.Decision{
		Timestamp: time.Now(),
		Username:  username,
		Message:   message,
		Verdict:   verdict,
		Words:     words,
		RequestID: log.RequestIDFromContext(ctx),
	})
	if err != nil {
		logger := log.WithComponentFromContext(ctx, "censor")
		logger.Error().Err(err).Msg("audit record failed")
	}
}

func displayName(nickname, username string) string {
	if nickname != "" {
		return nickname
	}
	return username
}
