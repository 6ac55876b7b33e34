// SPDX-License-Identifier: MIT

package censor

// Result describes everything the caller needs to act on a processed
// message.
//   - Username: processed display name to use (real, nickname, or temp).
//   - Message: processed message to use.
//   - BotReplies: replies the bot should send to the user.
//   - SendUsersMessage: when false, the message must not be shown at all.
type Result struct {
	Username         string   `json:"username"`
	Message          string   `json:"message"`
	BotReplies       []string `json:"bot_reply_message"`
	SendUsersMessage bool     `json:"send_users_message"`
}

// Verdict labels for metrics and audit.
const (
	VerdictTrusted     = "trusted"
	VerdictClean       = "clean"
	VerdictCensored    = "censored"
	VerdictBlacklisted = "blacklisted"
)
