// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldUsername  = "username"
	FieldChannel   = "channel"
	FieldClientID  = "client_id"
	FieldServerID  = "server_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Censor fields
	FieldVerdict = "verdict"
	FieldWords   = "words"
	FieldKind    = "kind"

	// Path / URL fields
	FieldPath = "path"
	FieldURL  = "url"
)
