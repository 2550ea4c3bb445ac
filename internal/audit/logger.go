package audit

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	pkgctx "github.com/baechuer/real-time-ressys/services/identity-service/internal/pkg/context"
)

// Logger provides structured audit logging for identity business events
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

var messages = map[string]string{
	"register":                 "User registered",
	"login":                    "User logged in successfully",
	"email_verified":           "Email verified",
	"password_reset_requested": "Password reset requested",
	"password_reset":           "Password reset",
	"password_changed":         "User password changed",
	"profile_changed":          "User profile changed",
}

// Record writes one audit line tagged with the request id carried by ctx.
// Emails are masked before they reach the log.
func (l *Logger) Record(ctx context.Context, action string, fields map[string]string) {
	evt := l.log.Info().Str("action", action)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		if k == "email" {
			v = maskEmail(v)
		}
		evt = evt.Str(k, v)
	}
	if rid := pkgctx.RequestID(ctx); rid != "" {
		evt = evt.Str("request_id", rid)
	}

	msg, ok := messages[action]
	if !ok {
		msg = "audit"
	}
	evt.Msg(msg)
}

// maskEmail partially masks email for privacy in logs
func maskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	// Show first 2 chars and domain
	at := 0
	for i, c := range email {
		if c == '@' {
			at = i
			break
		}
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
