package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/auth"
)

// LogNotifier writes codes to the log instead of mailing them.
// Meant for local development only.
type LogNotifier struct {
	log zerolog.Logger

	mu   sync.Mutex
	sent []auth.OTPMessage
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendOTP(ctx context.Context, msg auth.OTPMessage) error {
	n.mu.Lock()
	n.sent = append(n.sent, msg)
	n.mu.Unlock()

	n.log.Info().
		Str("user_id", msg.UserID).
		Str("email", msg.Email).
		Str("purpose", string(msg.Purpose)).
		Int("otp", msg.Code).
		Msg("[log-notifier] one-time code")
	return nil
}

// Last returns the most recent message sent to email.
func (n *LogNotifier) Last(email string) (auth.OTPMessage, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].Email == email {
			return n.sent[i], true
		}
	}
	return auth.OTPMessage{}, false
}
