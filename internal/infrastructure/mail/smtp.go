package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/auth"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Insecure bool
	Timeout  time.Duration

	// OTPTTL is only used to tell the recipient how long the code is valid.
	OTPTTL time.Duration
}

// SMTPNotifier mails one-time codes directly.
type SMTPNotifier struct {
	lg  zerolog.Logger
	cfg SMTPConfig

	// dial is swapped in tests.
	dial func(ctx context.Context, m *gomail.Msg) error
}

func NewSMTPNotifier(cfg SMTPConfig, lg zerolog.Logger) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP_HOST is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP_FROM is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	n := &SMTPNotifier{
		lg:  lg.With().Str("component", "smtp_notifier").Logger(),
		cfg: cfg,
	}
	n.dial = n.dialAndSend
	return n, nil
}

func (n *SMTPNotifier) SendOTP(ctx context.Context, msg auth.OTPMessage) error {
	r, err := renderOTP(msg, n.cfg.OTPTTL)
	if err != nil {
		return err
	}

	m := gomail.NewMsg()
	if err := m.From(n.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.Email); err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}
	m.Subject(r.Subject)
	// Text fallback + HTML alternative
	m.SetBodyString(gomail.TypeTextPlain, r.Text)
	m.AddAlternativeString(gomail.TypeTextHTML, r.HTML)

	if n.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.Timeout)
		defer cancel()
	}

	if err := n.dial(ctx, m); err != nil {
		n.lg.Error().Err(err).Str("purpose", string(msg.Purpose)).Msg("smtp send failed")
		return fmt.Errorf("smtp send: %w", err)
	}
	n.lg.Info().Str("user_id", msg.UserID).Str("purpose", string(msg.Purpose)).Msg("smtp send ok")
	return nil
}

func (n *SMTPNotifier) dialAndSend(ctx context.Context, m *gomail.Msg) error {
	tlsPolicy := gomail.TLSMandatory
	if n.cfg.Insecure {
		tlsPolicy = gomail.TLSOpportunistic
	}

	opts := []gomail.Option{
		gomail.WithPort(n.cfg.Port),
		gomail.WithTLSPolicy(tlsPolicy),
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(n.cfg.Username),
			gomail.WithPassword(n.cfg.Password),
		)
	}

	c, err := gomail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client init: %w", err)
	}
	return c.DialAndSendWithContext(ctx, m)
}
