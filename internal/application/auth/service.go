package auth

import (
	"context"
	"errors"
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

type Service struct {
	users    UserStore
	hasher   PasswordHasher
	otps     OTPGenerator
	tokens   TokenIssuer
	notifier Notifier

	otpTTL        time.Duration
	storeTimeout  time.Duration
	notifyTimeout time.Duration

	now   func() time.Time
	audit func(ctx context.Context, action string, fields map[string]string)
}

type Config struct {
	// OTPTTL bounds how long a pending code stays valid. Zero disables expiry.
	OTPTTL        time.Duration
	StoreTimeout  time.Duration
	NotifyTimeout time.Duration
}

func NewService(
	users UserStore,
	hasher PasswordHasher,
	otps OTPGenerator,
	tokens TokenIssuer,
	notifier Notifier,
	cfg Config,
) *Service {
	storeTimeout := cfg.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = 3 * time.Second
	}
	notifyTimeout := cfg.NotifyTimeout
	if notifyTimeout <= 0 {
		notifyTimeout = 5 * time.Second
	}
	return &Service{
		users:    users,
		hasher:   hasher,
		otps:     otps,
		tokens:   tokens,
		notifier: notifier,

		otpTTL:        cfg.OTPTTL,
		storeTimeout:  storeTimeout,
		notifyTimeout: notifyTimeout,

		now:   time.Now,
		audit: func(context.Context, string, map[string]string) {},
	}
}

// WithAudit installs a hook called after each successful state change.
func (s *Service) WithAudit(fn func(ctx context.Context, action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// MessageResult is the outcome of operations that only report a message.
type MessageResult struct {
	Message string
}

type RegisterResult struct {
	Message string
	User    domain.User
}

// SessionResult is returned by operations that mint a bearer token.
type SessionResult struct {
	Message string
	User    domain.User
	Token   Token
}

type ProfileResult struct {
	Message string
	User    domain.User
}

// GetUser returns the current record for an authenticated caller.
func (s *Service) GetUser(ctx context.Context, id Identity) (domain.User, error) {
	if id.UserID == "" {
		return domain.User{}, domain.ErrTokenInvalid()
	}
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return domain.User{}, domain.ErrTokenInvalid()
		}
		return domain.User{}, storeErr(err)
	}
	return u, nil
}

// storeCtx bounds a single store call.
func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// notify delivers a code within the notifier timeout.
func (s *Service) notify(ctx context.Context, msg OTPMessage) error {
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()

	if err := s.notifier.SendOTP(ctx, msg); err != nil {
		return domain.ErrNotifierUnavailable(err)
	}
	return nil
}

func (s *Service) newCode() (int, error) {
	code, err := s.otps.Generate()
	if err != nil {
		return 0, domain.ErrRandomFailed(err)
	}
	return code, nil
}

func (s *Service) issueToken(userID string) (Token, error) {
	tok, err := s.tokens.Issue(userID)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return Token{}, de
		}
		return Token{}, domain.ErrTokenSignFailed(err)
	}
	return tok, nil
}

// hashErr keeps a hasher's own domain error so its cause is wrapped once.
func hashErr(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	return domain.ErrHashFailed(err)
}

// storeErr keeps domain errors and turns anything else into an infrastructure error.
func storeErr(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	return domain.ErrDBUnavailable(err)
}
