package auth

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

/*
UserStore
---------
Persistence port for users.
Only describes WHAT the auth service needs, not HOW it's stored.

Stores must enforce email uniqueness on Create and Update and report a
violation as domain.ErrEmailAlreadyExists.
*/
type UserStore interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByEmailAndOTP(ctx context.Context, email string, code int) (domain.User, error)

	// Update loads the user, applies fn and persists the result as one atomic
	// step for that user. If fn returns an error nothing is written and the
	// error is returned unchanged.
	Update(ctx context.Context, id string, fn func(u *domain.User) error) (domain.User, error)
}

/*
PasswordHasher
--------------
Abstracts bcrypt.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

/*
OTPGenerator
------------
Produces the numeric one-time code mailed to the user.
*/
type OTPGenerator interface {
	Generate() (int, error)
}

/*
TokenIssuer
-----------
Issues and verifies bearer tokens.
Used by service + auth middleware.
*/
type Token struct {
	AccessToken string
	TokenType   string // "Bearer"
	ExpiresIn   int64  // seconds, 0 when the token does not expire
}

type TokenClaims struct {
	UserID string
	Exp    time.Time // zero when the token does not expire
}

type TokenIssuer interface {
	Issue(userID string) (Token, error)
	Verify(token string) (TokenClaims, error)
}

/*
Notifier
--------
Delivers a one-time code to an address.
*/
type OTPPurpose string

const (
	PurposeVerifyEmail   OTPPurpose = "verify_email"
	PurposePasswordReset OTPPurpose = "password_reset"
)

type OTPMessage struct {
	UserID  string
	Email   string
	Name    string
	Code    int
	Purpose OTPPurpose
}

type Notifier interface {
	SendOTP(ctx context.Context, msg OTPMessage) error
}

// Identity is the caller resolved from a bearer token by the transport layer.
type Identity struct {
	UserID string
}
