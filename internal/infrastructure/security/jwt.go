package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

// JWTIssuer mints HS256 bearer tokens. A ttl of zero issues tokens without
// an exp claim.
type JWTIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTIssuer(secret string, issuer string, ttl time.Duration) *JWTIssuer {
	if ttl < 0 {
		ttl = 0
	}
	return &JWTIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

type accessClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

func (s *JWTIssuer) Issue(userID string) (auth.Token, error) {
	if userID == "" {
		return auth.Token{}, domain.ErrTokenSignFailed(errors.New("empty user id"))
	}

	now := s.now()
	claims := accessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.issuer,
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
			// jti keeps two tokens minted in the same second distinct
			ID: uuid.NewString(),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return auth.Token{}, domain.ErrTokenSignFailed(err)
	}
	return auth.Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.ttl.Seconds()),
	}, nil
}

func (s *JWTIssuer) Verify(token string) (auth.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (any, error) {
		// prevent alg confusion
		if t.Method != jwt.SigningMethodHS256 {
			return nil, domain.ErrTokenInvalid()
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return auth.TokenClaims{}, domain.ErrTokenExpired()
		}
		return auth.TokenClaims{}, domain.ErrTokenInvalid()
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid || claims.UserID == "" || claims.UserID != claims.Subject {
		return auth.TokenClaims{}, domain.ErrTokenInvalid()
	}

	exp := time.Time{}
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	return auth.TokenClaims{
		UserID: claims.UserID,
		Exp:    exp,
	}, nil
}
