package auth

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/validation"
)

// Login authenticates a verified user and issues a token.
// IMPORTANT: must not leak whether the email exists (avoid user enumeration).
func (s *Service) Login(ctx context.Context, in LoginInput) (SessionResult, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if fields := validation.Fields(in); fields != nil {
		return SessionResult{}, domain.ErrValidation(fields)
	}

	sctx, cancel := s.storeCtx(ctx)
	u, err := s.users.GetByEmail(sctx, in.Email)
	cancel()
	if err != nil {
		if domain.Is(err, "user_not_found") {
			// Hide not-found behind invalid credentials
			return SessionResult{}, domain.ErrInvalidCredentials()
		}
		return SessionResult{}, storeErr(err)
	}

	if err := s.hasher.Compare(u.PasswordHash, in.Password); err != nil {
		return SessionResult{}, domain.ErrInvalidCredentials()
	}

	// credentials first, then verification state
	if !u.Verified {
		return SessionResult{}, domain.ErrEmailNotVerified()
	}

	tok, err := s.issueToken(u.ID)
	if err != nil {
		return SessionResult{}, err
	}

	s.audit(ctx, "login", map[string]string{"user_id": u.ID})
	return SessionResult{User: u, Token: tok}, nil
}
