package auth

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/validation"
)

// VerifyOTP consumes the pending code, marks the user verified and issues a token.
func (s *Service) VerifyOTP(ctx context.Context, in VerifyOTPInput) (SessionResult, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if fields := withOTPShape(validation.Fields(in), in.OTPMalformed); fields != nil {
		return SessionResult{}, domain.ErrValidation(fields)
	}
	code := *in.OTP

	updated, err := s.consumeOTP(ctx, in.Email, code, func(u *domain.User) {
		u.Verified = true
	})
	if err != nil {
		return SessionResult{}, err
	}

	tok, err := s.issueToken(updated.ID)
	if err != nil {
		return SessionResult{}, err
	}

	s.audit(ctx, "email_verified", map[string]string{
		"user_id": updated.ID,
		"email":   updated.Email,
	})

	return SessionResult{
		Message: "Email verified successfully.",
		User:    updated,
		Token:   tok,
	}, nil
}

// consumeOTP atomically checks that (email, code) is the outstanding pair,
// applies mutate and clears the code. Any mismatch, including a code consumed
// by a concurrent request, is reported as domain.ErrOTPMismatch.
func (s *Service) consumeOTP(ctx context.Context, email string, code int, mutate func(u *domain.User)) (domain.User, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := s.users.GetByEmailAndOTP(sctx, email, code)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return domain.User{}, domain.ErrOTPMismatch()
		}
		return domain.User{}, storeErr(err)
	}

	now := s.now().UTC()
	updated, err := s.users.Update(sctx, u.ID, func(cur *domain.User) error {
		if cur.Email != email || !cur.HasPendingOTP(code, now, s.otpTTL) {
			return domain.ErrOTPMismatch()
		}
		mutate(cur)
		cur.ClearPendingOTP()
		cur.UpdatedAt = now
		return nil
	})
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return domain.User{}, domain.ErrOTPMismatch()
		}
		return domain.User{}, storeErr(err)
	}
	return updated, nil
}

// issueOTP stores a fresh code for the user and delivers it.
func (s *Service) issueOTP(ctx context.Context, u domain.User, purpose OTPPurpose) error {
	code, err := s.newCode()
	if err != nil {
		return err
	}

	now := s.now().UTC()
	sctx, cancel := s.storeCtx(ctx)
	updated, err := s.users.Update(sctx, u.ID, func(cur *domain.User) error {
		cur.SetPendingOTP(code, now)
		cur.UpdatedAt = now
		return nil
	})
	cancel()
	if err != nil {
		return storeErr(err)
	}

	return s.notify(ctx, OTPMessage{
		UserID:  updated.ID,
		Email:   updated.Email,
		Name:    updated.Name,
		Code:    code,
		Purpose: purpose,
	})
}
