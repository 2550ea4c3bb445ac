package auth

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/validation"
)

// ForgotPassword issues a fresh code to an existing user.
// Unlike login this flow reports unknown emails (404).
func (s *Service) ForgotPassword(ctx context.Context, in ForgotPasswordInput) (MessageResult, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if fields := validation.Fields(in); fields != nil {
		return MessageResult{}, domain.ErrValidation(fields)
	}

	sctx, cancel := s.storeCtx(ctx)
	u, err := s.users.GetByEmail(sctx, in.Email)
	cancel()
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return MessageResult{}, domain.ErrEmailNotFound()
		}
		return MessageResult{}, storeErr(err)
	}

	if err := s.issueOTP(ctx, u, PurposePasswordReset); err != nil {
		return MessageResult{}, err
	}

	s.audit(ctx, "password_reset_requested", map[string]string{
		"user_id": u.ID,
		"email":   u.Email,
	})
	return MessageResult{Message: "OTP sent to email " + u.Email}, nil
}

// ResetPassword consumes the pending code and replaces the credential in the
// same atomic update.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) (MessageResult, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if fields := withOTPShape(validation.Fields(in), in.OTPMalformed); fields != nil {
		return MessageResult{}, domain.ErrValidation(fields)
	}

	// Hash outside the store update so the per-user critical section stays short.
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return MessageResult{}, hashErr(err)
	}

	updated, err := s.consumeOTP(ctx, in.Email, *in.OTP, func(u *domain.User) {
		u.PasswordHash = hash
	})
	if err != nil {
		return MessageResult{}, err
	}

	s.audit(ctx, "password_reset", map[string]string{"user_id": updated.ID})
	return MessageResult{Message: "Password reset successfully."}, nil
}

// ChangePassword replaces the credential of an authenticated caller.
func (s *Service) ChangePassword(ctx context.Context, id Identity, in ChangePasswordInput) (MessageResult, error) {
	if id.UserID == "" {
		return MessageResult{}, domain.ErrTokenMissing()
	}
	if fields := validation.Fields(in); fields != nil {
		return MessageResult{}, domain.ErrValidation(fields)
	}

	sctx, cancel := s.storeCtx(ctx)
	u, err := s.users.GetByID(sctx, id.UserID)
	cancel()
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return MessageResult{}, domain.ErrTokenInvalid()
		}
		return MessageResult{}, storeErr(err)
	}

	if err := s.hasher.Compare(u.PasswordHash, in.CurrentPassword); err != nil {
		return MessageResult{}, domain.ErrCurrentPasswordIncorrect()
	}

	newHash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return MessageResult{}, hashErr(err)
	}

	now := s.now().UTC()
	sctx, cancel = s.storeCtx(ctx)
	defer cancel()
	_, err = s.users.Update(sctx, u.ID, func(cur *domain.User) error {
		// the checked credential must still be the stored one
		if cur.PasswordHash != u.PasswordHash {
			return domain.ErrCurrentPasswordIncorrect()
		}
		cur.PasswordHash = newHash
		cur.UpdatedAt = now
		return nil
	})
	if err != nil {
		return MessageResult{}, storeErr(err)
	}

	s.audit(ctx, "password_changed", map[string]string{"user_id": u.ID})
	return MessageResult{Message: "Password changed successfully."}, nil
}
