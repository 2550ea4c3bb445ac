package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/validation"
)

// Register creates an unverified user holding a fresh code and mails the code.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	in.normalize()

	fields := validation.Fields(in)
	if _, bad := fields["email"]; !bad {
		taken, err := s.emailTaken(ctx, in.Email, "")
		if err != nil {
			return RegisterResult{}, err
		}
		if taken {
			if fields == nil {
				fields = map[string]string{}
			}
			fields["email"] = domain.ErrEmailTaken().Meta["email"]
		}
	}
	if fields != nil {
		return RegisterResult{}, domain.ErrValidation(fields)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return RegisterResult{}, hashErr(err)
	}

	code, err := s.newCode()
	if err != nil {
		return RegisterResult{}, err
	}

	now := s.now().UTC()
	u := domain.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Location:     blankToNil(in.Location),
		Phone:        blankToNil(in.Phone),
		Verified:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.SetPendingOTP(code, now)

	sctx, cancel := s.storeCtx(ctx)
	created, err := s.users.Create(sctx, u)
	cancel()
	if err != nil {
		if domain.Is(err, "email_already_exists") {
			// lost a race with a concurrent registration
			return RegisterResult{}, domain.ErrEmailTaken()
		}
		return RegisterResult{}, storeErr(err)
	}

	if err := s.notify(ctx, OTPMessage{
		UserID:  created.ID,
		Email:   created.Email,
		Name:    created.Name,
		Code:    code,
		Purpose: PurposeVerifyEmail,
	}); err != nil {
		return RegisterResult{}, err
	}

	s.audit(ctx, "register", map[string]string{
		"user_id": created.ID,
		"email":   created.Email,
	})

	return RegisterResult{
		Message: "OTP sent to email " + created.Email,
		User:    created,
	}, nil
}

// emailTaken reports whether email belongs to a user other than selfID.
func (s *Service) emailTaken(ctx context.Context, email, selfID string) (bool, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return false, nil
		}
		return false, storeErr(err)
	}
	return u.ID != selfID, nil
}
