package auth

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-service/internal/validation"
)

// ChangeProfile applies only the supplied fields of in to the caller's record.
func (s *Service) ChangeProfile(ctx context.Context, id Identity, in ChangeProfileInput) (ProfileResult, error) {
	if id.UserID == "" {
		return ProfileResult{}, domain.ErrTokenMissing()
	}
	in.normalize()

	fields := validation.Fields(in)
	if _, bad := fields["email"]; in.Email != nil && !bad {
		taken, err := s.emailTaken(ctx, *in.Email, id.UserID)
		if err != nil {
			return ProfileResult{}, err
		}
		if taken {
			if fields == nil {
				fields = map[string]string{}
			}
			fields["email"] = domain.ErrEmailTaken().Meta["email"]
		}
	}
	if fields != nil {
		return ProfileResult{}, domain.ErrValidation(fields)
	}

	now := s.now().UTC()
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	updated, err := s.users.Update(sctx, id.UserID, func(u *domain.User) error {
		if in.Name != nil {
			u.Name = *in.Name
		}
		if in.Email != nil {
			u.Email = *in.Email
		}
		if in.Location != nil {
			u.Location = blankToNil(in.Location)
		}
		if in.Phone != nil {
			u.Phone = blankToNil(in.Phone)
		}
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		switch {
		case domain.Is(err, "email_already_exists"):
			return ProfileResult{}, domain.ErrEmailTaken()
		case domain.Is(err, "user_not_found"):
			return ProfileResult{}, domain.ErrTokenInvalid()
		}
		return ProfileResult{}, storeErr(err)
	}

	s.audit(ctx, "profile_changed", map[string]string{"user_id": updated.ID})
	return ProfileResult{
		Message: "Profile updated successfully.",
		User:    updated,
	}, nil
}
