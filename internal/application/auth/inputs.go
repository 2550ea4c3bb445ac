package auth

import (
	"strings"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

// Input types carry their own validation rules. JSON names are used in
// field errors, so they match the request bodies one to one.

type RegisterInput struct {
	Name                 string  `json:"name" validate:"required,max=255"`
	Email                string  `json:"email" validate:"required,email,max=255"`
	Password             string  `json:"password" validate:"required,min=8,maxbytes=72"`
	PasswordConfirmation string  `json:"password_confirmation" validate:"required,eqfield=Password"`
	Location             *string `json:"location" validate:"omitnil,max=255"`
	Phone                *string `json:"phone_number" validate:"omitnil,max=20"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// OTPMalformed marks a code that arrived in a non-numeric shape. It is
// reported next to any other field errors.
type VerifyOTPInput struct {
	Email        string `json:"email" validate:"required,email,max=255"`
	OTP          *int   `json:"otp" validate:"required"`
	OTPMalformed bool   `json:"-" validate:"-"`
}

type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type ResetPasswordInput struct {
	Email                string `json:"email" validate:"required,email,max=255"`
	OTP                  *int   `json:"otp" validate:"required"`
	OTPMalformed         bool   `json:"-" validate:"-"`
	Password             string `json:"password" validate:"required,min=8,maxbytes=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type ChangePasswordInput struct {
	CurrentPassword         string `json:"current_password" validate:"required"`
	NewPassword             string `json:"new_password" validate:"required,min=8,maxbytes=72"`
	NewPasswordConfirmation string `json:"new_password_confirmation" validate:"required,eqfield=NewPassword"`
}

// ChangeProfileInput uses nil for "not supplied".
type ChangeProfileInput struct {
	Name     *string `json:"name" validate:"omitnil,min=1,max=255"`
	Email    *string `json:"email" validate:"omitnil,email,max=255"`
	Location *string `json:"location" validate:"omitnil,max=255"`
	Phone    *string `json:"phone_number" validate:"omitnil,max=20"`
}

func (in *RegisterInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = domain.NormalizeEmail(in.Email)
	in.Location = trimOptional(in.Location)
	in.Phone = trimOptional(in.Phone)
}

func (in *ChangeProfileInput) normalize() {
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		in.Name = &n
	}
	if in.Email != nil {
		e := domain.NormalizeEmail(*in.Email)
		in.Email = &e
	}
	in.Location = trimOptional(in.Location)
	in.Phone = trimOptional(in.Phone)
}

// withOTPShape replaces the otp entry when the code was not an integer.
func withOTPShape(fields map[string]string, malformed bool) map[string]string {
	if !malformed {
		return fields
	}
	if fields == nil {
		fields = map[string]string{}
	}
	fields["otp"] = "must be an integer"
	return fields
}

// trimOptional trims s and maps a blank value to an empty, non-nil string so
// "supplied but blank" stays distinguishable from "not supplied".
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// blankToNil stores a blank optional attribute as absent.
func blankToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
