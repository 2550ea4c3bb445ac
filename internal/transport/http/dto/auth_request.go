package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/auth"
)

// OTPValue accepts the code as a JSON number or a numeric string.
// A value of any other shape is remembered as invalid and reported as an
// otp field error together with the rest of the body.
type OTPValue struct {
	Value   *int
	Invalid bool
}

func (o *OTPValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		o.Value, o.Invalid = nil, false
		return nil
	}

	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			o.Invalid = true
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		o.Value, o.Invalid = nil, true
		return nil
	}
	o.Value, o.Invalid = &n, false
	return nil
}

// -------- Core auth --------

type RegisterRequest struct {
	Name                 string  `json:"name"`
	Email                string  `json:"email"`
	Password             string  `json:"password"`
	PasswordConfirmation string  `json:"password_confirmation"`
	Location             *string `json:"location"`
	Phone                *string `json:"phone_number"`
}

func (r RegisterRequest) Input() auth.RegisterInput {
	return auth.RegisterInput{
		Name:                 r.Name,
		Email:                r.Email,
		Password:             r.Password,
		PasswordConfirmation: r.PasswordConfirmation,
		Location:             r.Location,
		Phone:                r.Phone,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Input() auth.LoginInput {
	return auth.LoginInput{Email: r.Email, Password: r.Password}
}

// -------- One-time codes --------

type VerifyOTPRequest struct {
	Email string   `json:"email"`
	OTP   OTPValue `json:"otp"`
}

func (r VerifyOTPRequest) Input() auth.VerifyOTPInput {
	return auth.VerifyOTPInput{Email: r.Email, OTP: r.OTP.Value, OTPMalformed: r.OTP.Invalid}
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r ForgotPasswordRequest) Input() auth.ForgotPasswordInput {
	return auth.ForgotPasswordInput{Email: r.Email}
}

type ResetPasswordRequest struct {
	Email                string   `json:"email"`
	OTP                  OTPValue `json:"otp"`
	Password             string   `json:"password"`
	PasswordConfirmation string   `json:"password_confirmation"`
}

func (r ResetPasswordRequest) Input() auth.ResetPasswordInput {
	return auth.ResetPasswordInput{
		Email:                r.Email,
		OTP:                  r.OTP.Value,
		OTPMalformed:         r.OTP.Invalid,
		Password:             r.Password,
		PasswordConfirmation: r.PasswordConfirmation,
	}
}

// -------- Account --------

type ChangePasswordRequest struct {
	CurrentPassword         string `json:"current_password"`
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

func (r ChangePasswordRequest) Input() auth.ChangePasswordInput {
	return auth.ChangePasswordInput{
		CurrentPassword:         r.CurrentPassword,
		NewPassword:             r.NewPassword,
		NewPasswordConfirmation: r.NewPasswordConfirmation,
	}
}

// ChangeProfileRequest leaves absent fields nil.
type ChangeProfileRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Location *string `json:"location"`
	Phone    *string `json:"phone_number"`
}

func (r ChangeProfileRequest) Input() auth.ChangeProfileInput {
	return auth.ChangeProfileInput{
		Name:     r.Name,
		Email:    r.Email,
		Location: r.Location,
		Phone:    r.Phone,
	}
}
