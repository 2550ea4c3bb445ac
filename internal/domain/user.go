package domain

import (
	"strings"
	"time"
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Location     *string
	Phone        *string
	Verified     bool

	// PendingOTP is set while a verification or reset request is outstanding.
	PendingOTP  *int
	OTPIssuedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPendingOTP reports whether code is the outstanding code for u.
// A ttl <= 0 disables expiry.
func (u User) HasPendingOTP(code int, now time.Time, ttl time.Duration) bool {
	if u.PendingOTP == nil || *u.PendingOTP != code {
		return false
	}
	if ttl > 0 {
		if u.OTPIssuedAt == nil || now.Sub(*u.OTPIssuedAt) > ttl {
			return false
		}
	}
	return true
}

// SetPendingOTP replaces any outstanding code.
func (u *User) SetPendingOTP(code int, now time.Time) {
	c := code
	t := now
	u.PendingOTP = &c
	u.OTPIssuedAt = &t
}

func (u *User) ClearPendingOTP() {
	u.PendingOTP = nil
	u.OTPIssuedAt = nil
}

// NormalizeEmail is the single email policy: trimmed, lower-cased, exact match afterwards.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
