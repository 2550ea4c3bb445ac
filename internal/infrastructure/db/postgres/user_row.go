package postgres

import (
	"database/sql"
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

const userColumns = `id, name, email, password_hash, location, phone_number, verified, pending_otp, otp_issued_at, created_at, updated_at`

type userRow struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Location     sql.NullString
	Phone        sql.NullString
	Verified     bool
	PendingOTP   sql.NullInt64
	OTPIssuedAt  sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (userRow, error) {
	var ur userRow
	err := s.Scan(
		&ur.ID,
		&ur.Name,
		&ur.Email,
		&ur.PasswordHash,
		&ur.Location,
		&ur.Phone,
		&ur.Verified,
		&ur.PendingOTP,
		&ur.OTPIssuedAt,
		&ur.CreatedAt,
		&ur.UpdatedAt,
	)
	return ur, err
}

func (ur userRow) toDomain() domain.User {
	u := domain.User{
		ID:           ur.ID,
		Name:         ur.Name,
		Email:        ur.Email,
		PasswordHash: ur.PasswordHash,
		Verified:     ur.Verified,
		CreatedAt:    ur.CreatedAt.UTC(),
		UpdatedAt:    ur.UpdatedAt.UTC(),
	}
	if ur.Location.Valid {
		v := ur.Location.String
		u.Location = &v
	}
	if ur.Phone.Valid {
		v := ur.Phone.String
		u.Phone = &v
	}
	if ur.PendingOTP.Valid {
		v := int(ur.PendingOTP.Int64)
		u.PendingOTP = &v
	}
	if ur.OTPIssuedAt.Valid {
		v := ur.OTPIssuedAt.Time.UTC()
		u.OTPIssuedAt = &v
	}
	return u
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
