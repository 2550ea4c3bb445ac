package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

const uniqueViolation = "23505"

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// ---------- helpers ----------

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate")
}

func (s *UserStore) getOne(ctx context.Context, q string, args ...any) (domain.User, error) {
	ur, err := scanUser(s.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(), nil
}

// ---------- auth.UserStore ----------

func (s *UserStore) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if u.PasswordHash == "" {
		return domain.User{}, domain.ErrMissingField("password_hash")
	}

	const q = `
INSERT INTO users (id, name, email, password_hash, location, phone_number, verified, pending_otp, otp_issued_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING ` + userColumns + `;
`
	ur, err := scanUser(s.db.QueryRowContext(ctx, q,
		u.ID, u.Name, u.Email, u.PasswordHash,
		nullString(u.Location), nullString(u.Phone),
		u.Verified, nullInt(u.PendingOTP), nullTime(u.OTPIssuedAt),
		u.CreatedAt, u.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(), nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 LIMIT 1;`, id)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 LIMIT 1;`, email)
}

func (s *UserStore) GetByEmailAndOTP(ctx context.Context, email string, code int) (domain.User, error) {
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	return s.getOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND pending_otp = $2 LIMIT 1;`,
		email, code,
	)
}

// Update locks the row for the duration of fn and writes the result back in
// the same transaction.
func (s *UserStore) Update(ctx context.Context, id string, fn func(u *domain.User) error) (domain.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	defer func() { _ = tx.Rollback() }()

	ur, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE;`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}

	u := ur.toDomain()
	if err := fn(&u); err != nil {
		return domain.User{}, err
	}

	const q = `
UPDATE users
SET name = $2,
    email = $3,
    password_hash = $4,
    location = $5,
    phone_number = $6,
    verified = $7,
    pending_otp = $8,
    otp_issued_at = $9,
    updated_at = $10
WHERE id = $1;
`
	if _, err := tx.ExecContext(ctx, q,
		id, u.Name, u.Email, u.PasswordHash,
		nullString(u.Location), nullString(u.Phone),
		u.Verified, nullInt(u.PendingOTP), nullTime(u.OTPIssuedAt),
		u.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}

	if err := tx.Commit(); err != nil {
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	u.ID = id
	return u, nil
}

func (s *UserStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}
