package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

// maxTxRetries bounds optimistic retries when a watched key changes under us.
const maxTxRetries = 10

// UserStore keeps one JSON record per user ("user:<id>") plus an email index
// ("user:email:<email>" -> id). Writes go through WATCH/MULTI so Update is
// atomic per user and the index never points at the wrong record.
type UserStore struct {
	rdb    *goredis.Client
	prefix string
}

func NewUserStore(c *Client) *UserStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &UserStore{rdb: rdb, prefix: "user:"}
}

type userRecord struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash"`
	Location     *string    `json:"location,omitempty"`
	Phone        *string    `json:"phone_number,omitempty"`
	Verified     bool       `json:"verified"`
	PendingOTP   *int       `json:"pending_otp,omitempty"`
	OTPIssuedAt  *time.Time `json:"otp_issued_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toRecord(u domain.User) userRecord {
	return userRecord(u)
}

func (r userRecord) toDomain() domain.User {
	return domain.User(r)
}

func (s *UserStore) userKey(id string) string     { return s.prefix + id }
func (s *UserStore) emailKey(email string) string { return s.prefix + "email:" + email }

func (s *UserStore) ready() error {
	if s.rdb == nil {
		return domain.ErrRedisUnavailable(errors.New("redis user store not configured"))
	}
	return nil
}

func (s *UserStore) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if err := s.ready(); err != nil {
		return domain.User{}, err
	}

	body, err := json.Marshal(toRecord(u))
	if err != nil {
		return domain.User{}, domain.ErrInternal(err)
	}

	ek, uk := s.emailKey(u.Email), s.userKey(u.ID)
	err = s.withRetry(ctx, func() error {
		return s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			n, err := tx.Exists(ctx, ek).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return domain.ErrEmailAlreadyExists()
			}
			_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
				p.Set(ctx, uk, body, 0)
				p.Set(ctx, ek, u.ID, 0)
				return nil
			})
			return err
		}, ek)
	})
	if err != nil {
		return domain.User{}, storeErr(err)
	}
	return u, nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if err := s.ready(); err != nil {
		return domain.User{}, err
	}
	u, err := s.load(ctx, s.rdb, id)
	if err != nil {
		return domain.User{}, storeErr(err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if err := s.ready(); err != nil {
		return domain.User{}, err
	}

	id, err := s.rdb.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrRedisUnavailable(err)
	}
	u, err := s.load(ctx, s.rdb, id)
	if err != nil {
		return domain.User{}, storeErr(err)
	}
	return u, nil
}

func (s *UserStore) GetByEmailAndOTP(ctx context.Context, email string, code int) (domain.User, error) {
	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	if u.PendingOTP == nil || *u.PendingOTP != code {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (s *UserStore) Update(ctx context.Context, id string, fn func(u *domain.User) error) (domain.User, error) {
	if err := s.ready(); err != nil {
		return domain.User{}, err
	}

	uk := s.userKey(id)
	var out domain.User
	err := s.withRetry(ctx, func() error {
		return s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			cur, err := s.load(ctx, tx, id)
			if err != nil {
				return err
			}

			next := cur
			if err := fn(&next); err != nil {
				return err
			}
			next.ID = cur.ID

			emailChanged := next.Email != cur.Email
			if emailChanged {
				nk := s.emailKey(next.Email)
				if err := tx.Watch(ctx, nk).Err(); err != nil {
					return err
				}
				owner, err := tx.Get(ctx, nk).Result()
				if err != nil && !errors.Is(err, goredis.Nil) {
					return err
				}
				if err == nil && owner != id {
					return domain.ErrEmailAlreadyExists()
				}
			}

			body, err := json.Marshal(toRecord(next))
			if err != nil {
				return domain.ErrInternal(err)
			}

			_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
				p.Set(ctx, uk, body, 0)
				if emailChanged {
					p.Del(ctx, s.emailKey(cur.Email))
					p.Set(ctx, s.emailKey(next.Email), id, 0)
				}
				return nil
			})
			if err != nil {
				return err
			}
			out = next
			return nil
		}, uk)
	})
	if err != nil {
		return domain.User{}, storeErr(err)
	}
	return out, nil
}

func (s *UserStore) Ping(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

// ---------- helpers ----------

func (s *UserStore) load(ctx context.Context, c goredis.Cmdable, id string) (domain.User, error) {
	raw, err := c.Get(ctx, s.userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, err
	}
	var rec userRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.User{}, domain.ErrInternal(err)
	}
	return rec.toDomain(), nil
}

func (s *UserStore) withRetry(ctx context.Context, op func() error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := op()
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return goredis.TxFailedErr
}

// storeErr keeps domain errors and reports everything else as redis trouble.
func storeErr(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	return domain.ErrRedisUnavailable(err)
}
