package memory

import (
	"context"
	"sync"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

// UserStore keeps users in process memory. A single mutex serialises every
// read-modify-write, which makes Update atomic per user.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string // email -> userID
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (s *UserStore) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if _, exists := s.byEmail[u.Email]; exists {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}

	u = clone(u)
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return clone(u), nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return clone(u), nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return clone(s.byID[id]), nil
}

func (s *UserStore) GetByEmailAndOTP(ctx context.Context, email string, code int) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	u := s.byID[id]
	if u.PendingOTP == nil || *u.PendingOTP != code {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return clone(u), nil
}

func (s *UserStore) Update(ctx context.Context, id string, fn func(u *domain.User) error) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}

	next := clone(cur)
	if err := fn(&next); err != nil {
		return domain.User{}, err
	}
	next.ID = cur.ID

	if next.Email != cur.Email {
		if owner, taken := s.byEmail[next.Email]; taken && owner != id {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		delete(s.byEmail, cur.Email)
		s.byEmail[next.Email] = id
	}
	s.byID[id] = next
	return clone(next), nil
}

// Ping always succeeds; it lets the readiness probe treat every store alike.
func (s *UserStore) Ping(ctx context.Context) error { return nil }

// clone copies pointer fields so callers never alias stored state.
func clone(u domain.User) domain.User {
	if u.Location != nil {
		v := *u.Location
		u.Location = &v
	}
	if u.Phone != nil {
		v := *u.Phone
		u.Phone = &v
	}
	if u.PendingOTP != nil {
		v := *u.PendingOTP
		u.PendingOTP = &v
	}
	if u.OTPIssuedAt != nil {
		v := *u.OTPIssuedAt
		u.OTPIssuedAt = &v
	}
	return u
}
