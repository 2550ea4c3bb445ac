package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

func newUser(id, email string) domain.User {
	now := time.Now().UTC()
	return domain.User{ID: id, Name: "n", Email: email, PasswordHash: "h", CreatedAt: now, UpdatedAt: now}
}

func TestUserStore_CreateAndGet(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()

	_, err := s.Create(ctx, newUser("u1", "a@x.com"))
	require.NoError(t, err)

	byID, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)

	byEmail, err := s.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)

	_, err = s.GetByID(ctx, "nope")
	assert.True(t, domain.Is(err, "user_not_found"))
}

func TestUserStore_Create_DuplicateEmail(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()

	_, err := s.Create(ctx, newUser("u1", "a@x.com"))
	require.NoError(t, err)
	_, err = s.Create(ctx, newUser("u2", "a@x.com"))
	assert.True(t, domain.Is(err, "email_already_exists"))
}

func TestUserStore_GetByEmailAndOTP(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()

	u := newUser("u1", "a@x.com")
	u.SetPendingOTP(1234, time.Now())
	_, err := s.Create(ctx, u)
	require.NoError(t, err)

	got, err := s.GetByEmailAndOTP(ctx, "a@x.com", 1234)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	_, err = s.GetByEmailAndOTP(ctx, "a@x.com", 4321)
	assert.True(t, domain.Is(err, "user_not_found"))
	_, err = s.GetByEmailAndOTP(ctx, "b@x.com", 1234)
	assert.True(t, domain.Is(err, "user_not_found"))
}

func TestUserStore_ReturnedValuesDoNotAlias(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()

	u := newUser("u1", "a@x.com")
	loc := "Berlin"
	u.Location = &loc
	_, err := s.Create(ctx, u)
	require.NoError(t, err)

	got, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	*got.Location = "Paris"

	again, err := s.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Berlin", *again.Location)
}

func TestUserStore_Update_ReindexesEmail(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	_, err := s.Create(ctx, newUser("u1", "a@x.com"))
	require.NoError(t, err)

	_, err = s.Update(ctx, "u1", func(u *domain.User) error {
		u.Email = "new@x.com"
		return nil
	})
	require.NoError(t, err)

	_, err = s.GetByEmail(ctx, "a@x.com")
	assert.True(t, domain.Is(err, "user_not_found"))
	got, err := s.GetByEmail(ctx, "new@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
}

func TestUserStore_Update_EmailConflict(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	_, _ = s.Create(ctx, newUser("u1", "a@x.com"))
	_, _ = s.Create(ctx, newUser("u2", "b@x.com"))

	_, err := s.Update(ctx, "u1", func(u *domain.User) error {
		u.Email = "b@x.com"
		return nil
	})
	assert.True(t, domain.Is(err, "email_already_exists"))

	got, _ := s.GetByID(ctx, "u1")
	assert.Equal(t, "a@x.com", got.Email)
}

func TestUserStore_Update_FnErrorWritesNothing(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	_, _ = s.Create(ctx, newUser("u1", "a@x.com"))

	_, err := s.Update(ctx, "u1", func(u *domain.User) error {
		u.Name = "changed"
		return domain.ErrOTPMismatch()
	})
	assert.True(t, domain.Is(err, "otp_mismatch"))

	got, _ := s.GetByID(ctx, "u1")
	assert.Equal(t, "n", got.Name)
}

func TestUserStore_Update_Missing(t *testing.T) {
	_, err := NewUserStore().Update(context.Background(), "ghost", func(*domain.User) error { return nil })
	assert.True(t, domain.Is(err, "user_not_found"))
}

func TestUserStore_ConcurrentConsume_SingleWinner(t *testing.T) {
	s := NewUserStore()
	ctx := context.Background()
	u := newUser("u1", "a@x.com")
	u.SetPendingOTP(1234, time.Now())
	_, _ = s.Create(ctx, u)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "u1", func(cur *domain.User) error {
				if !cur.HasPendingOTP(1234, time.Now(), 0) {
					return domain.ErrOTPMismatch()
				}
				cur.ClearPendingOTP()
				return nil
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestUserStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewUserStore().Create(ctx, newUser("u1", "a@x.com"))
	assert.ErrorIs(t, err, context.Canceled)
}
