package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/domain"
)

// Hasher is the minimal surface we need for seeding.
type Hasher interface {
	Hash(password string) (string, error)
}

// Creator is satisfied by every user store.
type Creator interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "DemoPassword123"
)

// SeedDemoUser creates one verified user for local development.
// Safe to call multiple times (duplicates ignored).
func SeedDemoUser(ctx context.Context, users Creator, hasher Hasher, log zerolog.Logger) {
	hash, err := hasher.Hash(DemoPassword)
	if err != nil {
		log.Warn().Err(err).Msg("[seed] hash failed")
		return
	}

	now := time.Now().UTC()
	_, err = users.Create(ctx, domain.User{
		ID:           uuid.NewString(),
		Name:         "Demo User",
		Email:        DemoEmail,
		PasswordHash: hash,
		Verified:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// ignore duplicates / restart
		if !domain.Is(err, "email_already_exists") {
			log.Warn().Err(err).Msg("[seed] demo user not created")
		}
		return
	}

	log.Info().Str("email", DemoEmail).Msg("[seed] demo user seeded")
}
