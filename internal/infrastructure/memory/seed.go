package memory

import (
	"context"
	"time"

	"github.com/lmsworks/member-service/internal/domain"
	"github.com/lmsworks/member-service/internal/logger"
)

// Hasher is the minimal surface we need for seeding.
type Hasher interface {
	Hash(password string) (string, error)
}

// Creator is satisfied by both the in-memory and the Postgres repo.
type Creator interface {
	Create(ctx context.Context, m domain.Member) (domain.Member, error)
}

type SeedAccount struct {
	ID       string
	Name     string
	Password string
	Admin    bool
}

// DevAccounts are seeded when APP_ENV=dev.
var DevAccounts = []SeedAccount{
	{ID: "admin@example.com", Name: "Admin", Password: "AdminPassword123!", Admin: true},
	{ID: "user@example.com", Name: "User", Password: "UserPassword123!"},
}

// SeedMembers creates verified accounts for local development.
// Safe to call multiple times (duplicates ignored).
func SeedMembers(ctx context.Context, members Creator, hasher Hasher, accounts []SeedAccount) int {
	created := 0
	now := time.Now().UTC()

	for _, a := range accounts {
		hash, err := hasher.Hash(a.Password)
		if err != nil {
			logger.Logger.Warn().Err(err).Str("member_id", a.ID).Msg("seed: hash failed")
			continue
		}

		verifiedAt := now
		m := domain.Member{
			ID:              a.ID,
			Name:            a.Name,
			PasswordHash:    hash,
			RegisteredAt:    now,
			UpdatedAt:       now,
			Admin:           a.Admin,
			EmailVerified:   true,
			EmailVerifiedAt: &verifiedAt,
		}
		if _, err := members.Create(ctx, m); err != nil {
			continue
		}
		created++
	}

	logger.Logger.Info().Int("created", created).Msg("seed: dev members seeded")
	return created
}
