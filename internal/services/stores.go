package services

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/providers"
	"github.com/google/uuid"
)

// AccountStore must enforce email, (provider, provider_id) and
// (account, provider) uniqueness and report violations as
// repository.ErrDuplicate.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	CreateWithIdentity(ctx context.Context, account *models.Account, identity *models.SocialIdentity) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FindBySocialIdentity(ctx context.Context, provider models.Provider, providerID string) (*models.Account, error)
	LinkIdentity(ctx context.Context, identity *models.SocialIdentity) error
	FindIdentity(ctx context.Context, accountID uuid.UUID, provider models.Provider) (*models.SocialIdentity, error)
}

// TokenStore must make DeleteByHash atomic: among concurrent callers for the
// same hash at most one sees true.
type TokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	DeleteByHash(ctx context.Context, hash string) (bool, error)
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type ProfileVerifier interface {
	Verify(ctx context.Context, provider models.Provider, token string) (*providers.Profile, error)
}
