package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/providers"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/repository"
	"github.com/google/uuid"
)

const resolveAttempts = 3

// Resolver maps a verified provider profile onto an account.
type Resolver struct {
	accounts AccountStore
}

func NewResolver(accounts AccountStore) *Resolver {
	return &Resolver{accounts: accounts}
}

// ResolveSocial tries, in order: the linked identity, an account with the
// same email (which gets linked), then a new account. A uniqueness violation
// means another request got there first, so resolution starts over.
// created is true when a new account was inserted.
func (r *Resolver) ResolveSocial(ctx context.Context, p *providers.Profile) (account *models.Account, created bool, err error) {
	for attempt := 1; attempt <= resolveAttempts; attempt++ {
		account, created, err = r.resolveOnce(ctx, p)
		if !errors.Is(err, repository.ErrDuplicate) {
			return account, created, err
		}
		slog.Info("social identity resolution raced, retrying",
			"op", "resolve_social",
			"provider", p.Provider,
			"attempt", attempt,
		)
	}
	return nil, false, internalErr("resolve social identity", err)
}

func (r *Resolver) resolveOnce(ctx context.Context, p *providers.Profile) (*models.Account, bool, error) {
	account, err := r.accounts.FindBySocialIdentity(ctx, p.Provider, p.ProviderID)
	switch {
	case err == nil:
		return account, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, internalErr("find account by social identity", err)
	}

	email := repository.NormalizeEmail(p.Email)
	account, err = r.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return r.link(ctx, account, p)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, internalErr("find account by email", err)
	}

	account = &models.Account{
		ID:        uuid.New(),
		Email:     email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Avatar:    p.Avatar,
		Role:      models.RoleUser,
		Status:    models.StatusActive,
	}
	identity := newIdentity(p, account.ID)
	if err := r.accounts.CreateWithIdentity(ctx, account, identity); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, false, err
		}
		return nil, false, internalErr("create account from profile", err)
	}
	return account, true, nil
}

func (r *Resolver) link(ctx context.Context, account *models.Account, p *providers.Profile) (*models.Account, bool, error) {
	err := r.accounts.LinkIdentity(ctx, newIdentity(p, account.ID))
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, false, internalErr("link social identity", err)
	}

	existing, ferr := r.accounts.FindIdentity(ctx, account.ID, p.Provider)
	if ferr == nil && existing.ProviderID != p.ProviderID {
		slog.Warn("account already linked to another identity of this provider",
			"op", "resolve_social",
			"provider", p.Provider,
			"account_id", account.ID,
		)
		return nil, false, ErrProviderConflict
	}
	return nil, false, err
}

func newIdentity(p *providers.Profile, accountID uuid.UUID) *models.SocialIdentity {
	return &models.SocialIdentity{
		ID:         uuid.New(),
		Provider:   p.Provider,
		ProviderID: p.ProviderID,
		AccountID:  accountID,
	}
}
