package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"github.com/google/uuid"
)

type identityKey struct {
	provider   models.Provider
	providerID string
}

type accountProviderKey struct {
	accountID uuid.UUID
	provider  models.Provider
}

// MemoryAccountRepo is an in-process account store. Each method holds the
// lock for its whole check-and-insert, which gives the same guarantees as the
// unique indexes in postgres.
type MemoryAccountRepo struct {
	mu         sync.RWMutex
	accounts   map[uuid.UUID]models.Account
	byEmail    map[string]uuid.UUID
	identities map[identityKey]models.SocialIdentity
	byProvider map[accountProviderKey]identityKey
}

func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{
		accounts:   make(map[uuid.UUID]models.Account),
		byEmail:    make(map[string]uuid.UUID),
		identities: make(map[identityKey]models.SocialIdentity),
		byProvider: make(map[accountProviderKey]identityKey),
	}
}

func (r *MemoryAccountRepo) Create(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertAccount(account)
}

func (r *MemoryAccountRepo) CreateWithIdentity(_ context.Context, account *models.Account, identity *models.SocialIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.identities[identityKey{identity.Provider, identity.ProviderID}]; ok {
		return fmt.Errorf("create account with identity: %w", ErrDuplicate)
	}
	if err := r.insertAccount(account); err != nil {
		return err
	}
	identity.AccountID = account.ID
	if err := r.insertIdentity(identity); err != nil {
		r.removeAccount(account.ID)
		return err
	}
	return nil
}

func (r *MemoryAccountRepo) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	account := r.accounts[id]
	return &account, nil
}

func (r *MemoryAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &account, nil
}

func (r *MemoryAccountRepo) FindBySocialIdentity(_ context.Context, provider models.Provider, providerID string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.identities[identityKey{provider, providerID}]
	if !ok {
		return nil, ErrNotFound
	}
	account, ok := r.accounts[identity.AccountID]
	if !ok {
		return nil, ErrNotFound
	}
	return &account, nil
}

func (r *MemoryAccountRepo) LinkIdentity(_ context.Context, identity *models.SocialIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[identity.AccountID]; !ok {
		return fmt.Errorf("link social identity: account %s: %w", identity.AccountID, ErrNotFound)
	}
	return r.insertIdentity(identity)
}

func (r *MemoryAccountRepo) FindIdentity(_ context.Context, accountID uuid.UUID, provider models.Provider) (*models.SocialIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.byProvider[accountProviderKey{accountID, provider}]
	if !ok {
		return nil, ErrNotFound
	}
	identity := r.identities[key]
	return &identity, nil
}

// Count returns the number of stored accounts and social identities.
func (r *MemoryAccountRepo) Count() (accounts, identities int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts), len(r.identities)
}

func (r *MemoryAccountRepo) insertAccount(account *models.Account) error {
	account.Email = NormalizeEmail(account.Email)
	if _, ok := r.byEmail[account.Email]; ok {
		return fmt.Errorf("create account: %w", ErrDuplicate)
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	r.accounts[account.ID] = *account
	r.byEmail[account.Email] = account.ID
	return nil
}

func (r *MemoryAccountRepo) removeAccount(id uuid.UUID) {
	if account, ok := r.accounts[id]; ok {
		delete(r.byEmail, account.Email)
		delete(r.accounts, id)
	}
}

func (r *MemoryAccountRepo) insertIdentity(identity *models.SocialIdentity) error {
	key := identityKey{identity.Provider, identity.ProviderID}
	if _, ok := r.identities[key]; ok {
		return fmt.Errorf("link social identity: %w", ErrDuplicate)
	}
	apKey := accountProviderKey{identity.AccountID, identity.Provider}
	if _, ok := r.byProvider[apKey]; ok {
		return fmt.Errorf("link social identity: %w", ErrDuplicate)
	}
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}
	r.identities[key] = *identity
	r.byProvider[apKey] = key
	return nil
}

// MemoryTokenRepo is an in-process refresh token store keyed by token hash.
type MemoryTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]models.RefreshToken
}

func NewMemoryTokenRepo() *MemoryTokenRepo {
	return &MemoryTokenRepo{tokens: make(map[string]models.RefreshToken)}
}

func (r *MemoryTokenRepo) Create(_ context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token.TokenHash]; ok {
		return fmt.Errorf("create refresh token: %w", ErrDuplicate)
	}
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	r.tokens[token.TokenHash] = *token
	return nil
}

func (r *MemoryTokenRepo) FindByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return &token, nil
}

func (r *MemoryTokenRepo) DeleteByHash(_ context.Context, hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[hash]; !ok {
		return false, nil
	}
	delete(r.tokens, hash)
	return true, nil
}

func (r *MemoryTokenRepo) DeleteByAccount(_ context.Context, accountID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for hash, token := range r.tokens {
		if token.AccountID == accountID {
			delete(r.tokens, hash)
			n++
		}
	}
	return n, nil
}

func (r *MemoryTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for hash, token := range r.tokens {
		if token.Expired(now) {
			delete(r.tokens, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored refresh tokens.
func (r *MemoryTokenRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
