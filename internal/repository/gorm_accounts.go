package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountRepo stores accounts and their social identities in postgres.
// The gorm.DB must be opened with TranslateError so unique violations surface
// as gorm.ErrDuplicatedKey.
type AccountRepo struct {
	db *gorm.DB
}

func NewAccountRepo(db *gorm.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Create(ctx context.Context, account *models.Account) error {
	account.Email = NormalizeEmail(account.Email)
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return translate(err, "create account")
	}
	return nil
}

// CreateWithIdentity inserts a new account and its first social identity in
// one transaction, so a lost race never leaves an orphan account behind.
func (r *AccountRepo) CreateWithIdentity(ctx context.Context, account *models.Account, identity *models.SocialIdentity) error {
	account.Email = NormalizeEmail(account.Email)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		identity.AccountID = account.ID
		return tx.Create(identity).Error
	})
	if err != nil {
		return translate(err, "create account with identity")
	}
	return nil
}

func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&account).Error
	if err != nil {
		return nil, translate(err, "find account by email")
	}
	return &account, nil
}

func (r *AccountRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, translate(err, "find account by id")
	}
	return &account, nil
}

func (r *AccountRepo) FindBySocialIdentity(ctx context.Context, provider models.Provider, providerID string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Joins("JOIN social_identities si ON si.account_id = accounts.id").
		Where("si.provider = ? AND si.provider_id = ?", provider, providerID).
		First(&account).Error
	if err != nil {
		return nil, translate(err, "find account by social identity")
	}
	return &account, nil
}

func (r *AccountRepo) LinkIdentity(ctx context.Context, identity *models.SocialIdentity) error {
	if err := r.db.WithContext(ctx).Create(identity).Error; err != nil {
		return translate(err, "link social identity")
	}
	return nil
}

func (r *AccountRepo) FindIdentity(ctx context.Context, accountID uuid.UUID, provider models.Provider) (*models.SocialIdentity, error) {
	var identity models.SocialIdentity
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND provider = ?", accountID, provider).
		First(&identity).Error
	if err != nil {
		return nil, translate(err, "find social identity")
	}
	return &identity, nil
}

func translate(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
