package repository

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenRepo keeps refresh tokens in postgres.
type TokenRepo struct {
	db *gorm.DB
}

func NewTokenRepo(db *gorm.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

func (r *TokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return translate(err, "create refresh token")
	}
	return nil
}

func (r *TokenRepo) FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&token).Error; err != nil {
		return nil, translate(err, "find refresh token")
	}
	return &token, nil
}

// DeleteByHash is a single DELETE statement; only the caller whose statement
// removed the row gets true back.
func (r *TokenRepo) DeleteByHash(ctx context.Context, hash string) (bool, error) {
	res := r.db.WithContext(ctx).Where("token_hash = ?", hash).Delete(&models.RefreshToken{})
	if res.Error != nil {
		return false, translate(res.Error, "delete refresh token")
	}
	return res.RowsAffected > 0, nil
}

func (r *TokenRepo) DeleteByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, translate(res.Error, "delete account refresh tokens")
	}
	return res.RowsAffected, nil
}

func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, translate(res.Error, "delete expired refresh tokens")
	}
	return res.RowsAffected, nil
}
