package repository

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"gorm.io/gorm"
)

const logBatchSize = 50

// LogRepo persists error-level log records to system_logs.
type LogRepo struct {
	db *gorm.DB
}

func NewLogRepo(db *gorm.DB) *LogRepo {
	return &LogRepo{db: db}
}

func (r *LogRepo) WriteLogs(ctx context.Context, entries []models.SystemLog) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(entries, logBatchSize).Error
}

// Purge removes system_logs rows older than cutoff.
func (r *LogRepo) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return res.RowsAffected, res.Error
}
