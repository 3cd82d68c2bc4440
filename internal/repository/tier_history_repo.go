package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/blindpi/arccm-api/internal/models"
)

// TierHistoryRepository persists the append-only tier switch trail.
type TierHistoryRepository interface {
	Create(ctx context.Context, tx *gorm.DB, entry *models.TierHistory) error
	ListForUser(ctx context.Context, userID uint) ([]models.TierHistory, error)
	CountForUser(ctx context.Context, userID uint) (int64, error)
}

type tierHistoryRepository struct {
	db *gorm.DB
}

// NewTierHistoryRepository instantiates the tier history repository.
func NewTierHistoryRepository(db *gorm.DB) TierHistoryRepository {
	return &tierHistoryRepository{db: db}
}

func (r *tierHistoryRepository) Create(ctx context.Context, tx *gorm.DB, entry *models.TierHistory) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Create(entry).Error
}

func (r *tierHistoryRepository) ListForUser(ctx context.Context, userID uint) ([]models.TierHistory, error) {
	var entries []models.TierHistory
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *tierHistoryRepository) CountForUser(ctx context.Context, userID uint) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.TierHistory{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
