package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/blindpi/arccm-api/internal/models"
)

// ProgressionRepository reads the role chain and gating mappings. Both are
// catalog data, read-only at runtime.
type ProgressionRepository interface {
	PathsFrom(ctx context.Context, fromRole string) ([]models.ProgressionPath, error)
	RequirementsForEdge(ctx context.Context, fromRole, toRole string) ([]models.ProgressionRequirement, error)
	CreatePath(ctx context.Context, path *models.ProgressionPath) error
	CreateRequirement(ctx context.Context, mapping *models.ProgressionRequirement) error
}

type progressionRepository struct {
	db *gorm.DB
}

// NewProgressionRepository instantiates the progression repository.
func NewProgressionRepository(db *gorm.DB) ProgressionRepository {
	return &progressionRepository{db: db}
}

func (r *progressionRepository) PathsFrom(ctx context.Context, fromRole string) ([]models.ProgressionPath, error) {
	var paths []models.ProgressionPath
	if err := r.db.WithContext(ctx).
		Where("from_role = ?", fromRole).
		Order("display_order ASC").
		Find(&paths).Error; err != nil {
		return nil, err
	}
	return paths, nil
}

func (r *progressionRepository) RequirementsForEdge(ctx context.Context, fromRole, toRole string) ([]models.ProgressionRequirement, error) {
	var mappings []models.ProgressionRequirement
	if err := r.db.WithContext(ctx).
		Preload("Requirement").
		Where("from_role = ?", fromRole).
		Where("to_role = ?", toRole).
		Find(&mappings).Error; err != nil {
		return nil, err
	}
	return mappings, nil
}

func (r *progressionRepository) CreatePath(ctx context.Context, path *models.ProgressionPath) error {
	return r.db.WithContext(ctx).Create(path).Error
}

func (r *progressionRepository) CreateRequirement(ctx context.Context, mapping *models.ProgressionRequirement) error {
	return r.db.WithContext(ctx).Create(mapping).Error
}
