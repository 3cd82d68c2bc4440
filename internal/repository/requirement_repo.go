package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/blindpi/arccm-api/internal/models"
)

// DefinitionFilter narrows catalog queries.
type DefinitionFilter struct {
	Role string
	Tier string
}

// RequirementRepository exposes the requirement catalog. The catalog is
// read-only at runtime from the engine's perspective; writes happen through
// admin tooling and seeding.
type RequirementRepository interface {
	List(ctx context.Context, filter DefinitionFilter) ([]models.RequirementDefinition, error)
	ListForRoleTier(ctx context.Context, role, tier string) ([]models.RequirementDefinition, error)
	GetByID(ctx context.Context, id uint) (models.RequirementDefinition, error)
	Create(ctx context.Context, definition *models.RequirementDefinition) error
	Count(ctx context.Context) (int64, error)
}

type requirementRepository struct {
	db *gorm.DB
}

// NewRequirementRepository instantiates the catalog repository.
func NewRequirementRepository(db *gorm.DB) RequirementRepository {
	return &requirementRepository{db: db}
}

func (r *requirementRepository) List(ctx context.Context, filter DefinitionFilter) ([]models.RequirementDefinition, error) {
	query := r.db.WithContext(ctx).Model(&models.RequirementDefinition{})

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	if filter.Tier != "" {
		query = query.Where("tier = ?", filter.Tier)
	}

	var definitions []models.RequirementDefinition
	if err := query.Order("display_order ASC, id ASC").Find(&definitions).Error; err != nil {
		return nil, err
	}

	return definitions, nil
}

func (r *requirementRepository) ListForRoleTier(ctx context.Context, role, tier string) ([]models.RequirementDefinition, error) {
	return r.List(ctx, DefinitionFilter{Role: role, Tier: tier})
}

func (r *requirementRepository) GetByID(ctx context.Context, id uint) (models.RequirementDefinition, error) {
	var definition models.RequirementDefinition
	if err := r.db.WithContext(ctx).First(&definition, id).Error; err != nil {
		return models.RequirementDefinition{}, err
	}
	return definition, nil
}

func (r *requirementRepository) Create(ctx context.Context, definition *models.RequirementDefinition) error {
	return r.db.WithContext(ctx).Create(definition).Error
}

func (r *requirementRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.RequirementDefinition{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
