package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/blindpi/arccm-api/internal/models"
)

// UserRepository reads and updates the engine's mirror of the user directory.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateTier(ctx context.Context, tx *gorm.DB, userID uint, tier string) error
	UpdateRole(ctx context.Context, tx *gorm.DB, userID uint, role string) error
	ListByTier(ctx context.Context, tier string) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository instantiates the repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// UpdateTier runs inside the caller's transaction when tx is non-nil so a
// tier switch stays atomic with its history and reconciliation writes.
func (r *userRepository) UpdateTier(ctx context.Context, tx *gorm.DB, userID uint, tier string) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("tier", tier).Error
}

func (r *userRepository) UpdateRole(ctx context.Context, tx *gorm.DB, userID uint, role string) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("role", role).Error
}

func (r *userRepository) ListByTier(ctx context.Context, tier string) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("tier = ?", tier).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
