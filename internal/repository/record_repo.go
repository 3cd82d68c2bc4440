package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/blindpi/arccm-api/internal/models"
)

// RecordRepository persists per-user compliance records. All mutation
// helpers accept an optional transaction so the tier assignment engine can
// apply a reconciliation as a single atomic unit.
type RecordRepository interface {
	ListForUser(ctx context.Context, userID uint, includeSuperseded bool) ([]models.ComplianceRecord, error)
	ListActiveForUsers(ctx context.Context, userIDs []uint) ([]models.ComplianceRecord, error)
	GetByID(ctx context.Context, id uint) (models.ComplianceRecord, error)
	Create(ctx context.Context, tx *gorm.DB, record *models.ComplianceRecord) error
	UpdateIfUnmodified(ctx context.Context, record *models.ComplianceRecord, lastSeen time.Time) (bool, error)
	Reassign(ctx context.Context, tx *gorm.DB, recordID, requirementID uint, tier string) error
	Supersede(ctx context.Context, tx *gorm.DB, recordIDs []uint) error
}

type recordRepository struct {
	db *gorm.DB
}

// NewRecordRepository instantiates the record repository.
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.ComplianceRecord{}).Preload("Requirement")
}

func (r *recordRepository) ListForUser(ctx context.Context, userID uint, includeSuperseded bool) ([]models.ComplianceRecord, error) {
	query := r.baseQuery(ctx).Where("user_id = ?", userID)

	if !includeSuperseded {
		query = query.Where("active = ?", true)
	}

	var records []models.ComplianceRecord
	if err := query.Order("created_at ASC, id ASC").Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *recordRepository) ListActiveForUsers(ctx context.Context, userIDs []uint) ([]models.ComplianceRecord, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var records []models.ComplianceRecord
	if err := r.baseQuery(ctx).
		Where("user_id IN ?", userIDs).
		Where("active = ?", true).
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *recordRepository) GetByID(ctx context.Context, id uint) (models.ComplianceRecord, error) {
	var record models.ComplianceRecord
	if err := r.baseQuery(ctx).First(&record, id).Error; err != nil {
		return models.ComplianceRecord{}, err
	}
	return record, nil
}

func (r *recordRepository) Create(ctx context.Context, tx *gorm.DB, record *models.ComplianceRecord) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Create(record).Error
}

// UpdateIfUnmodified writes the record only when its stored updated_at still
// matches lastSeen. Returns false when a concurrent writer got there first.
func (r *recordRepository) UpdateIfUnmodified(ctx context.Context, record *models.ComplianceRecord, lastSeen time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ComplianceRecord{}).
		Where("id = ?", record.ID).
		Where("updated_at = ?", lastSeen).
		Updates(map[string]interface{}{
			"status":          record.Status,
			"evidence":        record.Evidence,
			"completion_date": record.CompletionDate,
			"updated_by":      record.UpdatedBy,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

// Reassign points a record at another catalog definition of the same
// requirement. A tier change swaps the definition variant underneath the
// record; status, evidence and completion date stay untouched.
func (r *recordRepository) Reassign(ctx context.Context, tx *gorm.DB, recordID, requirementID uint, tier string) error {
	db := r.db
	if tx != nil {
		db = tx
	}

	return db.WithContext(ctx).
		Model(&models.ComplianceRecord{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"requirement_id": requirementID,
			"tier":           tier,
		}).Error
}

func (r *recordRepository) Supersede(ctx context.Context, tx *gorm.DB, recordIDs []uint) error {
	if len(recordIDs) == 0 {
		return nil
	}

	db := r.db
	if tx != nil {
		db = tx
	}

	return db.WithContext(ctx).
		Model(&models.ComplianceRecord{}).
		Where("id IN ?", recordIDs).
		Update("active", false).Error
}
