package service

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/blindpi/arccm-api/internal/dto"
	"github.com/blindpi/arccm-api/internal/models"
	"github.com/blindpi/arccm-api/internal/repository"
)

// UserLocks serializes mutations per user. Tier switches and role
// progressions for the same user must not interleave; operations on
// different users proceed concurrently. Entries are never evicted, which is
// acceptable for the bounded user population this engine serves.
type UserLocks struct {
	locks sync.Map
}

// NewUserLocks constructs the per-user lock registry.
func NewUserLocks() *UserLocks {
	return &UserLocks{}
}

// Lock acquires the critical section for a user and returns its release func.
func (l *UserLocks) Lock(userID uint) func() {
	value, _ := l.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// AssignmentEngine materializes a user's compliance records from the
// requirement catalog and reconciles them when role or tier changes. All
// writes go through the supplied transaction so readers observe either the
// pre- or post-reconciliation record set, never a mix.
type AssignmentEngine struct {
	requirements repository.RequirementRepository
	records      repository.RecordRepository
	now          func() time.Time
}

// NewAssignmentEngine constructs the reconciliation engine.
func NewAssignmentEngine(requirements repository.RequirementRepository, records repository.RecordRepository) *AssignmentEngine {
	return &AssignmentEngine{
		requirements: requirements,
		records:      records,
		now:          time.Now,
	}
}

// Reconcile brings the user's active record set in line with the catalog
// template for (role, tier):
//   - definitions without an active record get a fresh pending record with
//     dueDate = now + dueDaysFromAssignment
//   - active records whose requirement survives in the new template are
//     carried forward untouched, approved work included; a definition with
//     the same (role, name) on another tier is the same requirement, so its
//     record is repointed at the new tier's variant instead of being reset
//   - active records whose requirement is absent from the template are
//     marked inactive, retained for audit
//
// Calling twice with an unchanged template performs zero additional writes.
func (e *AssignmentEngine) Reconcile(ctx context.Context, tx *gorm.DB, userID uint, role, tier string) (dto.AssignmentSummary, error) {
	definitions, err := e.requirements.ListForRoleTier(ctx, role, tier)
	if err != nil {
		return dto.AssignmentSummary{}, err
	}

	existing, err := e.records.ListForUser(ctx, userID, false)
	if err != nil {
		return dto.AssignmentSummary{}, err
	}

	activeByRequirement := make(map[uint]models.ComplianceRecord, len(existing))
	activeByName := make(map[string]models.ComplianceRecord, len(existing))
	for _, record := range existing {
		activeByRequirement[record.RequirementID] = record
		if record.Requirement.ID != 0 {
			activeByName[record.Requirement.Role+"/"+record.Requirement.Name] = record
		}
	}

	summary := dto.AssignmentSummary{}
	now := e.now()
	kept := make(map[uint]bool, len(existing))

	for _, definition := range definitions {
		if record, ok := activeByRequirement[definition.ID]; ok {
			kept[record.ID] = true
			summary.Carried++
			continue
		}

		if record, ok := activeByName[definition.Role+"/"+definition.Name]; ok && !kept[record.ID] {
			if err := e.records.Reassign(ctx, tx, record.ID, definition.ID, tier); err != nil {
				return dto.AssignmentSummary{}, err
			}
			kept[record.ID] = true
			summary.Carried++
			continue
		}

		record := models.ComplianceRecord{
			UserID:        userID,
			RequirementID: definition.ID,
			Tier:          tier,
			Status:        models.StatusPending,
			Active:        true,
			DueDate:       now.AddDate(0, 0, definition.DueDaysFromAssignment),
		}
		if err := e.records.Create(ctx, tx, &record); err != nil {
			return dto.AssignmentSummary{}, err
		}
		summary.Created++
	}

	var superseded []uint
	for _, record := range existing {
		if !kept[record.ID] {
			superseded = append(superseded, record.ID)
		}
	}
	if err := e.records.Supersede(ctx, tx, superseded); err != nil {
		return dto.AssignmentSummary{}, err
	}
	summary.Superseded = len(superseded)

	return summary, nil
}
