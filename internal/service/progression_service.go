package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/blindpi/arccm-api/internal/dto"
	"github.com/blindpi/arccm-api/internal/models"
	"github.com/blindpi/arccm-api/internal/observability"
	"github.com/blindpi/arccm-api/internal/repository"
)

// ErrInvalidProgressionTarget indicates the target role is not reachable
// from the user's current role.
var ErrInvalidProgressionTarget = errors.New("target role is not a valid progression from the current role")

// NotEligibleError reports a refused progression along with the names of the
// mandatory requirements blocking it.
type NotEligibleError struct {
	TargetRole string
	Blocking   []string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("not eligible for progression to %s: blocked by %s", e.TargetRole, strings.Join(e.Blocking, ", "))
}

// ProgressionService evaluates role-progression readiness and applies
// automated progressions.
type ProgressionService interface {
	GenerateProgressionReport(ctx context.Context, userID uint) (dto.ProgressionReport, error)
	TriggerAutomatedProgression(ctx context.Context, userID uint, targetRole string, actor Actor) (dto.ProgressionOutcome, error)
}

type progressionService struct {
	db          *gorm.DB
	users       repository.UserRepository
	records     repository.RecordRepository
	progression repository.ProgressionRepository
	engine      *AssignmentEngine
	locks       *UserLocks
	audit       AuditRecorder
	feed        ChangeFeedService
	invalidator CacheInvalidator
	logger      zerolog.Logger
	now         func() time.Time
}

// NewProgressionService constructs the progression evaluator.
func NewProgressionService(db *gorm.DB, users repository.UserRepository, records repository.RecordRepository, progression repository.ProgressionRepository, engine *AssignmentEngine, locks *UserLocks, audit AuditRecorder, feed ChangeFeedService, invalidator CacheInvalidator, logger zerolog.Logger) ProgressionService {
	return &progressionService{
		db:          db,
		users:       users,
		records:     records,
		progression: progression,
		engine:      engine,
		locks:       locks,
		audit:       audit,
		feed:        feed,
		invalidator: invalidator,
		logger:      logger.With().Str("component", "progression_service").Logger(),
		now:         time.Now,
	}
}

// edgeEvaluation is the result of checking one role transition.
type edgeEvaluation struct {
	completed     []dto.ProgressionItem
	pending       []dto.ProgressionItem
	blocking      []string
	autoEligible  bool
	estimatedDays int
	earnedPoints  int
	totalPoints   int
}

func (s *progressionService) GenerateProgressionReport(ctx context.Context, userID uint) (dto.ProgressionReport, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressionReport{}, ErrUserNotFound
		}
		return dto.ProgressionReport{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	report := dto.ProgressionReport{
		UserID:                userID,
		CurrentRole:           user.Role,
		CompletedRequirements: []dto.ProgressionItem{},
		PendingRequirements:   []dto.ProgressionItem{},
		AvailableProgressions: []dto.AvailableProgression{},
		Recommendations:       []string{},
		GeneratedAt:           s.now().UTC(),
	}

	paths, err := s.progression.PathsFrom(ctx, user.Role)
	if err != nil {
		return dto.ProgressionReport{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	// Terminal role: nothing left to progress toward.
	if len(paths) == 0 {
		report.Progress = 100
		return report, nil
	}

	records, err := s.records.ListForUser(ctx, userID, false)
	if err != nil {
		return dto.ProgressionReport{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	recordsByName := indexRecords(records)

	for _, path := range paths {
		evaluation, err := s.evaluateEdge(ctx, user.Role, path.ToRole, recordsByName)
		if err != nil {
			return dto.ProgressionReport{}, err
		}
		report.AvailableProgressions = append(report.AvailableProgressions, dto.AvailableProgression{
			TargetRole:            path.ToRole,
			AutoEligible:          evaluation.autoEligible,
			EstimatedDaysToFinish: evaluation.estimatedDays,
		})
	}

	// The primary path (lowest display order) drives the headline report.
	primary := paths[0]
	nextRole := primary.ToRole
	report.NextRole = &nextRole

	evaluation, err := s.evaluateEdge(ctx, user.Role, primary.ToRole, recordsByName)
	if err != nil {
		return dto.ProgressionReport{}, err
	}

	report.CompletedRequirements = evaluation.completed
	report.PendingRequirements = evaluation.pending
	if evaluation.totalPoints > 0 {
		report.Progress = int(float64(evaluation.earnedPoints) / float64(evaluation.totalPoints) * 100)
	} else {
		report.Progress = 100
	}
	report.Recommendations = buildRecommendations(evaluation.pending)

	return report, nil
}

func (s *progressionService) TriggerAutomatedProgression(ctx context.Context, userID uint, targetRole string, actor Actor) (dto.ProgressionOutcome, error) {
	tracer := otel.Tracer("github.com/blindpi/arccm-api/internal/service/progression")
	ctx, span := tracer.Start(ctx, "progression.trigger")
	span.SetAttributes(
		attribute.Int64("progression.user_id", int64(userID)),
		attribute.String("progression.target_role", targetRole),
	)
	defer span.End()

	unlock := s.locks.Lock(userID)
	defer unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "user_not_found")
			return dto.ProgressionOutcome{}, ErrUserNotFound
		}
		span.RecordError(err)
		return dto.ProgressionOutcome{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	paths, err := s.progression.PathsFrom(ctx, user.Role)
	if err != nil {
		return dto.ProgressionOutcome{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !pathExists(paths, targetRole) {
		span.SetStatus(codes.Error, "invalid_target")
		return dto.ProgressionOutcome{}, ErrInvalidProgressionTarget
	}

	// Eligibility is always re-validated here; a cached report is never
	// trusted for a role change.
	records, err := s.records.ListForUser(ctx, userID, false)
	if err != nil {
		return dto.ProgressionOutcome{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	evaluation, err := s.evaluateEdge(ctx, user.Role, targetRole, indexRecords(records))
	if err != nil {
		return dto.ProgressionOutcome{}, err
	}
	if !evaluation.autoEligible {
		span.SetStatus(codes.Error, "not_eligible")
		observability.ProgressionAttemptsTotal().WithLabelValues("rejected").Inc()
		return dto.ProgressionOutcome{}, &NotEligibleError{TargetRole: targetRole, Blocking: evaluation.blocking}
	}

	var summary dto.AssignmentSummary
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.users.UpdateRole(ctx, tx, userID, targetRole); err != nil {
			return err
		}

		if models.ValidTier(user.Tier) {
			reconciled, err := s.engine.Reconcile(ctx, tx, userID, targetRole, user.Tier)
			if err != nil {
				return err
			}
			summary = reconciled
		}

		return s.audit.RecordInTx(ctx, tx, AuditEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "role.progressed",
			EntityType: "user",
			EntityID:   &userID,
			Metadata: map[string]interface{}{
				"previous_role": user.Role,
				"new_role":      targetRole,
				"tier":          user.Tier,
			},
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "progression_failed")
		observability.ProgressionAttemptsTotal().WithLabelValues("failed").Inc()
		return dto.ProgressionOutcome{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if s.feed != nil {
		s.feed.PublishRecordChange(ctx, dto.RecordChangeEvent{
			UserID: userID,
			Action: "role.progressed",
			Tier:   user.Tier,
		})
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	observability.ProgressionAttemptsTotal().WithLabelValues("applied").Inc()

	s.logger.Info().
		Uint("user_id", userID).
		Str("previous_role", user.Role).
		Str("new_role", targetRole).
		Msg("role progression applied")

	return dto.ProgressionOutcome{
		UserID:       userID,
		PreviousRole: user.Role,
		NewRole:      targetRole,
		Summary:      summary,
	}, nil
}

func (s *progressionService) evaluateEdge(ctx context.Context, fromRole, toRole string, recordsByName map[string]models.ComplianceRecord) (edgeEvaluation, error) {
	mappings, err := s.progression.RequirementsForEdge(ctx, fromRole, toRole)
	if err != nil {
		return edgeEvaluation{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	evaluation := edgeEvaluation{
		completed:    []dto.ProgressionItem{},
		pending:      []dto.ProgressionItem{},
		autoEligible: true,
	}

	for _, mapping := range mappings {
		requirement := mapping.Requirement

		status := models.StatusPending
		if record, ok := recordsByName[requirement.Name]; ok {
			status = record.Status
		}

		item := dto.ProgressionItem{
			RequirementID: mapping.RequirementID,
			Name:          requirement.Name,
			Category:      requirement.Category,
			Mandatory:     requirement.Mandatory,
			Status:        status,
			Progress:      models.StatusProgress(status),
		}

		if requirement.Mandatory {
			evaluation.totalPoints += requirement.PointsValue
		}

		if models.TerminalStatus(status) {
			evaluation.completed = append(evaluation.completed, item)
			if requirement.Mandatory {
				evaluation.earnedPoints += requirement.PointsValue
			}
			continue
		}

		evaluation.pending = append(evaluation.pending, item)
		if requirement.Mandatory {
			evaluation.autoEligible = false
			evaluation.blocking = append(evaluation.blocking, requirement.Name)
			if requirement.DueDaysFromAssignment > evaluation.estimatedDays {
				evaluation.estimatedDays = requirement.DueDaysFromAssignment
			}
		}
	}

	sort.Strings(evaluation.blocking)
	return evaluation, nil
}

// indexRecords keys active records by requirement name. Gating mappings
// reference one catalog variant of a requirement, while the user's records
// point at whichever tier's variant they currently hold; the name is the
// identity shared by both.
func indexRecords(records []models.ComplianceRecord) map[string]models.ComplianceRecord {
	indexed := make(map[string]models.ComplianceRecord, len(records))
	for _, record := range records {
		if record.Requirement.ID == 0 {
			continue
		}
		indexed[record.Requirement.Name] = record
	}
	return indexed
}

func pathExists(paths []models.ProgressionPath, targetRole string) bool {
	for _, path := range paths {
		if path.ToRole == targetRole {
			return true
		}
	}
	return false
}

func buildRecommendations(pending []dto.ProgressionItem) []string {
	recommendations := make([]string, 0, len(pending))
	for _, item := range pending {
		switch item.Status {
		case models.StatusRejected:
			recommendations = append(recommendations, fmt.Sprintf("Resubmit evidence for %s", item.Name))
		case models.StatusSubmitted:
			recommendations = append(recommendations, fmt.Sprintf("%s is awaiting review", item.Name))
		default:
			recommendations = append(recommendations, fmt.Sprintf("Complete %s", item.Name))
		}
	}
	return recommendations
}
