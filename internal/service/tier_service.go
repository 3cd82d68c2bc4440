package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
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

var (
	// ErrUserNotFound indicates the user does not exist in the directory mirror.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidTier indicates the requested tier is not assignable.
	ErrInvalidTier = errors.New("invalid tier")
	// ErrPersistence wraps storage failures; the enclosing operation was
	// fully rolled back.
	ErrPersistence = errors.New("persistence failure")
)

// TierService switches user tiers and materializes requirement records.
type TierService interface {
	SwitchUserTier(ctx context.Context, userID uint, newTier string, actor Actor, reason string) (dto.TierSwitchOutcome, error)
	AssignTierRequirements(ctx context.Context, userID uint, role, tier string, actor Actor) (dto.AssignmentSummary, error)
	TierHistoryForUser(ctx context.Context, userID uint) ([]dto.TierHistoryResponse, error)
}

type tierService struct {
	db          *gorm.DB
	users       repository.UserRepository
	history     repository.TierHistoryRepository
	engine      *AssignmentEngine
	locks       *UserLocks
	audit       AuditRecorder
	feed        ChangeFeedService
	invalidator CacheInvalidator
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewTierService constructs the tier assignment service.
func NewTierService(db *gorm.DB, users repository.UserRepository, history repository.TierHistoryRepository, engine *AssignmentEngine, locks *UserLocks, audit AuditRecorder, feed ChangeFeedService, invalidator CacheInvalidator, logger zerolog.Logger) TierService {
	return &tierService{
		db:          db,
		users:       users,
		history:     history,
		engine:      engine,
		locks:       locks,
		audit:       audit,
		feed:        feed,
		invalidator: invalidator,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "tier_service").Logger(),
		now:         time.Now,
	}
}

func (s *tierService) SwitchUserTier(ctx context.Context, userID uint, newTier string, actor Actor, reason string) (dto.TierSwitchOutcome, error) {
	tracer := otel.Tracer("github.com/blindpi/arccm-api/internal/service/tier")
	ctx, span := tracer.Start(ctx, "tier.switch")
	span.SetAttributes(
		attribute.Int64("tier.user_id", int64(userID)),
		attribute.String("tier.new", newTier),
	)
	defer span.End()

	if !models.ValidTier(newTier) {
		span.SetStatus(codes.Error, "invalid_tier")
		return dto.TierSwitchOutcome{}, ErrInvalidTier
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "user_not_found")
			return dto.TierSwitchOutcome{}, ErrUserNotFound
		}
		span.RecordError(err)
		return dto.TierSwitchOutcome{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	// Re-invoking with the current tier is a no-op success: no history row,
	// no record churn.
	if user.Tier == newTier {
		span.SetAttributes(attribute.Bool("tier.no_op", true))
		return dto.TierSwitchOutcome{
			UserID:       userID,
			PreviousTier: user.Tier,
			NewTier:      newTier,
			NoOp:         true,
		}, nil
	}

	cleanReason := strings.TrimSpace(s.sanitizer.Sanitize(reason))

	var summary dto.AssignmentSummary
	err = s.db.Transaction(func(tx *gorm.DB) error {
		entry := models.TierHistory{
			UserID:       userID,
			PreviousTier: user.Tier,
			NewTier:      newTier,
			ChangedBy:    actor.ID,
			Reason:       cleanReason,
		}
		if err := s.history.Create(ctx, tx, &entry); err != nil {
			return err
		}

		if err := s.users.UpdateTier(ctx, tx, userID, newTier); err != nil {
			return err
		}

		reconciled, err := s.engine.Reconcile(ctx, tx, userID, user.Role, newTier)
		if err != nil {
			return err
		}
		summary = reconciled

		return s.audit.RecordInTx(ctx, tx, AuditEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "tier.switched",
			EntityType: "user",
			EntityID:   &userID,
			Metadata: map[string]interface{}{
				"previous_tier": user.Tier,
				"new_tier":      newTier,
				"reason":        cleanReason,
				"created":       reconciled.Created,
				"superseded":    reconciled.Superseded,
			},
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tier_switch_failed")
		return dto.TierSwitchOutcome{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.afterMutation(ctx, dto.RecordChangeEvent{
		UserID: userID,
		Action: "tier.switched",
		Tier:   newTier,
	})
	observability.TierSwitchesTotal().WithLabelValues(newTier).Inc()

	s.logger.Info().
		Uint("user_id", userID).
		Str("previous_tier", user.Tier).
		Str("new_tier", newTier).
		Int("created", summary.Created).
		Int("superseded", summary.Superseded).
		Msg("tier switched")

	return dto.TierSwitchOutcome{
		UserID:       userID,
		PreviousTier: user.Tier,
		NewTier:      newTier,
		Summary:      summary,
	}, nil
}

func (s *tierService) AssignTierRequirements(ctx context.Context, userID uint, role, tier string, actor Actor) (dto.AssignmentSummary, error) {
	if !models.ValidTier(tier) {
		return dto.AssignmentSummary{}, ErrInvalidTier
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentSummary{}, ErrUserNotFound
		}
		return dto.AssignmentSummary{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	var summary dto.AssignmentSummary
	err := s.db.Transaction(func(tx *gorm.DB) error {
		reconciled, err := s.engine.Reconcile(ctx, tx, userID, role, tier)
		if err != nil {
			return err
		}
		summary = reconciled

		// Pure re-invocation with an unchanged template leaves no trace.
		if reconciled.Created == 0 && reconciled.Superseded == 0 {
			return nil
		}

		return s.audit.RecordInTx(ctx, tx, AuditEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "requirements.assigned",
			EntityType: "user",
			EntityID:   &userID,
			Metadata: map[string]interface{}{
				"role":       role,
				"tier":       tier,
				"created":    reconciled.Created,
				"superseded": reconciled.Superseded,
			},
		})
	})
	if err != nil {
		return dto.AssignmentSummary{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if summary.Created > 0 || summary.Superseded > 0 {
		s.afterMutation(ctx, dto.RecordChangeEvent{
			UserID: userID,
			Action: "requirements.assigned",
			Tier:   tier,
		})
	}

	return summary, nil
}

func (s *tierService) TierHistoryForUser(ctx context.Context, userID uint) ([]dto.TierHistoryResponse, error) {
	entries, err := s.history.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewTierHistoryResponseSlice(entries), nil
}

func (s *tierService) afterMutation(ctx context.Context, event dto.RecordChangeEvent) {
	if s.feed != nil {
		s.feed.PublishRecordChange(ctx, event)
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
}
