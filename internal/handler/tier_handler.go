package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/blindpi/arccm-api/internal/dto"
	"github.com/blindpi/arccm-api/internal/service"
	"github.com/blindpi/arccm-api/internal/utils"
)

// TierHandler exposes tier assignment endpoints.
type TierHandler struct {
	service service.TierService
	logger  zerolog.Logger
}

// NewTierHandler constructs the handler.
func NewTierHandler(service service.TierService, logger zerolog.Logger) *TierHandler {
	return &TierHandler{
		service: service,
		logger:  logger.With().Str("component", "tier_handler").Logger(),
	}
}

// Register wires tier routes onto the users group.
func (h *TierHandler) Register(router fiber.Router) {
	router.Post("/:userId/tier", h.switchTier)
	router.Post("/:userId/requirements/assign", h.assignRequirements)
	router.Get("/:userId/tier/history", h.history)
}

func (h *TierHandler) switchTier(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var payload dto.TierSwitchRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	outcome, err := h.service.SwitchUserTier(c.UserContext(), userID, payload.Tier, actorFromContext(c), payload.Reason)
	if err != nil {
		return h.handleError(c, err)
	}

	message := "tier switched"
	if outcome.NoOp {
		message = "tier unchanged"
	}
	return utils.SendSuccess(c, message, outcome)
}

func (h *TierHandler) assignRequirements(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var payload dto.AssignRequirementsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	summary, err := h.service.AssignTierRequirements(c.UserContext(), userID, payload.Role, payload.Tier, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "requirements reconciled", summary)
}

func (h *TierHandler) history(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	entries, err := h.service.TierHistoryForUser(c.UserContext(), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "tier history retrieved", entries)
}

func (h *TierHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrInvalidTier):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid tier")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("tier operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "tier operation failed")
	}
}
