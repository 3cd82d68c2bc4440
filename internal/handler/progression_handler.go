package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/blindpi/arccm-api/internal/dto"
	"github.com/blindpi/arccm-api/internal/service"
	"github.com/blindpi/arccm-api/internal/utils"
)

// ProgressionHandler exposes role progression endpoints.
type ProgressionHandler struct {
	service service.ProgressionService
	logger  zerolog.Logger
}

// NewProgressionHandler constructs the handler.
func NewProgressionHandler(service service.ProgressionService, logger zerolog.Logger) *ProgressionHandler {
	return &ProgressionHandler{
		service: service,
		logger:  logger.With().Str("component", "progression_handler").Logger(),
	}
}

// Register wires progression routes onto the users group.
func (h *ProgressionHandler) Register(router fiber.Router) {
	router.Get("/:userId/progression", h.report)
	router.Post("/:userId/progression", h.trigger)
}

func (h *ProgressionHandler) report(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	report, err := h.service.GenerateProgressionReport(c.UserContext(), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "progression report generated", report)
}

func (h *ProgressionHandler) trigger(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var payload dto.ProgressionTriggerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	outcome, err := h.service.TriggerAutomatedProgression(c.UserContext(), userID, payload.TargetRole, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "role progression applied", outcome)
}

func (h *ProgressionHandler) handleError(c *fiber.Ctx, err error) error {
	var notEligible *service.NotEligibleError
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrInvalidProgressionTarget):
		return utils.SendError(c, fiber.StatusBadRequest, "target role is not reachable from the current role")
	case errors.As(err, &notEligible):
		return utils.SendErrorWithData(c, fiber.StatusUnprocessableEntity, "progression requirements not met", fiber.Map{
			"target_role":           notEligible.TargetRole,
			"blocking_requirements": notEligible.Blocking,
		})
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("progression operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "progression operation failed")
	}
}
