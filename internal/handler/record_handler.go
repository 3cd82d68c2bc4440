package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/blindpi/arccm-api/internal/dto"
	"github.com/blindpi/arccm-api/internal/service"
	"github.com/blindpi/arccm-api/internal/utils"
)

// RecordHandler exposes compliance record endpoints.
type RecordHandler struct {
	service service.RecordService
	logger  zerolog.Logger
}

// NewRecordHandler constructs the handler.
func NewRecordHandler(service service.RecordService, logger zerolog.Logger) *RecordHandler {
	return &RecordHandler{
		service: service,
		logger:  logger.With().Str("component", "record_handler").Logger(),
	}
}

// RegisterUserRoutes wires the per-user record listing onto the users group.
func (h *RecordHandler) RegisterUserRoutes(router fiber.Router) {
	router.Get("/:userId/requirements", h.listForUser)
}

// Register wires record transition routes onto the records group.
func (h *RecordHandler) Register(router fiber.Router) {
	router.Patch("/:recordId/status", h.transition)
}

func (h *RecordHandler) listForUser(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	includeSuperseded := parseQueryBool(c, "include_superseded")

	records, err := h.service.GetRecordsForUser(c.UserContext(), userID, includeSuperseded)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "requirements retrieved", records)
}

func (h *RecordHandler) transition(c *fiber.Ctx) error {
	recordID, err := parseUintParam(c, "recordId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid record id")
	}

	var payload dto.RecordTransitionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	record, err := h.service.Transition(c.UserContext(), recordID, payload, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "record transitioned", record)
}

func (h *RecordHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrRecordNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "record not found")
	case errors.Is(err, service.ErrRecordSuperseded):
		return utils.SendError(c, fiber.StatusConflict, "record superseded")
	case errors.Is(err, service.ErrRecordConflict):
		return utils.SendError(c, fiber.StatusConflict, "record modified concurrently, re-fetch and retry")
	case errors.Is(err, service.ErrInvalidTransition):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "invalid status transition")
	case errors.Is(err, service.ErrWaiveForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "waiving requires an admin role")
	case errors.Is(err, service.ErrEvidenceRequired):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "resubmission requires new evidence")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("record operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "record operation failed")
	}
}
