package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/blindpi/arccm-api/internal/dto"
	"github.com/blindpi/arccm-api/internal/service"
	"github.com/blindpi/arccm-api/internal/utils"
)

// CatalogHandler exposes the requirement definition catalog.
type CatalogHandler struct {
	service service.CatalogService
	logger  zerolog.Logger
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(service service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger.With().Str("component", "catalog_handler").Logger(),
	}
}

// Register wires catalog routes. The create route is attached separately so
// the router can gate it behind admin roles.
func (h *CatalogHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

// RegisterAdmin wires catalog administration routes.
func (h *CatalogHandler) RegisterAdmin(router fiber.Router) {
	router.Post("", h.create)
}

func (h *CatalogHandler) list(c *fiber.Ctx) error {
	filter := dto.DefinitionFilter{
		Role: c.Query("role"),
		Tier: c.Query("tier"),
	}

	definitions, err := h.service.ListDefinitions(c.UserContext(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "requirement definitions retrieved", definitions)
}

func (h *CatalogHandler) create(c *fiber.Ctx) error {
	var payload dto.DefinitionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	definition, err := h.service.CreateDefinition(c.UserContext(), payload, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "requirement definition created", definition)
}

func (h *CatalogHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidRole):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid role")
	case errors.Is(err, service.ErrInvalidValidationRules):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("catalog operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "catalog operation failed")
	}
}
