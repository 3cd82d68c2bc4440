package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/blindpi/arccm-api/internal/service"
	"github.com/blindpi/arccm-api/internal/utils"
)

// SeedHandler exposes tooling endpoints for installing the default catalog.
type SeedHandler struct {
	service service.SeedService
	logger  zerolog.Logger
}

// NewSeedHandler constructs a seed handler.
func NewSeedHandler(service service.SeedService, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{
		service: service,
		logger:  logger.With().Str("component", "seed_handler").Logger(),
	}
}

// Register wires seed routes.
func (h *SeedHandler) Register(router fiber.Router) {
	router.Post("/catalog", h.catalog)
}

func (h *SeedHandler) catalog(c *fiber.Ctx) error {
	token := c.Get("X-Seed-Token")

	created, err := h.service.SeedCatalog(c.UserContext(), token)
	if err != nil {
		return h.seedError(c, err)
	}

	return utils.SendSuccess(c, "catalog seeded", fiber.Map{"created": created})
}

func (h *SeedHandler) seedError(c *fiber.Ctx, err error) error {
	switch err {
	case service.ErrSeedDisabled:
		return utils.SendError(c, fiber.StatusForbidden, "seeding disabled")
	case service.ErrSeedUnauthorized:
		return utils.SendError(c, fiber.StatusForbidden, "invalid token")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("seed operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "seed operation failed")
	}
}
