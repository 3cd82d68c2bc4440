package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/blindpi/arccm-api/internal/service"
	"github.com/blindpi/arccm-api/internal/utils"
)

// StatisticsHandler exposes tier-level compliance aggregates.
type StatisticsHandler struct {
	service service.StatisticsService
	logger  zerolog.Logger
}

// NewStatisticsHandler constructs the handler.
func NewStatisticsHandler(service service.StatisticsService, logger zerolog.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		service: service,
		logger:  logger.With().Str("component", "statistics_handler").Logger(),
	}
}

// Register wires statistics routes.
func (h *StatisticsHandler) Register(router fiber.Router) {
	router.Get("/tiers", h.tiers)
}

func (h *StatisticsHandler) tiers(c *fiber.Ctx) error {
	response, err := h.service.TierStatistics(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to aggregate tier statistics")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to aggregate tier statistics")
	}

	if response.CacheHit {
		c.Set("X-Cache-Hit", "true")
	} else {
		c.Set("X-Cache-Hit", "false")
	}

	return utils.SendSuccess(c, "tier statistics retrieved", response)
}
