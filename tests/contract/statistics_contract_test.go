package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/blindpi/arccm-api/internal/dto"
	"github.com/blindpi/arccm-api/internal/handler"
)

type stubStatisticsService struct {
	response dto.TierStatisticsResponse
}

func (s stubStatisticsService) TierStatistics(context.Context) (dto.TierStatisticsResponse, error) {
	return s.response, nil
}

func (s stubStatisticsService) Invalidate(context.Context) {}

func TestTierStatisticsContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "tier_statistics.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	response := dto.TierStatisticsResponse{
		BasicTierUsers:      12,
		RobustTierUsers:     4,
		BasicCompletionAvg:  33.33,
		RobustCompletionAvg: 87.5,
		GeneratedAt:         time.Now().UTC(),
	}

	svc := stubStatisticsService{response: response}
	statisticsHandler := handler.NewStatisticsHandler(svc, zerolog.Nop())

	app := fiber.New()
	group := app.Group("/api/v1/compliance/statistics", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(1))
		c.Locals("user_role", "AD")
		return c.Next()
	})
	statisticsHandler.Register(group)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/compliance/statistics/tiers", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "false", resp.Header.Get("X-Cache-Hit"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
