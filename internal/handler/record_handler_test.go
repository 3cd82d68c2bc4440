package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/blindpi/arccm-api/internal/dto"
	"github.com/blindpi/arccm-api/internal/service"
)

type stubRecordService struct {
	records       []dto.RecordResponse
	transitioned  dto.RecordResponse
	transitionErr error
}

func (s stubRecordService) GetRecordsForUser(context.Context, uint, bool) ([]dto.RecordResponse, error) {
	return s.records, nil
}

func (s stubRecordService) Transition(context.Context, uint, dto.RecordTransitionRequest, service.Actor) (dto.RecordResponse, error) {
	if s.transitionErr != nil {
		return dto.RecordResponse{}, s.transitionErr
	}
	return s.transitioned, nil
}

func recordTestApp(svc service.RecordService) *fiber.App {
	app := fiber.New()
	handler := NewRecordHandler(svc, zerolog.Nop())

	authenticated := func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(1))
		c.Locals("user_role", "IT")
		return c.Next()
	}

	users := app.Group("/users", authenticated)
	handler.RegisterUserRoutes(users)
	records := app.Group("/records", authenticated)
	handler.Register(records)

	return app
}

func transitionRequest(t *testing.T, recordID string) *http.Request {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"status":               "in_progress",
		"last_seen_updated_at": time.Now().UTC(),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPatch, "/records/"+recordID+"/status", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRecordHandlerTransitionSuccess(t *testing.T) {
	svc := stubRecordService{transitioned: dto.RecordResponse{ID: 5, Status: "in_progress", Progress: 50}}
	app := recordTestApp(svc)

	resp, err := app.Test(transitionRequest(t, "5"))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRecordHandlerTransitionErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", service.ErrRecordNotFound, fiber.StatusNotFound},
		{"superseded", service.ErrRecordSuperseded, fiber.StatusConflict},
		{"conflict", service.ErrRecordConflict, fiber.StatusConflict},
		{"invalid transition", service.ErrInvalidTransition, fiber.StatusUnprocessableEntity},
		{"waive forbidden", service.ErrWaiveForbidden, fiber.StatusForbidden},
		{"evidence required", service.ErrEvidenceRequired, fiber.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := recordTestApp(stubRecordService{transitionErr: tc.err})

			resp, err := app.Test(transitionRequest(t, "5"))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestRecordHandlerRejectsBadIdentifiers(t *testing.T) {
	app := recordTestApp(stubRecordService{})

	resp, err := app.Test(transitionRequest(t, "abc"))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/users/0/requirements", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
