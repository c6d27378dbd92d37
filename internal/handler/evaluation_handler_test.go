package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/promptlab-dev/promptlab-api/internal/dto"
	"github.com/promptlab-dev/promptlab-api/internal/handler"
	"github.com/promptlab-dev/promptlab-api/internal/service"
)

type mockEvaluationService struct {
	lastUserID  uint
	lastPayload dto.EvaluatePromptRequest
	response    dto.EvaluationResponse
	history     []dto.EvaluationResponse
	err         error
}

func (m *mockEvaluationService) Evaluate(_ context.Context, userID uint, payload dto.EvaluatePromptRequest) (dto.EvaluationResponse, error) {
	m.lastUserID = userID
	m.lastPayload = payload
	if m.err != nil {
		return dto.EvaluationResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockEvaluationService) History(_ context.Context, userID uint) ([]dto.EvaluationResponse, error) {
	m.lastUserID = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.history, nil
}

func (m *mockEvaluationService) Get(_ context.Context, id, userID uint) (dto.EvaluationResponse, error) {
	m.lastUserID = userID
	if m.err != nil {
		return dto.EvaluationResponse{}, m.err
	}
	return m.response, nil
}

type mockEditSessionService struct {
	created  dto.EditSessionTokenResponse
	consumed dto.EditSession
	err      error
}

func (m *mockEditSessionService) Create(_ context.Context, evaluationID, userID uint) (dto.EditSessionTokenResponse, error) {
	if m.err != nil {
		return dto.EditSessionTokenResponse{}, m.err
	}
	return m.created, nil
}

func (m *mockEditSessionService) Consume(_ context.Context, token string, userID uint) (dto.EditSession, error) {
	if m.err != nil {
		return dto.EditSession{}, m.err
	}
	return m.consumed, nil
}

func newEvaluationApp(evaluations service.EvaluationService, editSessions service.EditSessionService, userID uint) *fiber.App {
	app := fiber.New()
	authenticated := func(c *fiber.Ctx) error {
		if userID != 0 {
			c.Locals("user_id", userID)
		}
		return c.Next()
	}

	h := handler.NewEvaluationHandler(evaluations, editSessions, zerolog.New(io.Discard))
	h.Register(app.Group("/api/v2/evaluations", authenticated))
	h.RegisterEditSessions(app.Group("/api/v2/edit-sessions", authenticated))
	return app
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(body, target))
}

func TestEvaluationHandler_EvaluateSuccess(t *testing.T) {
	useCase := "Summarize weekly reports"
	svc := &mockEvaluationService{response: dto.EvaluationResponse{
		ID:      1,
		UseCase: &useCase,
		Prompt:  "Summarize the report.",
		Score:   7,
		Saved:   true,
	}}
	app := newEvaluationApp(svc, &mockEditSessionService{}, 42)

	body, err := json.Marshal(dto.EvaluatePromptRequest{UseCase: useCase, Prompt: "Summarize the report."})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/evaluations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var response struct {
		Success bool                   `json:"success"`
		Data    dto.EvaluationResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)

	require.True(t, response.Success)
	require.True(t, response.Data.Saved)
	require.Equal(t, uint(42), svc.lastUserID)
}

func TestEvaluationHandler_EvaluateRequiresAuth(t *testing.T) {
	app := newEvaluationApp(&mockEvaluationService{}, &mockEditSessionService{}, 0)

	body, err := json.Marshal(dto.EvaluatePromptRequest{UseCase: "x", Prompt: "y"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/evaluations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestEvaluationHandler_ServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "selection", err: service.ErrUseCaseSelection, statusCode: fiber.StatusBadRequest},
		{name: "not found", err: service.ErrEvaluationNotFound, statusCode: fiber.StatusNotFound},
		{name: "forbidden", err: service.ErrEvaluationForbidden, statusCode: fiber.StatusForbidden},
		{name: "unavailable", err: service.ErrEvaluatorUnavailable, statusCode: fiber.StatusServiceUnavailable},
		{name: "upstream", err: errors.Join(service.ErrUpstreamFailure, errors.New("429")), statusCode: fiber.StatusBadGateway},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newEvaluationApp(&mockEvaluationService{err: tc.err}, &mockEditSessionService{}, 42)

			body, err := json.Marshal(dto.EvaluatePromptRequest{UseCase: "x", Prompt: "y"})
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/api/v2/evaluations", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}

func TestEvaluationHandler_History(t *testing.T) {
	svc := &mockEvaluationService{history: []dto.EvaluationResponse{{ID: 2, Saved: true}, {ID: 1, Saved: true}}}
	app := newEvaluationApp(svc, &mockEditSessionService{}, 42)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/evaluations", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data []dto.EvaluationResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Len(t, response.Data, 2)
	require.Equal(t, uint(42), svc.lastUserID)
}

func TestEvaluationHandler_GetInvalidID(t *testing.T) {
	app := newEvaluationApp(&mockEvaluationService{}, &mockEditSessionService{}, 42)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/evaluations/abc", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestEvaluationHandler_CreateEditSession(t *testing.T) {
	editSessions := &mockEditSessionService{created: dto.EditSessionTokenResponse{
		Token:     "9e8cf4f0-3a68-4ef9-9a9d-5cf4c2f2a001",
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}}
	app := newEvaluationApp(&mockEvaluationService{}, editSessions, 42)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/evaluations/1/edit-session", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var response struct {
		Data dto.EditSessionTokenResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, editSessions.created.Token, response.Data.Token)
}

func TestEvaluationHandler_ConsumeEditSession(t *testing.T) {
	useCase := "Summarize weekly reports"
	editSessions := &mockEditSessionService{consumed: dto.EditSession{
		EvaluationID: 1,
		UseCase:      &useCase,
		Prompt:       "Summarize the report.",
	}}
	app := newEvaluationApp(&mockEvaluationService{}, editSessions, 42)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/edit-sessions/9e8cf4f0-3a68-4ef9-9a9d-5cf4c2f2a001", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data dto.EditSession `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, uint(1), response.Data.EvaluationID)
}

func TestEvaluationHandler_ConsumeExpiredEditSession(t *testing.T) {
	app := newEvaluationApp(&mockEvaluationService{}, &mockEditSessionService{err: service.ErrEditSessionNotFound}, 42)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/edit-sessions/expired-token", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
