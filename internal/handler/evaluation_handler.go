package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/promptlab-dev/promptlab-api/internal/dto"
	"github.com/promptlab-dev/promptlab-api/internal/service"
	"github.com/promptlab-dev/promptlab-api/internal/utils"
)

// EvaluationHandler wires prompt evaluation and history routes.
type EvaluationHandler struct {
	evaluations  service.EvaluationService
	editSessions service.EditSessionService
	logger       zerolog.Logger
}

// NewEvaluationHandler constructs the handler.
func NewEvaluationHandler(evaluations service.EvaluationService, editSessions service.EditSessionService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		evaluations:  evaluations,
		editSessions: editSessions,
		logger:       logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register attaches the evaluation endpoints to the router group.
func (h *EvaluationHandler) Register(router fiber.Router) {
	router.Post("", h.evaluate)
	router.Get("", h.history)
	router.Get("/:id", h.get)
	router.Post("/:id/edit-session", h.createEditSession)
}

// RegisterEditSessions attaches the edit session consumption endpoint.
func (h *EvaluationHandler) RegisterEditSessions(router fiber.Router) {
	router.Get("/:token", h.consumeEditSession)
}

func (h *EvaluationHandler) evaluate(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.EvaluatePromptRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.evaluations.Evaluate(withRequestContext(c), userID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "prompt evaluated", response)
}

func (h *EvaluationHandler) history(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	history, err := h.evaluations.History(withRequestContext(c), userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluations retrieved", history)
}

func (h *EvaluationHandler) get(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	evaluation, err := h.evaluations.Get(withRequestContext(c), id, userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation retrieved", evaluation)
}

func (h *EvaluationHandler) createEditSession(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	session, err := h.editSessions.Create(withRequestContext(c), id, userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "edit session created", session)
}

func (h *EvaluationHandler) consumeEditSession(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	token := strings.TrimSpace(c.Params("token"))
	if token == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "edit session token required")
	}

	session, err := h.editSessions.Consume(withRequestContext(c), token, userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "edit session consumed", session)
}

func (h *EvaluationHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err), errors.Is(err, service.ErrUseCaseSelection):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrEvaluationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "evaluation not found")
	case errors.Is(err, service.ErrEditSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "edit session not found")
	case errors.Is(err, service.ErrEvaluationForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "evaluation belongs to another user")
	case errors.Is(err, service.ErrEvaluatorUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "prompt evaluator unavailable")
	case errors.Is(err, service.ErrUpstreamFailure):
		return utils.SendError(c, fiber.StatusBadGateway, "prompt evaluation failed")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
