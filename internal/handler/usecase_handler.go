package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/promptlab-dev/promptlab-api/internal/dto"
	"github.com/promptlab-dev/promptlab-api/internal/service"
	"github.com/promptlab-dev/promptlab-api/internal/utils"
)

// UseCaseHandler wires use case generation routes.
type UseCaseHandler struct {
	service service.UseCaseService
	logger  zerolog.Logger
}

// NewUseCaseHandler constructs the handler.
func NewUseCaseHandler(service service.UseCaseService, logger zerolog.Logger) *UseCaseHandler {
	return &UseCaseHandler{
		service: service,
		logger:  logger.With().Str("component", "usecase_handler").Logger(),
	}
}

// Register attaches the use case endpoints to the router group.
func (h *UseCaseHandler) Register(router fiber.Router) {
	router.Post("/generate", h.generate)
}

func (h *UseCaseHandler) generate(c *fiber.Ctx) error {
	var payload dto.GenerateUseCasesRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Generate(withRequestContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "use cases generated", response)
}

func (h *UseCaseHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrGeneratorUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "use case generator unavailable")
	case errors.Is(err, service.ErrUpstreamFailure):
		return utils.SendError(c, fiber.StatusBadGateway, "use case generation failed")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
