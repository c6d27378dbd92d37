package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/promptlab-dev/promptlab-api/internal/service"
	"github.com/promptlab-dev/promptlab-api/internal/utils"
)

// AdminHandler wires the admin rollup routes.
type AdminHandler struct {
	service service.AdminService
	logger  zerolog.Logger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(service service.AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register attaches the admin endpoints to the router group.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/evaluations", h.evaluations)
	router.Get("/summary", h.summary)
}

func (h *AdminHandler) evaluations(c *fiber.Ctx) error {
	rows, err := h.service.RecentEvaluations(withRequestContext(c))
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "recent evaluations retrieved", rows)
}

func (h *AdminHandler) summary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(withRequestContext(c))
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "summary retrieved", summary)
}

func (h *AdminHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
