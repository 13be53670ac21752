package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/dto"
	"github.com/hireloop/hireloop-api/internal/service"
	"github.com/hireloop/hireloop-api/internal/utils"
)

// SubmissionHandler manages the candidate-facing token-gated endpoints. The
// token in the path is the candidate's only credential; there is no session.
type SubmissionHandler struct {
	service   service.SubmissionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, validator *validator.Validate, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("/token/:token", h.get)
	router.Post("/token/:token/start", h.start)
	router.Post("/token/:token/submit", h.submit)
	router.Post("/token/:token/opt-out", h.optOut)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	submission, err := h.service.GetByToken(c.Context(), h.token(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) start(c *fiber.Ctx) error {
	submission, err := h.service.Start(c.Context(), h.token(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission started", submission)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.Submit(c.Context(), h.token(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission received", submission)
}

func (h *SubmissionHandler) optOut(c *fiber.Ctx) error {
	var payload dto.OptOutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	submission, err := h.service.OptOut(c.Context(), h.token(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission opted out", submission)
}

func (h *SubmissionHandler) token(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Params("token"))
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrInvalidTransition):
		// Machine-readable and stable: clients can tell "retry is pointless"
		// apart from transient failures.
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
