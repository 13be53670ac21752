package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/dto"
	"github.com/hireloop/hireloop-api/internal/service"
	"github.com/hireloop/hireloop-api/internal/utils"
)

// InterviewHandler manages question generation, the synchronous Q&A loop, and
// the employer-facing interview view.
type InterviewHandler struct {
	service   service.InterviewService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewInterviewHandler builds an interview handler instance.
func NewInterviewHandler(service service.InterviewService, validator *validator.Validate, logger zerolog.Logger) *InterviewHandler {
	return &InterviewHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "interview_handler").Logger(),
	}
}

// Register attaches the candidate-reachable routes to the provided group.
func (h *InterviewHandler) Register(router fiber.Router) {
	router.Post("/questions", h.requestQuestions)
	router.Get("/questions/:submissionId", h.questionStatus)
	router.Post("/start", h.start)
	router.Post("/:sessionId/answer", h.answer)

	router.Use("/:sessionId/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/:sessionId/ws", websocket.New(h.handleSocket))
}

// RegisterEmployer attaches the employer-authenticated read routes. The group
// it receives is expected to carry the JWT guard.
func (h *InterviewHandler) RegisterEmployer(router fiber.Router) {
	router.Get("/:submissionId", h.getBySubmission)
}

func (h *InterviewHandler) requestQuestions(c *fiber.Ctx) error {
	var payload dto.QuestionGenerationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	status, err := h.service.RequestQuestions(c.Context(), payload.SubmissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "question generation requested", status)
}

func (h *InterviewHandler) questionStatus(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "submissionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	status, err := h.service.QuestionStatus(c.Context(), submissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question status retrieved", status)
}

func (h *InterviewHandler) start(c *fiber.Ctx) error {
	var payload dto.InterviewStartRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	session, err := h.service.StartSession(c.Context(), payload.SubmissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "interview session started", session)
}

func (h *InterviewHandler) answer(c *fiber.Ctx) error {
	var payload dto.AnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Answer(c.Context(), c.Params("sessionId"), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "answer recorded", response)
}

func (h *InterviewHandler) getBySubmission(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "submissionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	interview, err := h.service.GetBySubmission(c.Context(), submissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "interview retrieved", interview)
}

type socketError struct {
	Error string `json:"error"`
}

// handleSocket runs the same answer loop over a websocket: each inbound frame
// is one candidate answer, each outbound frame the next interviewer turn. The
// connection closes after the closing message or on a terminal error.
func (h *InterviewHandler) handleSocket(conn *websocket.Conn) {
	defer conn.Close()

	sessionID := conn.Params("sessionId")
	logger := h.logger.With().Str("session_id", sessionID).Logger()
	logger.Info().Msg("interview socket connected")

	for {
		var payload dto.AnswerRequest
		if err := conn.ReadJSON(&payload); err != nil {
			logger.Debug().Err(err).Msg("interview socket read ended")
			return
		}

		response, err := h.service.Answer(context.Background(), sessionID, payload)
		if err != nil {
			_ = conn.WriteJSON(socketError{Error: socketReason(err)})
			logger.Info().Err(err).Msg("interview socket closing on error")
			return
		}

		if err := conn.WriteJSON(response); err != nil {
			logger.Debug().Err(err).Msg("interview socket write failed")
			return
		}

		if response.Done {
			logger.Info().Msg("interview socket completed")
			return
		}
	}
}

func socketReason(err error) string {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return "session not found"
	case errors.Is(err, service.ErrInterviewCompleted):
		return "interview already completed"
	default:
		if isValidationError(err) {
			return "invalid answer"
		}
		return "internal error"
	}
}

func (h *InterviewHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound), errors.Is(err, service.ErrInterviewNotFound), errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "not found")
	case errors.Is(err, service.ErrInterviewNotReady):
		// Retry-safe: the client polls question status and tries again.
		return utils.SendError(c, fiber.StatusConflict, "not ready")
	case errors.Is(err, service.ErrInterviewCompleted):
		return utils.SendError(c, fiber.StatusConflict, "interview already completed")
	case errors.Is(err, service.ErrSubmissionNotSubmitted):
		return utils.SendError(c, fiber.StatusConflict, "submission not submitted")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
