package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/observability"
	"github.com/hireloop/hireloop-api/internal/service"
	"github.com/hireloop/hireloop-api/internal/utils"
	"github.com/hireloop/hireloop-api/pkg/elevenlabs"
)

// WebhookHandler receives signed post-call callbacks from the voice-interview
// provider. Failed verifications are answered 401 and dropped; the provider's
// retry policy owns redelivery.
type WebhookHandler struct {
	service   service.InterviewService
	secret    string
	tolerance time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewWebhookHandler builds a webhook handler instance.
func NewWebhookHandler(service service.InterviewService, secret string, tolerance time.Duration, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service:   service,
		secret:    secret,
		tolerance: tolerance,
		logger:    logger.With().Str("component", "webhook_handler").Logger(),
		now:       time.Now,
	}
}

// Register attaches the webhook routes to the provided router group.
func (h *WebhookHandler) Register(router fiber.Router) {
	router.Post("/elevenlabs", h.postCall)
}

func (h *WebhookHandler) postCall(c *fiber.Ctx) error {
	// Verification must run over the raw request bytes. Parsing and
	// re-serializing JSON can reorder keys and invalidate the digest.
	rawBody := c.Body()
	header := c.Get("ElevenLabs-Signature")

	if err := elevenlabs.VerifySignature(rawBody, header, h.secret, h.now(), h.tolerance); err != nil {
		result := "invalid_signature"
		if errors.Is(err, elevenlabs.ErrSignatureExpired) {
			result = "replay"
		}
		observability.WebhookEvents().WithLabelValues(result).Inc()
		requestLogger(h.logger, c).Warn().Err(err).Msg("webhook signature rejected")
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid signature")
	}

	payload, err := elevenlabs.ParsePostCallPayload(rawBody)
	if err != nil {
		observability.WebhookEvents().WithLabelValues("invalid_payload").Inc()
		requestLogger(h.logger, c).Warn().Err(err).Msg("webhook payload rejected")
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	ack, err := h.service.IngestPostCall(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	observability.WebhookEvents().WithLabelValues("accepted").Inc()
	return c.Status(fiber.StatusOK).JSON(ack)
}

func (h *WebhookHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound), errors.Is(err, service.ErrInterviewNotFound):
		observability.WebhookEvents().WithLabelValues("unresolved").Inc()
		requestLogger(h.logger, c).Warn().Err(err).Msg("webhook target unresolvable")
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, elevenlabs.ErrPayloadInvalid):
		observability.WebhookEvents().WithLabelValues("invalid_payload").Inc()
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	default:
		observability.WebhookEvents().WithLabelValues("error").Inc()
		requestLogger(h.logger, c).Error().Err(err).Msg("webhook processing failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
