package handler_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hireloop/hireloop-api/internal/config"
	"github.com/hireloop/hireloop-api/internal/dto"
	"github.com/hireloop/hireloop-api/internal/handler"
	"github.com/hireloop/hireloop-api/internal/models"
	"github.com/hireloop/hireloop-api/internal/repository"
	"github.com/hireloop/hireloop-api/internal/router"
	"github.com/hireloop/hireloop-api/internal/service"
	"github.com/hireloop/hireloop-api/pkg/elevenlabs"
)

const webhookTestSecret = "wsec_webhook_test"

func setupWebhookApp(t *testing.T) (*fiber.App, *gorm.DB, models.Submission) {
	t.Helper()

	dsn := fmt.Sprintf("file:webhook_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Assessment{}, &models.Submission{}, &models.Interview{}))

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	assessment := models.Assessment{AccountID: 1, Title: "Systems Take-Home", TimeLimitMinutes: 60, QuestionCount: 2}
	require.NoError(t, db.Create(&assessment).Error)

	submittedAt := time.Now().UTC()
	startedAt := submittedAt.Add(-45 * time.Minute)
	submission := models.Submission{
		AssessmentID:     assessment.ID,
		Token:            fmt.Sprintf("tok-%d", time.Now().UnixNano()),
		Status:           models.SubmissionStatusSubmitted,
		TimeLimitMinutes: 60,
		QuestionCount:    2,
		StartedAt:        &startedAt,
		SubmittedAt:      &submittedAt,
	}
	require.NoError(t, db.Create(&submission).Error)

	interview := models.Interview{
		SubmissionID:    submission.ID,
		Status:          models.InterviewStatusNotStarted,
		QuestionsStatus: models.QuestionsStatusReady,
	}
	require.NoError(t, interview.SetQuestions([]string{"Q1?", "Q2?"}))
	require.NoError(t, db.Create(&interview).Error)

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	interviewService := service.NewInterviewService(
		repository.NewInterviewRepository(db),
		repository.NewSubmissionRepository(db),
		nil,
		redisClient,
		time.Hour,
		service.NewNopEventPublisher(),
		validate,
		logger,
	)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		InterviewHandler: handler.NewInterviewHandler(interviewService, validate, logger),
		WebhookHandler:   handler.NewWebhookHandler(interviewService, webhookTestSecret, 30*time.Minute, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("account_id", uint(1))
			return c.Next()
		},
	})

	return app, db, submission
}

func signWebhook(body []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", at.Unix())
	mac.Write(body)
	return fmt.Sprintf("t=%d,v0=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func webhookBody(t *testing.T, submissionID uint) []byte {
	t.Helper()

	raw, err := json.Marshal(map[string]interface{}{
		"type": "post_call_transcription",
		"data": map[string]interface{}{
			"conversation_id": "conv_hook",
			"metadata": map[string]interface{}{
				"dynamic_variables": map[string]interface{}{"submissionId": submissionID},
			},
			"transcript": []map[string]interface{}{
				{"role": "agent", "message": "Tell me about the design.", "time_in_call_secs": 1.0},
				{"role": "user", "message": "I used a queue.", "time_in_call_secs": 12.0},
			},
			"analysis": map[string]interface{}{"transcript_summary": "Thoughtful answers."},
		},
	})
	require.NoError(t, err)

	return raw
}

func postWebhook(t *testing.T, app *fiber.App, body []byte, signature string) (int, []byte) {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/webhooks/elevenlabs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("ElevenLabs-Signature", signature)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, raw
}

func TestWebhookHandlerAcceptsSignedDelivery(t *testing.T) {
	app, db, submission := setupWebhookApp(t)

	body := webhookBody(t, submission.ID)
	status, raw := postWebhook(t, app, body, signWebhook(body, webhookTestSecret, time.Now()))
	require.Equal(t, fiber.StatusOK, status)

	var ack dto.WebhookAckResponse
	require.NoError(t, json.Unmarshal(raw, &ack))
	require.Equal(t, "success", ack.Status)
	require.Equal(t, "conv_hook", ack.ConversationID)
	require.Equal(t, 2, ack.TurnsCount)
	require.True(t, ack.HasSummary)

	var stored models.Interview
	require.NoError(t, db.Where("submission_id = ?", submission.ID).First(&stored).Error)
	require.Equal(t, models.InterviewStatusCompleted, stored.Status)
	require.Equal(t, elevenlabs.ProviderName, stored.Provider)
}

func TestWebhookHandlerRejectsBadSignature(t *testing.T) {
	app, db, submission := setupWebhookApp(t)

	body := webhookBody(t, submission.ID)
	status, _ := postWebhook(t, app, body, signWebhook(body, "wrong-secret", time.Now()))
	require.Equal(t, fiber.StatusUnauthorized, status)

	// A rejected delivery must not touch the interview.
	var stored models.Interview
	require.NoError(t, db.Where("submission_id = ?", submission.ID).First(&stored).Error)
	require.Equal(t, models.InterviewStatusNotStarted, stored.Status)
}

func TestWebhookHandlerRejectsMissingSignature(t *testing.T) {
	app, _, submission := setupWebhookApp(t)

	status, _ := postWebhook(t, app, webhookBody(t, submission.ID), "")
	require.Equal(t, fiber.StatusUnauthorized, status)
}

func TestWebhookHandlerRejectsStaleTimestamp(t *testing.T) {
	app, _, submission := setupWebhookApp(t)

	body := webhookBody(t, submission.ID)
	status, _ := postWebhook(t, app, body, signWebhook(body, webhookTestSecret, time.Now().Add(-31*time.Minute)))
	require.Equal(t, fiber.StatusUnauthorized, status)
}

func TestWebhookHandlerRejectsMalformedPayload(t *testing.T) {
	app, _, _ := setupWebhookApp(t)

	body := []byte(`{"data":{}}`)
	status, _ := postWebhook(t, app, body, signWebhook(body, webhookTestSecret, time.Now()))
	require.Equal(t, fiber.StatusBadRequest, status)
}

func TestWebhookHandlerUnknownSubmission(t *testing.T) {
	app, _, _ := setupWebhookApp(t)

	body := webhookBody(t, 987654)
	status, _ := postWebhook(t, app, body, signWebhook(body, webhookTestSecret, time.Now()))
	require.Equal(t, fiber.StatusNotFound, status)
}

func TestWebhookHandlerRedeliveryConverges(t *testing.T) {
	app, db, submission := setupWebhookApp(t)

	body := webhookBody(t, submission.ID)
	status, first := postWebhook(t, app, body, signWebhook(body, webhookTestSecret, time.Now()))
	require.Equal(t, fiber.StatusOK, status)
	status, second := postWebhook(t, app, body, signWebhook(body, webhookTestSecret, time.Now()))
	require.Equal(t, fiber.StatusOK, status)
	require.JSONEq(t, string(first), string(second))

	var stored models.Interview
	require.NoError(t, db.Where("submission_id = ?", submission.ID).First(&stored).Error)
	require.Len(t, stored.Turns(), 2)
}
