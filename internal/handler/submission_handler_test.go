package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
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
)

func setupSubmissionApp(t *testing.T) (*fiber.App, service.SubmissionService, models.Assessment) {
	t.Helper()

	dsn := fmt.Sprintf("file:submission_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Assessment{}, &models.Submission{}))

	assessment := models.Assessment{
		AccountID:        1,
		Title:            "Frontend Take-Home",
		ProjectBrief:     "Build a dashboard",
		TimeLimitMinutes: 60,
		QuestionCount:    3,
	}
	require.NoError(t, db.Create(&assessment).Error)

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	assessmentRepo := repository.NewAssessmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	assessmentService := service.NewAssessmentService(assessmentRepo, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assessmentRepo, service.NewAllowAllGate(), service.NewNopEventPublisher(), validate, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		AssessmentHandler: handler.NewAssessmentHandler(assessmentService, submissionService, validate, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, validate, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("account_id", uint(1))
			return c.Next()
		},
	})

	return app, submissionService, assessment
}

type submissionEnvelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    dto.SubmissionResponse `json:"data"`
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, submissionEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope submissionEnvelope
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &envelope))
	}

	return resp.StatusCode, envelope
}

func TestSubmissionHandlerTokenLifecycle(t *testing.T) {
	app, svc, assessment := setupSubmissionApp(t)

	link, err := svc.CreateShareLink(context.Background(), assessment.AccountID, assessment.ID, dto.ShareLinkCreateRequest{})
	require.NoError(t, err)

	// Pending: the clock has not been issued yet.
	status, envelope := doJSON(t, app, fiber.MethodGet, "/api/v1/submissions/token/"+link.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.True(t, envelope.Success)
	require.Equal(t, models.SubmissionStatusPending, envelope.Data.Status)
	require.Nil(t, envelope.Data.TimeRemaining)
	require.Equal(t, assessment.Title, envelope.Data.Assessment.Title)

	// Start issues the clock.
	status, envelope = doJSON(t, app, fiber.MethodPost, "/api/v1/submissions/token/"+link.Token+"/start", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, models.SubmissionStatusInProgress, envelope.Data.Status)
	require.NotNil(t, envelope.Data.StartedAt)
	require.NotNil(t, envelope.Data.TimeRemaining)

	// Submit completes the attempt.
	status, envelope = doJSON(t, app, fiber.MethodPost, "/api/v1/submissions/token/"+link.Token+"/submit", dto.SubmitRequest{
		GithubLink: "https://github.com/dev/dashboard",
		Notes:      "All done.",
	})
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, models.SubmissionStatusSubmitted, envelope.Data.Status)
	require.False(t, envelope.Data.Late)

	// Terminal: no further transitions over HTTP.
	status, envelope = doJSON(t, app, fiber.MethodPost, "/api/v1/submissions/token/"+link.Token+"/opt-out", dto.OptOutRequest{Reason: "changed my mind"})
	require.Equal(t, fiber.StatusConflict, status)
	require.False(t, envelope.Success)
}

func TestSubmissionHandlerUnknownToken(t *testing.T) {
	app, _, _ := setupSubmissionApp(t)

	status, envelope := doJSON(t, app, fiber.MethodGet, "/api/v1/submissions/token/does-not-exist", nil)
	require.Equal(t, fiber.StatusNotFound, status)
	require.False(t, envelope.Success)
}

func TestSubmissionHandlerSubmitBeforeStart(t *testing.T) {
	app, svc, assessment := setupSubmissionApp(t)

	link, err := svc.CreateShareLink(context.Background(), assessment.AccountID, assessment.ID, dto.ShareLinkCreateRequest{})
	require.NoError(t, err)

	status, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/submissions/token/"+link.Token+"/submit", dto.SubmitRequest{GithubLink: "https://github.com/dev/dashboard"})
	require.Equal(t, fiber.StatusConflict, status)
}

func TestSubmissionHandlerSubmitRejectsInvalidBody(t *testing.T) {
	app, svc, assessment := setupSubmissionApp(t)

	link, err := svc.CreateShareLink(context.Background(), assessment.AccountID, assessment.ID, dto.ShareLinkCreateRequest{})
	require.NoError(t, err)
	status, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/submissions/token/"+link.Token+"/start", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, envelope := doJSON(t, app, fiber.MethodPost, "/api/v1/submissions/token/"+link.Token+"/submit", dto.SubmitRequest{GithubLink: "not a url"})
	require.Equal(t, fiber.StatusBadRequest, status)
	require.False(t, envelope.Success)
}

func TestSubmissionHandlerOptOutWithoutBody(t *testing.T) {
	app, svc, assessment := setupSubmissionApp(t)

	link, err := svc.CreateShareLink(context.Background(), assessment.AccountID, assessment.ID, dto.ShareLinkCreateRequest{})
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/submissions/token/"+link.Token+"/opt-out", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSubmissionHandlerEmployerListing(t *testing.T) {
	app, svc, assessment := setupSubmissionApp(t)

	link, err := svc.CreateShareLink(context.Background(), assessment.AccountID, assessment.ID, dto.ShareLinkCreateRequest{CandidateEmail: "dev@example.com"})
	require.NoError(t, err)
	status, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/submissions/token/"+link.Token+"/start", nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = doJSON(t, app, fiber.MethodPost, "/api/v1/submissions/token/"+link.Token+"/submit", dto.SubmitRequest{GithubLink: "https://github.com/dev/dashboard"})
	require.Equal(t, fiber.StatusOK, status)

	_, err = svc.CreateShareLink(context.Background(), assessment.AccountID, assessment.ID, dto.ShareLinkCreateRequest{})
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, fmt.Sprintf("/api/v1/assessments/%d/submissions", assessment.ID), nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var envelope struct {
		Success bool                     `json:"success"`
		Data    []dto.SubmissionListItem `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Success)
	require.Len(t, envelope.Data, 2)

	req = httptest.NewRequest(fiber.MethodGet, fmt.Sprintf("/api/v1/assessments/%d/submissions?status=%s", assessment.ID, models.SubmissionStatusSubmitted), nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data, 1)
	require.Equal(t, "dev@example.com", envelope.Data[0].CandidateEmail)
	require.Equal(t, models.SubmissionStatusSubmitted, envelope.Data[0].Status)
}
