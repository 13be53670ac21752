package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/config"
	"github.com/hireloop/hireloop-api/internal/database"
	"github.com/hireloop/hireloop-api/internal/handler"
	"github.com/hireloop/hireloop-api/internal/middleware"
	"github.com/hireloop/hireloop-api/internal/models"
	"github.com/hireloop/hireloop-api/internal/repository"
	"github.com/hireloop/hireloop-api/internal/router"
	"github.com/hireloop/hireloop-api/internal/service"
	"github.com/hireloop/hireloop-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Assessment{}, &models.Submission{}, &models.Interview{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	events := service.NewNopEventPublisher()
	if cfg.NATSURL != "" {
		natsConn, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()

		events = service.NewNATSEventPublisher(natsConn, cfg.EventSubjectBase, logger)
	}

	generator, err := buildGenerator(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create question generator: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assessmentRepo := repository.NewAssessmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	interviewRepo := repository.NewInterviewRepository(db)

	assessmentService := service.NewAssessmentService(assessmentRepo, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assessmentRepo, service.NewAllowAllGate(), events, validate, logger)
	interviewService := service.NewInterviewService(interviewRepo, submissionRepo, generator, redisClient, cfg.InterviewSessionTTL, events, validate, logger)

	assessmentHandler := handler.NewAssessmentHandler(assessmentService, submissionService, validate, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, validate, logger)
	interviewHandler := handler.NewInterviewHandler(interviewService, validate, logger)
	webhookHandler := handler.NewWebhookHandler(interviewService, cfg.ElevenLabsWebhookSecret, cfg.WebhookTolerance, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssessmentHandler: assessmentHandler,
		SubmissionHandler: submissionHandler,
		InterviewHandler:  interviewHandler,
		WebhookHandler:    webhookHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildGenerator(cfg config.Config, logger zerolog.Logger) (ai.Generator, error) {
	switch cfg.AIProvider {
	case "anthropic":
		return ai.NewAnthropicGenerator(ai.AnthropicConfig{APIKey: cfg.AnthropicAPIKey})
	default:
		return ai.NewOpenAIGenerator(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
