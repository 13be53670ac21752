package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hireloop/hireloop-api/internal/config"
	"github.com/hireloop/hireloop-api/internal/handler"
	"github.com/hireloop/hireloop-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssessmentHandler *handler.AssessmentHandler
	SubmissionHandler *handler.SubmissionHandler
	InterviewHandler  *handler.InterviewHandler
	WebhookHandler    *handler.WebhookHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Employer surface: assessments and share links
	if deps.AssessmentHandler != nil {
		assessments := api.Group("/assessments", jwtMiddleware)
		deps.AssessmentHandler.Register(assessments)
	}

	// Candidate surface: token-gated, rate limited, no session
	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", middleware.RateLimit("submissions", 30, time.Minute))
		deps.SubmissionHandler.Register(submissions)
	}

	// Interview loop: candidate-reachable plus employer read routes
	if deps.InterviewHandler != nil {
		// Employer read routes first so the JWT guard stays scoped to its
		// own prefix and never shadows the candidate loop.
		employerInterviews := api.Group("/interviews/submission", jwtMiddleware)
		deps.InterviewHandler.RegisterEmployer(employerInterviews)

		interviews := api.Group("/interviews")
		deps.InterviewHandler.Register(interviews)
	}

	// Provider callbacks: HMAC-authenticated, not JWT
	if deps.WebhookHandler != nil {
		webhooks := api.Group("/webhooks")
		deps.WebhookHandler.Register(webhooks)
	}
}
