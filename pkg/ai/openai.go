package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hireloop",
		Subsystem: "ai",
		Name:      "question_generation_duration_seconds",
		Help:      "Duration of AI question generation requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hireloop",
		Subsystem: "ai",
		Name:      "question_generation_failures_total",
		Help:      "Number of AI question generation failures",
	}, []string{"model"})
)

// questionSchema constrains the model output to a non-empty list of question
// strings. Responses that don't validate are rejected rather than stored.
const questionSchema = `{
	"type": "object",
	"required": ["questions"],
	"properties": {
		"questions": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "minLength": 5}
		}
	}
}`

// OpenAIConfig defines configuration options for the OpenAI generator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIGenerator implements Generator against the OpenAI chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    OpenAIConfig
	schema *jsonschema.Schema
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGenerator builds a new generator using the provided configuration.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("questions.json", strings.NewReader(questionSchema)); err != nil {
		return nil, fmt.Errorf("register question schema: %w", err)
	}
	schema, err := compiler.Compile("questions.json")
	if err != nil {
		return nil, fmt.Errorf("compile question schema: %w", err)
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey)),
		cfg:    cfg,
		schema: schema,
		tracer: otel.Tracer("github.com/hireloop/hireloop-api/pkg/ai/openai"),
		logger: logger,
	}, nil
}

// Generate asks the model for interview questions and validates the response
// shape before returning it.
func (g *OpenAIGenerator) Generate(parent context.Context, input QuestionInput) ([]string, error) {
	ctx, span := g.tracer.Start(parent, "openai.generate_questions", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.Int("question_count", input.QuestionCount),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: generatorSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildQuestionPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := g.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(g.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("openai generate questions: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	questions, err := g.parseQuestionResponse(content, input.QuestionCount)
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return questions, nil
}

func (g *OpenAIGenerator) parseQuestionResponse(content string, wanted int) ([]string, error) {
	var document interface{}
	if err := json.Unmarshal([]byte(content), &document); err != nil {
		return nil, fmt.Errorf("parse question json: %w", err)
	}

	if err := g.schema.Validate(document); err != nil {
		return nil, fmt.Errorf("question payload failed schema validation: %w", err)
	}

	var data struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return nil, fmt.Errorf("parse question json: %w", err)
	}

	if wanted > 0 && len(data.Questions) > wanted {
		data.Questions = data.Questions[:wanted]
	}

	return data.Questions, nil
}

func generatorSystemPrompt() string {
	return "You are a technical interviewer preparing to probe a candidate's submitted take-home project. Respond with a JSON " +
		"object containing a questions array of specific, open-ended questions about the candidate's design and implementation choices."
}

func buildQuestionPrompt(input QuestionInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Role\n")
	builder.WriteString(input.AssessmentTitle)
	builder.WriteString("\n\n## Role Description\n")
	builder.WriteString(input.RoleDescription)
	builder.WriteString("\n\n## Take-home Brief\n")
	builder.WriteString(input.ProjectBrief)
	builder.WriteString("\n\n## Candidate Repository\n")
	builder.WriteString(input.GithubLink)
	if input.CandidateNotes != "" {
		builder.WriteString("\n\n## Candidate Notes\n")
		builder.WriteString(input.CandidateNotes)
	}
	fmt.Fprintf(&builder, "\n\nDraft %d interview questions. Return JSON.", input.QuestionCount)
	return builder.String()
}
