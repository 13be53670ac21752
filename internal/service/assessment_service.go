package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/hireloop/hireloop-api/internal/dto"
	"github.com/hireloop/hireloop-api/internal/models"
	"github.com/hireloop/hireloop-api/internal/repository"
)

// ErrAssessmentNotFound indicates an assessment could not be found.
var ErrAssessmentNotFound = errors.New("assessment not found")

// ErrAssessmentForbidden indicates the caller does not own the assessment.
var ErrAssessmentForbidden = errors.New("forbidden")

const defaultQuestionCount = 3

// AssessmentService manages employer-authored assessments.
type AssessmentService interface {
	Create(ctx context.Context, accountID uint, payload dto.AssessmentCreateRequest) (dto.AssessmentResponse, error)
	Get(ctx context.Context, accountID, id uint) (dto.AssessmentResponse, error)
	List(ctx context.Context, accountID uint) ([]dto.AssessmentResponse, error)
}

type assessmentService struct {
	assessments repository.AssessmentRepository
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewAssessmentService constructs an AssessmentService instance.
func NewAssessmentService(assessmentRepo repository.AssessmentRepository, validate *validator.Validate, logger zerolog.Logger) AssessmentService {
	return &assessmentService{
		assessments: assessmentRepo,
		validator:   validate,
		logger:      logger.With().Str("component", "assessment_service").Logger(),
	}
}

func (s *assessmentService) Create(ctx context.Context, accountID uint, payload dto.AssessmentCreateRequest) (dto.AssessmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssessmentResponse{}, err
	}

	questionCount := payload.QuestionCount
	if questionCount == 0 {
		questionCount = defaultQuestionCount
	}

	assessment := models.Assessment{
		AccountID:        accountID,
		Title:            payload.Title,
		RoleDescription:  payload.RoleDescription,
		ProjectBrief:     payload.ProjectBrief,
		TimeLimitMinutes: payload.TimeLimitMinutes,
		QuestionCount:    questionCount,
	}

	if err := s.assessments.Create(ctx, &assessment); err != nil {
		return dto.AssessmentResponse{}, err
	}

	s.logger.Info().Uint("assessment_id", assessment.ID).Uint("account_id", accountID).Msg("assessment created")

	return dto.NewAssessmentResponse(assessment), nil
}

func (s *assessmentService) Get(ctx context.Context, accountID, id uint) (dto.AssessmentResponse, error) {
	assessment, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssessmentResponse{}, ErrAssessmentNotFound
		}
		return dto.AssessmentResponse{}, err
	}

	if assessment.AccountID != accountID {
		return dto.AssessmentResponse{}, ErrAssessmentForbidden
	}

	return dto.NewAssessmentResponse(assessment), nil
}

func (s *assessmentService) List(ctx context.Context, accountID uint) ([]dto.AssessmentResponse, error) {
	assessments, err := s.assessments.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AssessmentResponse, 0, len(assessments))
	for _, assessment := range assessments {
		responses = append(responses, dto.NewAssessmentResponse(assessment))
	}

	return responses, nil
}
