package dto

import (
	"time"

	"github.com/hireloop/hireloop-api/internal/models"
)

// AssessmentCreateRequest describes the employer payload for a new assessment.
type AssessmentCreateRequest struct {
	Title            string `json:"title" validate:"required,min=3,max=255"`
	RoleDescription  string `json:"role_description" validate:"required,min=10"`
	ProjectBrief     string `json:"project_brief"`
	TimeLimitMinutes int    `json:"time_limit_minutes" validate:"required,gt=0,lte=10080"`
	QuestionCount    int    `json:"question_count" validate:"omitempty,gt=0,lte=10"`
}

// AssessmentResponse is returned when viewing an assessment.
type AssessmentResponse struct {
	ID               uint      `json:"id"`
	AccountID        uint      `json:"account_id"`
	Title            string    `json:"title"`
	RoleDescription  string    `json:"role_description"`
	ProjectBrief     string    `json:"project_brief"`
	TimeLimitMinutes int       `json:"time_limit_minutes"`
	QuestionCount    int       `json:"question_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AssessmentLite summarizes an assessment inside submission responses.
type AssessmentLite struct {
	ID               uint   `json:"id"`
	Title            string `json:"title"`
	ProjectBrief     string `json:"project_brief"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
}

// ShareLinkResponse carries the single-use candidate token minted for a submission.
type ShareLinkResponse struct {
	SubmissionID uint   `json:"submission_id"`
	Token        string `json:"token"`
}

// NewAssessmentResponse maps the model to its API representation.
func NewAssessmentResponse(assessment models.Assessment) AssessmentResponse {
	return AssessmentResponse{
		ID:               assessment.ID,
		AccountID:        assessment.AccountID,
		Title:            assessment.Title,
		RoleDescription:  assessment.RoleDescription,
		ProjectBrief:     assessment.ProjectBrief,
		TimeLimitMinutes: assessment.TimeLimitMinutes,
		QuestionCount:    assessment.QuestionCount,
		CreatedAt:        assessment.CreatedAt,
		UpdatedAt:        assessment.UpdatedAt,
	}
}
