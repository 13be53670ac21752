package dto

import (
	"time"

	"github.com/hireloop/hireloop-api/internal/models"
)

// ShareLinkCreateRequest invites a candidate to an assessment.
type ShareLinkCreateRequest struct {
	CandidateEmail string `json:"candidate_email" validate:"omitempty,email"`
}

// SubmitRequest is the candidate's final delivery of their work.
type SubmitRequest struct {
	GithubLink string `json:"githubLink" validate:"required,url"`
	Notes      string `json:"notes" validate:"omitempty,max=4000"`
}

// OptOutRequest lets a candidate withdraw, optionally explaining why.
type OptOutRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=4000"`
}

// SubmissionResponse is the candidate-facing view of a submission. The
// time_remaining field is derived server-side on every read and is the only
// countdown clients may trust.
type SubmissionResponse struct {
	ID               uint           `json:"id"`
	Status           string         `json:"status"`
	TimeLimitMinutes int            `json:"time_limit_minutes"`
	TimeRemaining    *float64       `json:"time_remaining"`
	StartedAt        *time.Time     `json:"started_at"`
	SubmittedAt      *time.Time     `json:"submitted_at"`
	Late             bool           `json:"late"`
	GithubLink       string         `json:"github_link,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	OptOutReason     string         `json:"opt_out_reason,omitempty"`
	OptedOutAt       *time.Time     `json:"opted_out_at,omitempty"`
	Assessment       AssessmentLite `json:"assessment"`
}

// SubmissionListItem is one row of the employer-facing submission listing.
// Unlike the candidate view it carries no running countdown; employers read
// outcomes, and the candidate email the share link was minted for.
type SubmissionListItem struct {
	ID             uint       `json:"id"`
	CandidateEmail string     `json:"candidate_email"`
	Status         string     `json:"status"`
	Late           bool       `json:"late"`
	StartedAt      *time.Time `json:"started_at"`
	SubmittedAt    *time.Time `json:"submitted_at"`
	GithubLink     string     `json:"github_link,omitempty"`
	OptedOutAt     *time.Time `json:"opted_out_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewSubmissionListItem maps a submission to its employer listing row.
func NewSubmissionListItem(submission models.Submission) SubmissionListItem {
	return SubmissionListItem{
		ID:             submission.ID,
		CandidateEmail: submission.CandidateEmail,
		Status:         submission.Status,
		Late:           submission.IsLate(),
		StartedAt:      submission.StartedAt,
		SubmittedAt:    submission.SubmittedAt,
		GithubLink:     submission.GithubLink,
		OptedOutAt:     submission.OptedOutAt,
		CreatedAt:      submission.CreatedAt,
	}
}

// NewSubmissionResponse maps the model to its API representation, computing
// remaining time at the supplied instant.
func NewSubmissionResponse(submission models.Submission, now time.Time) SubmissionResponse {
	return SubmissionResponse{
		ID:               submission.ID,
		Status:           submission.Status,
		TimeLimitMinutes: submission.TimeLimitMinutes,
		TimeRemaining:    submission.TimeRemaining(now),
		StartedAt:        submission.StartedAt,
		SubmittedAt:      submission.SubmittedAt,
		Late:             submission.IsLate(),
		GithubLink:       submission.GithubLink,
		Notes:            submission.Notes,
		OptOutReason:     submission.OptOutReason,
		OptedOutAt:       submission.OptedOutAt,
		Assessment: AssessmentLite{
			ID:               submission.Assessment.ID,
			Title:            submission.Assessment.Title,
			ProjectBrief:     submission.Assessment.ProjectBrief,
			TimeLimitMinutes: submission.TimeLimitMinutes,
		},
	}
}
