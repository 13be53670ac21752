package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/hireloop/hireloop-api/internal/dto"
	"github.com/hireloop/hireloop-api/internal/models"
	"github.com/hireloop/hireloop-api/internal/repository"
)

// ErrSubmissionNotFound indicates no submission matches the given token or id.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrInvalidTransition indicates a lifecycle guard rejected the request. The
// submission is left unchanged; retrying the same call will not succeed.
var ErrInvalidTransition = errors.New("invalid transition")

const tokenEntropyBytes = 32

// SubmissionService owns the candidate submission lifecycle: token minting and
// resolution, the state machine, and server-authoritative deadline handling.
type SubmissionService interface {
	CreateShareLink(ctx context.Context, accountID, assessmentID uint, payload dto.ShareLinkCreateRequest) (dto.ShareLinkResponse, error)
	ListForAssessment(ctx context.Context, accountID, assessmentID uint, status string) ([]dto.SubmissionListItem, error)
	GetByToken(ctx context.Context, token string) (dto.SubmissionResponse, error)
	Start(ctx context.Context, token string) (dto.SubmissionResponse, error)
	Submit(ctx context.Context, token string, payload dto.SubmitRequest) (dto.SubmissionResponse, error)
	OptOut(ctx context.Context, token string, payload dto.OptOutRequest) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assessments repository.AssessmentRepository
	gate        CreationGate
	events      EventPublisher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(submissionRepo repository.SubmissionRepository, assessmentRepo repository.AssessmentRepository, gate CreationGate, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	if gate == nil {
		gate = NewAllowAllGate()
	}
	if events == nil {
		events = NewNopEventPublisher()
	}

	return &submissionService{
		submissions: submissionRepo,
		assessments: assessmentRepo,
		gate:        gate,
		events:      events,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

// CreateShareLink mints a pending submission with a fresh single-use access
// token. The time limit and question count are snapshotted from the assessment
// so later edits never move an in-flight deadline.
func (s *submissionService) CreateShareLink(ctx context.Context, accountID, assessmentID uint, payload dto.ShareLinkCreateRequest) (dto.ShareLinkResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ShareLinkResponse{}, err
	}

	if err := s.gate.AllowSubmission(ctx, accountID); err != nil {
		return dto.ShareLinkResponse{}, err
	}

	assessment, err := s.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ShareLinkResponse{}, ErrAssessmentNotFound
		}
		return dto.ShareLinkResponse{}, err
	}

	if assessment.AccountID != accountID {
		return dto.ShareLinkResponse{}, ErrAssessmentForbidden
	}

	token, err := mintToken()
	if err != nil {
		return dto.ShareLinkResponse{}, fmt.Errorf("mint access token: %w", err)
	}

	submission := models.Submission{
		AssessmentID:     assessment.ID,
		Token:            token,
		CandidateEmail:   strings.TrimSpace(payload.CandidateEmail),
		Status:           models.SubmissionStatusPending,
		TimeLimitMinutes: assessment.TimeLimitMinutes,
		QuestionCount:    assessment.QuestionCount,
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.ShareLinkResponse{}, err
	}

	s.logger.Info().Uint("submission_id", submission.ID).Uint("assessment_id", assessment.ID).Msg("share link created")

	return dto.ShareLinkResponse{SubmissionID: submission.ID, Token: token}, nil
}

// ListForAssessment returns the employer view of an assessment's submissions,
// newest first, optionally narrowed to one status. Rows whose clock ran out
// while still in progress are expired on the way out, the same lazy rule
// candidate reads apply.
func (s *submissionService) ListForAssessment(ctx context.Context, accountID, assessmentID uint, status string) ([]dto.SubmissionListItem, error) {
	assessment, err := s.assessments.GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}

	if assessment.AccountID != accountID {
		return nil, ErrAssessmentForbidden
	}

	filter := repository.SubmissionFilter{AssessmentID: &assessment.ID}
	if status = strings.TrimSpace(status); status != "" {
		filter.Status = &status
	}

	submissions, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]dto.SubmissionListItem, 0, len(submissions))
	for _, submission := range submissions {
		submission, err := s.observeExpiry(ctx, submission, now)
		if err != nil {
			return nil, err
		}
		items = append(items, dto.NewSubmissionListItem(submission))
	}

	return items, nil
}

// GetByToken resolves the candidate token and returns the submission with its
// derived remaining time. A read that finds the clock exhausted while the
// submission is still in progress records the expired transition.
func (s *submissionService) GetByToken(ctx context.Context, token string) (dto.SubmissionResponse, error) {
	submission, err := s.resolve(ctx, token)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	now := s.now()
	submission, err = s.observeExpiry(ctx, submission, now)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission, now), nil
}

// Start moves a pending submission to in-progress and stamps startedAt. A
// duplicate call (page reload, double click) is a no-op returning the original
// startedAt so the clock is never re-issued.
func (s *submissionService) Start(ctx context.Context, token string) (dto.SubmissionResponse, error) {
	submission, err := s.resolve(ctx, token)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	now := s.now()

	if submission.Status == models.SubmissionStatusInProgress {
		submission, err = s.observeExpiry(ctx, submission, now)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		return dto.NewSubmissionResponse(submission, now), nil
	}

	if !submission.CanTransitionTo(models.SubmissionStatusInProgress) {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: cannot start from %s", ErrInvalidTransition, submission.Status)
	}

	startedAt := now.UTC()
	submission.Status = models.SubmissionStatusInProgress
	submission.StartedAt = &startedAt

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.events.Publish(ctx, EventSubmissionStarted, submission)
	s.logger.Info().Uint("submission_id", submission.ID).Time("started_at", startedAt).Msg("submission started")

	return dto.NewSubmissionResponse(submission, now), nil
}

// Submit records the candidate's final artifact. A submit that lands after the
// deadline is still accepted and stored, flagged late for downstream
// consumers; the deadline gates UX, not acceptance.
func (s *submissionService) Submit(ctx context.Context, token string, payload dto.SubmitRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.resolve(ctx, token)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if submission.Status != models.SubmissionStatusInProgress {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: cannot submit from %s", ErrInvalidTransition, submission.Status)
	}

	now := s.now()
	submittedAt := now.UTC()
	submission.Status = models.SubmissionStatusSubmitted
	submission.SubmittedAt = &submittedAt
	submission.GithubLink = strings.TrimSpace(payload.GithubLink)
	submission.Notes = strings.TrimSpace(s.sanitizer.Sanitize(payload.Notes))

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.events.Publish(ctx, EventSubmissionSubmitted, submission)
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Bool("late", submission.IsLate()).
		Dur("time_spent", submission.TimeSpent()).
		Msg("submission received")

	return dto.NewSubmissionResponse(submission, now), nil
}

// OptOut withdraws the candidate. Whether startedAt is set distinguishes
// "opted out before starting" from "opted out mid-attempt" downstream.
func (s *submissionService) OptOut(ctx context.Context, token string, payload dto.OptOutRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.resolve(ctx, token)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if !submission.CanTransitionTo(models.SubmissionStatusOptedOut) {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: cannot opt out from %s", ErrInvalidTransition, submission.Status)
	}

	now := s.now()
	optedOutAt := now.UTC()
	submission.Status = models.SubmissionStatusOptedOut
	submission.OptedOutAt = &optedOutAt
	submission.OptOutReason = strings.TrimSpace(s.sanitizer.Sanitize(payload.Reason))

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.events.Publish(ctx, EventSubmissionOptedOut, submission)
	s.logger.Info().Uint("submission_id", submission.ID).Bool("had_started", submission.StartedAt != nil).Msg("candidate opted out")

	return dto.NewSubmissionResponse(submission, now), nil
}

func (s *submissionService) resolve(ctx context.Context, token string) (models.Submission, error) {
	submission, err := s.submissions.GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}

	return submission, nil
}

// observeExpiry applies the lazy expiration rule: no background timer exists,
// so an in-progress submission whose clock ran out transitions to expired at
// the moment a read notices.
func (s *submissionService) observeExpiry(ctx context.Context, submission models.Submission, now time.Time) (models.Submission, error) {
	if submission.Status != models.SubmissionStatusInProgress {
		return submission, nil
	}

	remaining := submission.TimeRemaining(now)
	if remaining == nil || *remaining > 0 {
		return submission, nil
	}

	submission.Status = models.SubmissionStatusExpired
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return models.Submission{}, err
	}

	s.events.Publish(ctx, EventSubmissionExpired, submission)
	s.logger.Info().Uint("submission_id", submission.ID).Msg("submission expired")

	return submission, nil
}

func mintToken() (string, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
