package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/hireloop/hireloop-api/internal/dto"
	"github.com/hireloop/hireloop-api/internal/models"
	"github.com/hireloop/hireloop-api/internal/repository"
	"github.com/hireloop/hireloop-api/pkg/ai"
	"github.com/hireloop/hireloop-api/pkg/elevenlabs"
)

// ErrInterviewNotFound indicates no interview exists for the submission.
var ErrInterviewNotFound = errors.New("interview not found")

// ErrInterviewNotReady indicates questions have not been generated yet.
// Callers should poll question status and retry; the call never blocks on
// generation.
var ErrInterviewNotReady = errors.New("interview questions not ready")

// ErrInterviewCompleted indicates the interview already reached a terminal
// state; no further turns are accepted.
var ErrInterviewCompleted = errors.New("interview already completed")

// ErrSessionNotFound indicates the Q&A session id is unknown or expired.
var ErrSessionNotFound = errors.New("interview session not found")

// ErrSubmissionNotSubmitted indicates interview operations were requested
// before the candidate delivered their work.
var ErrSubmissionNotSubmitted = errors.New("submission not submitted")

const (
	sessionKeyPrefix        = "interview:session:"
	sessionBySubmissionKey  = "interview:session:submission:"
	defaultSessionTTL       = 2 * time.Hour
	questionGenerateTimeout = 90 * time.Second
)

const closingMessage = "That's everything I wanted to ask. Thanks for walking me through your work; the team will review and follow up soon."

// qaSession is the ephemeral state of one live Q&A exchange. It lives only in
// Redis for the duration of the loop and is never written to the database.
type qaSession struct {
	SessionID      string `json:"session_id"`
	SubmissionID   uint   `json:"submission_id"`
	InterviewID    uint   `json:"interview_id"`
	QuestionIndex  int    `json:"question_index"`
	TotalQuestions int    `json:"total_questions"`
}

// InterviewService orchestrates the interview lifecycle: asynchronous question
// generation, the synchronous Q&A loop, and ingestion of the provider's
// post-call webhook. The two write paths reconcile through MergeInterview.
type InterviewService interface {
	RequestQuestions(ctx context.Context, submissionID uint) (dto.QuestionStatusResponse, error)
	QuestionStatus(ctx context.Context, submissionID uint) (dto.QuestionStatusResponse, error)
	StartSession(ctx context.Context, submissionID uint) (dto.InterviewStartResponse, error)
	Answer(ctx context.Context, sessionID string, payload dto.AnswerRequest) (dto.AnswerResponse, error)
	IngestPostCall(ctx context.Context, payload elevenlabs.PostCallPayload) (dto.WebhookAckResponse, error)
	GetBySubmission(ctx context.Context, submissionID uint) (dto.InterviewResponse, error)
}

type interviewService struct {
	interviews      repository.InterviewRepository
	submissions     repository.SubmissionRepository
	generator       ai.Generator
	sessions        *redis.Client
	sessionTTL      time.Duration
	generateTimeout time.Duration
	events          EventPublisher
	validator       *validator.Validate
	logger          zerolog.Logger
	tracer          trace.Tracer
	now             func() time.Time
}

// NewInterviewService constructs an InterviewService instance.
func NewInterviewService(interviewRepo repository.InterviewRepository, submissionRepo repository.SubmissionRepository, generator ai.Generator, sessionStore *redis.Client, sessionTTL time.Duration, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) InterviewService {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	if events == nil {
		events = NewNopEventPublisher()
	}

	return &interviewService{
		interviews:      interviewRepo,
		submissions:     submissionRepo,
		generator:       generator,
		sessions:        sessionStore,
		sessionTTL:      sessionTTL,
		generateTimeout: questionGenerateTimeout,
		events:          events,
		validator:       validate,
		logger:          logger.With().Str("component", "interview_service").Logger(),
		tracer:          otel.Tracer("github.com/hireloop/hireloop-api/internal/service/interview"),
		now:             time.Now,
	}
}

// RequestQuestions kicks off asynchronous question generation for a submitted
// submission. The call returns immediately; clients poll QuestionStatus. A
// repeated request while generation is pending or done is a no-op.
func (s *interviewService) RequestQuestions(ctx context.Context, submissionID uint) (dto.QuestionStatusResponse, error) {
	submission, err := s.submittedSubmission(ctx, submissionID)
	if err != nil {
		return dto.QuestionStatusResponse{}, err
	}

	interview, err := s.interviews.GetBySubmissionID(ctx, submissionID)
	switch {
	case err == nil:
		// Already requested; report where generation stands.
		return questionStatusOf(interview), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return dto.QuestionStatusResponse{}, err
	}

	interview = models.Interview{
		SubmissionID:    submission.ID,
		Status:          models.InterviewStatusNotStarted,
		QuestionsStatus: models.QuestionsStatusPending,
	}

	if err := s.interviews.Create(ctx, &interview); err != nil {
		return dto.QuestionStatusResponse{}, err
	}

	go s.generateQuestions(interview.ID, submission)

	return questionStatusOf(interview), nil
}

// generateQuestions runs detached from the request; failures are recorded
// terminally on the interview so a client poll never spins forever.
func (s *interviewService) generateQuestions(interviewID uint, submission models.Submission) {
	genCtx, cancel := context.WithTimeout(context.Background(), s.generateTimeout)
	defer cancel()

	genCtx, span := s.tracer.Start(genCtx, "interview.generate_questions", trace.WithAttributes(
		attribute.Int64("submission_id", int64(submission.ID)),
	))
	defer span.End()

	questions, genErr := s.generator.Generate(genCtx, ai.QuestionInput{
		AssessmentTitle: submission.Assessment.Title,
		RoleDescription: submission.Assessment.RoleDescription,
		ProjectBrief:    submission.Assessment.ProjectBrief,
		GithubLink:      submission.GithubLink,
		CandidateNotes:  submission.Notes,
		QuestionCount:   submission.QuestionCount,
	})

	// The outcome must land even when the generator died by exhausting its
	// own deadline, so the record writes run on a context that outlives it.
	ctx, cancelRecord := context.WithTimeout(context.WithoutCancel(genCtx), 15*time.Second)
	defer cancelRecord()

	interview, err := s.interviews.GetByID(ctx, interviewID)
	if err != nil {
		s.logger.Error().Err(err).Uint("interview_id", interviewID).Msg("failed to reload interview after generation")
		return
	}

	if genErr != nil {
		errorAt := s.now().UTC()
		interview.QuestionsStatus = models.QuestionsStatusFailed
		interview.Status = models.InterviewStatusFailed
		interview.ErrorMessage = genErr.Error()
		interview.ErrorAt = &errorAt
		if err := s.interviews.Update(ctx, &interview); err != nil {
			s.logger.Error().Err(err).Uint("interview_id", interviewID).Msg("failed to record generation failure")
			return
		}
		s.events.Publish(ctx, EventInterviewFailed, interview)
		s.logger.Warn().Err(genErr).Uint("submission_id", submission.ID).Msg("question generation failed")
		return
	}

	if err := interview.SetQuestions(questions); err != nil {
		s.logger.Error().Err(err).Uint("interview_id", interviewID).Msg("failed to encode questions")
		return
	}
	interview.QuestionsStatus = models.QuestionsStatusReady

	if err := s.interviews.Update(ctx, &interview); err != nil {
		s.logger.Error().Err(err).Uint("interview_id", interviewID).Msg("failed to store generated questions")
		return
	}

	s.logger.Info().Uint("submission_id", submission.ID).Int("questions", len(questions)).Msg("interview questions ready")
}

// QuestionStatus reports generation progress for the client poll loop.
func (s *interviewService) QuestionStatus(ctx context.Context, submissionID uint) (dto.QuestionStatusResponse, error) {
	interview, err := s.interviewBySubmission(ctx, submissionID)
	if err != nil {
		return dto.QuestionStatusResponse{}, err
	}

	return questionStatusOf(interview), nil
}

// StartSession opens the synchronous Q&A loop and returns the first question.
// If a live session already exists for the submission it is returned instead
// of opening a second one, so a page reload never forks the transcript.
func (s *interviewService) StartSession(ctx context.Context, submissionID uint) (dto.InterviewStartResponse, error) {
	if _, err := s.submittedSubmission(ctx, submissionID); err != nil {
		return dto.InterviewStartResponse{}, err
	}

	interview, err := s.interviewBySubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, ErrInterviewNotFound) {
			return dto.InterviewStartResponse{}, ErrInterviewNotReady
		}
		return dto.InterviewStartResponse{}, err
	}

	if interview.IsTerminal() {
		return dto.InterviewStartResponse{}, ErrInterviewCompleted
	}

	if interview.QuestionsStatus != models.QuestionsStatusReady {
		return dto.InterviewStartResponse{}, ErrInterviewNotReady
	}

	questions := interview.QuestionList()
	if len(questions) == 0 {
		return dto.InterviewStartResponse{}, ErrInterviewNotReady
	}

	if existing, err := s.loadSessionBySubmission(ctx, submissionID); err == nil {
		return dto.InterviewStartResponse{
			SessionID:       existing.SessionID,
			QuestionIndex:   existing.QuestionIndex,
			TotalQuestions:  existing.TotalQuestions,
			InterviewerText: questions[existing.QuestionIndex],
		}, nil
	}

	session := qaSession{
		SessionID:      uuid.NewString(),
		SubmissionID:   submissionID,
		InterviewID:    interview.ID,
		QuestionIndex:  0,
		TotalQuestions: len(questions),
	}

	if err := s.storeSession(ctx, session); err != nil {
		return dto.InterviewStartResponse{}, err
	}

	interview.Status = models.InterviewStatusInProgress
	if err := interview.AppendTurns(models.TranscriptTurn{Role: models.TurnRoleInterviewer, Text: questions[0]}); err != nil {
		return dto.InterviewStartResponse{}, err
	}
	if err := s.interviews.Update(ctx, &interview); err != nil {
		return dto.InterviewStartResponse{}, err
	}

	s.logger.Info().Uint("submission_id", submissionID).Str("session_id", session.SessionID).Msg("interview session started")

	return dto.InterviewStartResponse{
		SessionID:       session.SessionID,
		QuestionIndex:   0,
		TotalQuestions:  session.TotalQuestions,
		InterviewerText: questions[0],
	}, nil
}

// Answer appends the candidate's turn, advances the loop, and returns either
// the next question or the closing message. After the closing message the
// session is gone and further calls are rejected.
func (s *interviewService) Answer(ctx context.Context, sessionID string, payload dto.AnswerRequest) (dto.AnswerResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnswerResponse{}, err
	}

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return dto.AnswerResponse{}, err
	}

	interview, err := s.interviews.GetByID(ctx, session.InterviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerResponse{}, ErrInterviewNotFound
		}
		return dto.AnswerResponse{}, err
	}

	// The webhook path may have finished the interview while this session was
	// idle; reject rather than splice turns into a final transcript.
	if interview.IsTerminal() {
		s.dropSession(ctx, session)
		return dto.AnswerResponse{}, ErrInterviewCompleted
	}

	questions := interview.QuestionList()
	turns := []models.TranscriptTurn{{Role: models.TurnRoleCandidate, Text: payload.Text}}

	session.QuestionIndex++
	done := session.QuestionIndex >= session.TotalQuestions

	var interviewerText string
	if done {
		interviewerText = closingMessage
	} else if session.QuestionIndex < len(questions) {
		interviewerText = questions[session.QuestionIndex]
	}
	turns = append(turns, models.TranscriptTurn{Role: models.TurnRoleInterviewer, Text: interviewerText})

	if err := interview.AppendTurns(turns...); err != nil {
		return dto.AnswerResponse{}, err
	}

	if done {
		interview.Status = models.InterviewStatusCompleted
	}

	if err := s.interviews.Update(ctx, &interview); err != nil {
		return dto.AnswerResponse{}, err
	}

	if done {
		s.dropSession(ctx, session)
		s.events.Publish(ctx, EventInterviewCompleted, interview)
		s.logger.Info().Uint("interview_id", interview.ID).Msg("interview completed via live session")
	} else {
		if err := s.storeSession(ctx, session); err != nil {
			return dto.AnswerResponse{}, err
		}
	}

	return dto.AnswerResponse{
		QuestionIndex:   session.QuestionIndex,
		InterviewerText: interviewerText,
		Done:            done,
	}, nil
}

// IngestPostCall merges a verified provider webhook into the interview record.
// Redelivery of the same payload converges on the same end state.
func (s *interviewService) IngestPostCall(ctx context.Context, payload elevenlabs.PostCallPayload) (dto.WebhookAckResponse, error) {
	submissionID, err := payload.SubmissionID()
	if err != nil {
		return dto.WebhookAckResponse{}, err
	}

	if _, err := s.submissions.GetByID(ctx, submissionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.WebhookAckResponse{}, ErrSubmissionNotFound
		}
		return dto.WebhookAckResponse{}, err
	}

	interview, err := s.interviewBySubmission(ctx, submissionID)
	if err != nil {
		return dto.WebhookAckResponse{}, err
	}

	wasTerminal := interview.IsTerminal()
	merged, conflict := MergeInterview(interview, InterviewUpdate{
		Provider:       elevenlabs.ProviderName,
		ConversationID: payload.Data.ConversationID,
		Summary:        payload.Data.Analysis.TranscriptSummary,
		Turns:          transcriptFromProvider(payload.Data.Transcript),
	})

	if conflict {
		s.logger.Warn().
			Uint("interview_id", interview.ID).
			Str("stored_conversation_id", interview.ConversationID).
			Str("incoming_conversation_id", payload.Data.ConversationID).
			Msg("conversation id conflict; keeping first writer")
	}

	if err := s.interviews.Update(ctx, &merged); err != nil {
		return dto.WebhookAckResponse{}, err
	}

	if !wasTerminal && merged.Status == models.InterviewStatusCompleted {
		s.events.Publish(ctx, EventInterviewCompleted, merged)
	}

	s.dropSessionBySubmission(ctx, submissionID)

	turns := merged.Turns()
	s.logger.Info().
		Uint("interview_id", merged.ID).
		Str("conversation_id", merged.ConversationID).
		Int("turns", len(turns)).
		Msg("post-call webhook merged")

	return dto.WebhookAckResponse{
		Status:         "success",
		ConversationID: merged.ConversationID,
		TurnsCount:     len(turns),
		HasSummary:     merged.Summary != "",
	}, nil
}

// GetBySubmission returns the employer-facing interview view.
func (s *interviewService) GetBySubmission(ctx context.Context, submissionID uint) (dto.InterviewResponse, error) {
	interview, err := s.interviewBySubmission(ctx, submissionID)
	if err != nil {
		return dto.InterviewResponse{}, err
	}

	return dto.NewInterviewResponse(interview), nil
}

func (s *interviewService) submittedSubmission(ctx context.Context, submissionID uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}

	if submission.Status != models.SubmissionStatusSubmitted {
		return models.Submission{}, ErrSubmissionNotSubmitted
	}

	return submission, nil
}

func (s *interviewService) interviewBySubmission(ctx context.Context, submissionID uint) (models.Interview, error) {
	interview, err := s.interviews.GetBySubmissionID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Interview{}, ErrInterviewNotFound
		}
		return models.Interview{}, err
	}

	return interview, nil
}

func (s *interviewService) storeSession(ctx context.Context, session qaSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.sessions.Set(ctx, sessionKeyPrefix+session.SessionID, raw, s.sessionTTL).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if err := s.sessions.Set(ctx, sessionBySubmissionKey+fmt.Sprint(session.SubmissionID), session.SessionID, s.sessionTTL).Err(); err != nil {
		return fmt.Errorf("store session index: %w", err)
	}

	return nil
}

func (s *interviewService) loadSession(ctx context.Context, sessionID string) (qaSession, error) {
	raw, err := s.sessions.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return qaSession{}, ErrSessionNotFound
		}
		return qaSession{}, err
	}

	var session qaSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return qaSession{}, fmt.Errorf("decode session: %w", err)
	}

	return session, nil
}

func (s *interviewService) loadSessionBySubmission(ctx context.Context, submissionID uint) (qaSession, error) {
	sessionID, err := s.sessions.Get(ctx, sessionBySubmissionKey+fmt.Sprint(submissionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return qaSession{}, ErrSessionNotFound
		}
		return qaSession{}, err
	}

	return s.loadSession(ctx, sessionID)
}

func (s *interviewService) dropSession(ctx context.Context, session qaSession) {
	s.sessions.Del(ctx, sessionKeyPrefix+session.SessionID, sessionBySubmissionKey+fmt.Sprint(session.SubmissionID))
}

func (s *interviewService) dropSessionBySubmission(ctx context.Context, submissionID uint) {
	if s.sessions == nil {
		return
	}
	if session, err := s.loadSessionBySubmission(ctx, submissionID); err == nil {
		s.dropSession(ctx, session)
	}
}

func questionStatusOf(interview models.Interview) dto.QuestionStatusResponse {
	return dto.QuestionStatusResponse{
		SubmissionID: interview.SubmissionID,
		Status:       interview.QuestionsStatus,
		Error:        interview.ErrorMessage,
	}
}

func transcriptFromProvider(items []elevenlabs.TranscriptItem) []models.TranscriptTurn {
	turns := make([]models.TranscriptTurn, 0, len(items))
	for _, item := range items {
		role := models.TurnRoleCandidate
		if item.Role == "agent" || item.Role == "interviewer" {
			role = models.TurnRoleInterviewer
		}

		turn := models.TranscriptTurn{Role: role, Text: item.Message}
		if item.TimeInCallSecs != nil {
			offset := int64(*item.TimeInCallSecs * 1000)
			turn.StartOffsetMs = &offset
		}
		turns = append(turns, turn)
	}

	return turns
}
