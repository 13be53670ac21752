package dto

import (
	"time"

	"github.com/hireloop/hireloop-api/internal/models"
)

// QuestionGenerationRequest kicks off async interview question generation.
type QuestionGenerationRequest struct {
	SubmissionID uint `json:"submissionId" validate:"required,gt=0"`
}

// QuestionStatusResponse reports generation progress for client polling.
type QuestionStatusResponse struct {
	SubmissionID uint   `json:"submission_id"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

// InterviewStartRequest opens a synchronous Q&A session for a submission.
type InterviewStartRequest struct {
	SubmissionID uint `json:"submissionId" validate:"required,gt=0"`
}

// InterviewStartResponse returns the opened session and its first question.
type InterviewStartResponse struct {
	SessionID       string `json:"sessionId"`
	QuestionIndex   int    `json:"questionIndex"`
	TotalQuestions  int    `json:"totalQuestions"`
	InterviewerText string `json:"interviewerText"`
}

// AnswerRequest carries one candidate answer in the Q&A loop.
type AnswerRequest struct {
	Text string `json:"text" validate:"required,min=1,max=8000"`
}

// AnswerResponse advances the Q&A loop; Done marks the closing message.
type AnswerResponse struct {
	QuestionIndex   int    `json:"questionIndex"`
	InterviewerText string `json:"interviewerText"`
	Done            bool   `json:"done"`
}

// TranscriptTurnResponse serializes one transcript utterance.
type TranscriptTurnResponse struct {
	Role          string `json:"role"`
	Text          string `json:"text"`
	StartOffsetMs *int64 `json:"start_offset_ms,omitempty"`
	EndOffsetMs   *int64 `json:"end_offset_ms,omitempty"`
}

// InterviewResponse is the employer-facing view of an interview.
type InterviewResponse struct {
	ID             uint                     `json:"id"`
	SubmissionID   uint                     `json:"submission_id"`
	Status         string                   `json:"status"`
	Provider       string                   `json:"provider,omitempty"`
	ConversationID string                   `json:"conversation_id,omitempty"`
	Questions      []string                 `json:"questions,omitempty"`
	Transcript     []TranscriptTurnResponse `json:"transcript"`
	Summary        string                   `json:"summary,omitempty"`
	ErrorMessage   string                   `json:"error_message,omitempty"`
	ErrorAt        *time.Time               `json:"error_at,omitempty"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// NewInterviewResponse maps the model to its API representation.
func NewInterviewResponse(interview models.Interview) InterviewResponse {
	turns := interview.Turns()
	transcript := make([]TranscriptTurnResponse, 0, len(turns))
	for _, turn := range turns {
		transcript = append(transcript, TranscriptTurnResponse{
			Role:          turn.Role,
			Text:          turn.Text,
			StartOffsetMs: turn.StartOffsetMs,
			EndOffsetMs:   turn.EndOffsetMs,
		})
	}

	return InterviewResponse{
		ID:             interview.ID,
		SubmissionID:   interview.SubmissionID,
		Status:         interview.Status,
		Provider:       interview.Provider,
		ConversationID: interview.ConversationID,
		Questions:      interview.QuestionList(),
		Transcript:     transcript,
		Summary:        interview.Summary,
		ErrorMessage:   interview.ErrorMessage,
		ErrorAt:        interview.ErrorAt,
		UpdatedAt:      interview.UpdatedAt,
	}
}

// WebhookAckResponse acknowledges a processed provider callback.
type WebhookAckResponse struct {
	Status         string `json:"status"`
	ConversationID string `json:"conversationId"`
	TurnsCount     int    `json:"turnsCount"`
	HasSummary     bool   `json:"hasSummary"`
}
