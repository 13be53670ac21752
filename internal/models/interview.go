package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Interview is the voice-interview record attached to a submitted submission.
// It is written from two directions: the synchronous Q&A loop and the
// provider's post-call webhook.
type Interview struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	SubmissionID   uint   `gorm:"not null;uniqueIndex" json:"submission_id"`
	Status         string `gorm:"size:32;not null" json:"status"`
	Provider       string `gorm:"size:64" json:"provider"`
	ConversationID string `gorm:"size:128;index" json:"conversation_id"`
	// QuestionsStatus tracks the async AI generation step separately from the
	// interview lifecycle, so clients can poll readiness before starting.
	QuestionsStatus string         `gorm:"size:32;not null" json:"questions_status"`
	Questions       datatypes.JSON `json:"questions"`
	Transcript      datatypes.JSON `json:"transcript"`
	Summary         string         `gorm:"type:text" json:"summary"`
	ErrorMessage    string         `gorm:"type:text" json:"error_message"`
	ErrorAt         *time.Time     `json:"error_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Submission      Submission     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

const (
	// InterviewStatusNotStarted indicates questions exist (or are being generated) but no turn was exchanged.
	InterviewStatusNotStarted = "not_started"
	// InterviewStatusInProgress indicates a Q&A session is underway.
	InterviewStatusInProgress = "in_progress"
	// InterviewStatusCompleted is terminal; the transcript is final.
	InterviewStatusCompleted = "completed"
	// InterviewStatusFailed is terminal; ErrorMessage holds the cause.
	InterviewStatusFailed = "failed"
)

const (
	// QuestionsStatusPending indicates generation has been requested but not finished.
	QuestionsStatusPending = "pending"
	// QuestionsStatusReady indicates the question list is available.
	QuestionsStatusReady = "ready"
	// QuestionsStatusFailed indicates generation errored terminally.
	QuestionsStatusFailed = "failed"
)

const (
	// TurnRoleInterviewer marks a question or closing message from the interviewer side.
	TurnRoleInterviewer = "interviewer"
	// TurnRoleCandidate marks a candidate answer.
	TurnRoleCandidate = "candidate"
)

// TranscriptTurn is one utterance in the interview transcript. Insertion order
// is chronological and authoritative.
type TranscriptTurn struct {
	Role          string `json:"role"`
	Text          string `json:"text"`
	StartOffsetMs *int64 `json:"start_offset_ms,omitempty"`
	EndOffsetMs   *int64 `json:"end_offset_ms,omitempty"`
}

// IsTerminal reports whether the interview reached a final state.
func (i Interview) IsTerminal() bool {
	return i.Status == InterviewStatusCompleted || i.Status == InterviewStatusFailed
}

// QuestionList decodes the generated questions, returning nil when absent.
func (i Interview) QuestionList() []string {
	if len(i.Questions) == 0 {
		return nil
	}
	var questions []string
	if err := json.Unmarshal(i.Questions, &questions); err != nil {
		return nil
	}
	return questions
}

// SetQuestions stores the question list as JSON.
func (i *Interview) SetQuestions(questions []string) error {
	raw, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	i.Questions = datatypes.JSON(raw)
	return nil
}

// Turns decodes the transcript, returning nil when empty.
func (i Interview) Turns() []TranscriptTurn {
	if len(i.Transcript) == 0 {
		return nil
	}
	var turns []TranscriptTurn
	if err := json.Unmarshal(i.Transcript, &turns); err != nil {
		return nil
	}
	return turns
}

// SetTurns replaces the transcript with the given turns.
func (i *Interview) SetTurns(turns []TranscriptTurn) error {
	raw, err := json.Marshal(turns)
	if err != nil {
		return err
	}
	i.Transcript = datatypes.JSON(raw)
	return nil
}

// AppendTurns adds turns to the end of the transcript.
func (i *Interview) AppendTurns(turns ...TranscriptTurn) error {
	return i.SetTurns(append(i.Turns(), turns...))
}
