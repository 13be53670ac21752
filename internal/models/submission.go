package models

import "time"

// Submission tracks one candidate's attempt at one assessment. Candidates hold
// no account; the access token on this record is their only credential.
type Submission struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	AssessmentID   uint   `gorm:"not null;index" json:"assessment_id"`
	Token          string `gorm:"size:64;uniqueIndex;not null" json:"-"`
	CandidateEmail string `gorm:"size:255" json:"candidate_email"`
	Status         string `gorm:"size:32;not null" json:"status"`
	// TimeLimitMinutes is copied from the assessment at share-link creation so
	// later edits to the assessment never move an in-flight deadline.
	TimeLimitMinutes int        `gorm:"not null" json:"time_limit_minutes"`
	QuestionCount    int        `gorm:"not null" json:"question_count"`
	StartedAt        *time.Time `json:"started_at"`
	SubmittedAt      *time.Time `json:"submitted_at"`
	GithubLink       string     `gorm:"size:512" json:"github_link"`
	Notes            string     `gorm:"type:text" json:"notes"`
	OptOutReason     string     `gorm:"type:text" json:"opt_out_reason"`
	OptedOutAt       *time.Time `json:"opted_out_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Assessment       Assessment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assessment"`
}

const (
	// SubmissionStatusPending indicates the share link exists but the candidate has not started.
	SubmissionStatusPending = "pending"
	// SubmissionStatusInProgress indicates the candidate started and the clock is running.
	SubmissionStatusInProgress = "in-progress"
	// SubmissionStatusSubmitted indicates the candidate delivered their work.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusExpired indicates the deadline passed with no submit.
	SubmissionStatusExpired = "expired"
	// SubmissionStatusOptedOut indicates the candidate withdrew from the process.
	SubmissionStatusOptedOut = "opted-out"
)

// submissionTransitions enumerates the legal lifecycle edges. Terminal states
// have no entry: nothing leaves submitted, expired or opted-out.
var submissionTransitions = map[string][]string{
	SubmissionStatusPending:    {SubmissionStatusInProgress, SubmissionStatusOptedOut},
	SubmissionStatusInProgress: {SubmissionStatusSubmitted, SubmissionStatusExpired, SubmissionStatusOptedOut},
}

// IsTerminal reports whether no further lifecycle transitions are permitted.
func (s Submission) IsTerminal() bool {
	switch s.Status {
	case SubmissionStatusSubmitted, SubmissionStatusExpired, SubmissionStatusOptedOut:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving to the target status is a legal
// edge of the lifecycle. A pending submission cannot jump straight to
// submitted or expired; it has to pass through in-progress first.
func (s Submission) CanTransitionTo(target string) bool {
	for _, allowed := range submissionTransitions[s.Status] {
		if target == allowed {
			return true
		}
	}
	return false
}

// Deadline returns the instant the time budget runs out, or nil before start.
func (s Submission) Deadline() *time.Time {
	if s.StartedAt == nil {
		return nil
	}
	deadline := s.StartedAt.Add(time.Duration(s.TimeLimitMinutes) * time.Minute)
	return &deadline
}

// TimeRemaining computes the minutes left on the clock at the given instant.
// It is the sole authority on expiry; client-reported elapsed time is never
// trusted. Returns nil when the submission has not started.
func (s Submission) TimeRemaining(now time.Time) *float64 {
	if s.StartedAt == nil {
		return nil
	}
	elapsed := now.Sub(*s.StartedAt).Minutes()
	remaining := float64(s.TimeLimitMinutes) - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// IsLate reports whether the work arrived after the deadline. Late submissions
// are accepted and stored; this flag is informational for employers.
func (s Submission) IsLate() bool {
	if s.SubmittedAt == nil || s.StartedAt == nil {
		return false
	}
	deadline := s.Deadline()
	return deadline != nil && s.SubmittedAt.After(*deadline)
}

// TimeSpent returns the wall-clock duration between start and submit, or zero
// when either endpoint is missing.
func (s Submission) TimeSpent() time.Duration {
	if s.StartedAt == nil || s.SubmittedAt == nil {
		return 0
	}
	return s.SubmittedAt.Sub(*s.StartedAt)
}
