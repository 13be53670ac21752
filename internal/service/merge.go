package service

import (
	"github.com/hireloop/hireloop-api/internal/models"
)

// InterviewUpdate is the normalized content of one provider delivery, ready to
// be reconciled into the stored interview.
type InterviewUpdate struct {
	Provider       string
	ConversationID string
	Summary        string
	Turns          []models.TranscriptTurn
}

// MergeInterview reconciles an incoming update into the current interview and
// reports whether a conversation-id conflict was detected. The function is
// pure so the dual-write race between the live Q&A path and the webhook path
// can be tested without transport concerns.
//
// Rules:
//   - conversationId: first writer wins; a different incoming id is a
//     conflict and is not applied.
//   - transcript: replaced only when the incoming transcript is longer than
//     the stored one, so redelivering the same payload never duplicates turns.
//   - summary and provider fill in only when missing.
//   - status: moves to completed unless already terminal; completed and
//     failed never regress.
func MergeInterview(current models.Interview, incoming InterviewUpdate) (models.Interview, bool) {
	merged := current
	conflict := false

	switch {
	case merged.ConversationID == "":
		merged.ConversationID = incoming.ConversationID
	case incoming.ConversationID != "" && incoming.ConversationID != merged.ConversationID:
		conflict = true
	}

	if !conflict && len(incoming.Turns) > len(merged.Turns()) {
		_ = merged.SetTurns(incoming.Turns)
	}

	if merged.Summary == "" {
		merged.Summary = incoming.Summary
	}

	if merged.Provider == "" {
		merged.Provider = incoming.Provider
	}

	if !merged.IsTerminal() {
		merged.Status = models.InterviewStatusCompleted
	}

	return merged, conflict
}
