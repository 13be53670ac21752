package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hireloop/hireloop-api/internal/models"
)

func turnsOf(texts ...string) []models.TranscriptTurn {
	turns := make([]models.TranscriptTurn, 0, len(texts))
	for i, text := range texts {
		role := models.TurnRoleInterviewer
		if i%2 == 1 {
			role = models.TurnRoleCandidate
		}
		turns = append(turns, models.TranscriptTurn{Role: role, Text: text})
	}
	return turns
}

func TestMergeInterviewFillsEmptyRecord(t *testing.T) {
	current := models.Interview{Status: models.InterviewStatusInProgress}

	merged, conflict := MergeInterview(current, InterviewUpdate{
		Provider:       "elevenlabs",
		ConversationID: "conv_1",
		Summary:        "Good depth.",
		Turns:          turnsOf("Q?", "A."),
	})

	require.False(t, conflict)
	require.Equal(t, "conv_1", merged.ConversationID)
	require.Equal(t, "elevenlabs", merged.Provider)
	require.Equal(t, "Good depth.", merged.Summary)
	require.Len(t, merged.Turns(), 2)
	require.Equal(t, models.InterviewStatusCompleted, merged.Status)
}

func TestMergeInterviewLongerTranscriptWins(t *testing.T) {
	current := models.Interview{Status: models.InterviewStatusInProgress, ConversationID: "conv_1"}
	require.NoError(t, current.SetTurns(turnsOf("Q?", "partial")))

	merged, conflict := MergeInterview(current, InterviewUpdate{
		ConversationID: "conv_1",
		Turns:          turnsOf("Q?", "partial", "follow-up?", "full answer"),
	})

	require.False(t, conflict)
	require.Len(t, merged.Turns(), 4)
}

func TestMergeInterviewShorterTranscriptIgnored(t *testing.T) {
	current := models.Interview{Status: models.InterviewStatusCompleted, ConversationID: "conv_1"}
	require.NoError(t, current.SetTurns(turnsOf("Q?", "A.", "Q2?", "A2.")))

	merged, conflict := MergeInterview(current, InterviewUpdate{
		ConversationID: "conv_1",
		Turns:          turnsOf("Q?", "A."),
	})

	require.False(t, conflict)
	require.Len(t, merged.Turns(), 4)
}

func TestMergeInterviewIsIdempotent(t *testing.T) {
	current := models.Interview{Status: models.InterviewStatusInProgress}
	update := InterviewUpdate{
		Provider:       "elevenlabs",
		ConversationID: "conv_1",
		Summary:        "S",
		Turns:          turnsOf("Q?", "A."),
	}

	once, conflict := MergeInterview(current, update)
	require.False(t, conflict)
	twice, conflict := MergeInterview(once, update)
	require.False(t, conflict)
	require.Equal(t, once, twice)
}

func TestMergeInterviewConversationConflict(t *testing.T) {
	current := models.Interview{Status: models.InterviewStatusCompleted, ConversationID: "conv_first"}
	require.NoError(t, current.SetTurns(turnsOf("Q?", "A.")))

	merged, conflict := MergeInterview(current, InterviewUpdate{
		ConversationID: "conv_second",
		Turns:          turnsOf("x", "y", "z", "w", "v", "u"),
	})

	require.True(t, conflict)
	require.Equal(t, "conv_first", merged.ConversationID)
	require.Len(t, merged.Turns(), 2)
}

func TestMergeInterviewNeverResurrectsFailure(t *testing.T) {
	current := models.Interview{Status: models.InterviewStatusFailed, ErrorMessage: "generation failed"}

	merged, conflict := MergeInterview(current, InterviewUpdate{ConversationID: "conv_1", Turns: turnsOf("Q?")})

	require.False(t, conflict)
	require.Equal(t, models.InterviewStatusFailed, merged.Status)
	require.Equal(t, "generation failed", merged.ErrorMessage)
}

func TestMergeInterviewSummaryFillOnly(t *testing.T) {
	current := models.Interview{Status: models.InterviewStatusCompleted, ConversationID: "conv_1", Summary: "original"}

	merged, _ := MergeInterview(current, InterviewUpdate{ConversationID: "conv_1", Summary: "replacement"})

	require.Equal(t, "original", merged.Summary)
}
