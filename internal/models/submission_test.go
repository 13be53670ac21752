package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmissionCanTransitionTo(t *testing.T) {
	cases := []struct {
		name    string
		from    string
		to      string
		allowed bool
	}{
		{"pending to in-progress", SubmissionStatusPending, SubmissionStatusInProgress, true},
		{"pending to opted-out", SubmissionStatusPending, SubmissionStatusOptedOut, true},
		// Submitted and expired are only reachable through in-progress.
		{"pending to submitted", SubmissionStatusPending, SubmissionStatusSubmitted, false},
		{"pending to expired", SubmissionStatusPending, SubmissionStatusExpired, false},
		{"in-progress to submitted", SubmissionStatusInProgress, SubmissionStatusSubmitted, true},
		{"in-progress to expired", SubmissionStatusInProgress, SubmissionStatusExpired, true},
		{"in-progress to pending", SubmissionStatusInProgress, SubmissionStatusPending, false},
		{"submitted is terminal", SubmissionStatusSubmitted, SubmissionStatusOptedOut, false},
		{"expired is terminal", SubmissionStatusExpired, SubmissionStatusSubmitted, false},
		{"opted-out is terminal", SubmissionStatusOptedOut, SubmissionStatusInProgress, false},
		{"unknown source", "bogus", SubmissionStatusSubmitted, false},
		{"unknown target", SubmissionStatusPending, "bogus", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			submission := Submission{Status: tc.from}
			require.Equal(t, tc.allowed, submission.CanTransitionTo(tc.to))
		})
	}
}

func TestSubmissionTimeRemaining(t *testing.T) {
	start := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	submission := Submission{Status: SubmissionStatusInProgress, TimeLimitMinutes: 60, StartedAt: &start}

	// Before start there is no clock at all.
	require.Nil(t, Submission{TimeLimitMinutes: 60}.TimeRemaining(start))

	remaining := submission.TimeRemaining(start.Add(45 * time.Minute))
	require.NotNil(t, remaining)
	require.Equal(t, 15.0, *remaining)

	// Clamped at zero past the deadline rather than going negative.
	remaining = submission.TimeRemaining(start.Add(2 * time.Hour))
	require.NotNil(t, remaining)
	require.Equal(t, 0.0, *remaining)
}

func TestSubmissionIsLate(t *testing.T) {
	start := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)

	onTime := start.Add(59 * time.Minute)
	late := start.Add(61 * time.Minute)

	require.False(t, Submission{TimeLimitMinutes: 60, StartedAt: &start, SubmittedAt: &onTime}.IsLate())
	require.True(t, Submission{TimeLimitMinutes: 60, StartedAt: &start, SubmittedAt: &late}.IsLate())
	require.False(t, Submission{TimeLimitMinutes: 60, StartedAt: &start}.IsLate())
	require.False(t, Submission{TimeLimitMinutes: 60, SubmittedAt: &late}.IsLate())
}

func TestSubmissionTimeSpent(t *testing.T) {
	start := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	end := start.Add(37 * time.Minute)

	require.Equal(t, 37*time.Minute, Submission{StartedAt: &start, SubmittedAt: &end}.TimeSpent())
	require.Equal(t, time.Duration(0), Submission{StartedAt: &start}.TimeSpent())
}
