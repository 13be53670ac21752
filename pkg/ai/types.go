package ai

import "context"

// QuestionInput contains the artefacts needed to draft interview questions for
// a submitted take-home project.
type QuestionInput struct {
	AssessmentTitle string
	RoleDescription string
	ProjectBrief    string
	GithubLink      string
	CandidateNotes  string
	QuestionCount   int
}

// Generator describes an AI model capable of drafting interview questions.
// Implementations exist per vendor and are selected by configuration.
type Generator interface {
	Generate(ctx context.Context, input QuestionInput) ([]string, error)
}
