package llm

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// FeedbackRequest is a completed session to be assessed.
type FeedbackRequest struct {
	ProblemStatement string
	Category         domain.Category
	Transcript       []domain.TranscriptEntry
	Code             string
	DurationSec      int
	HintsUsed        int
}

// Assessor is a FeedbackGenerator backed by an LLM.
type Assessor struct {
	source ProviderSource
}

// NewAssessor creates an assessor that asks the source's default provider.
func NewAssessor(source ProviderSource) *Assessor {
	return &Assessor{source: source}
}

type feedbackPayload struct {
	PerformanceScore     int      `json:"performanceScore"`
	ProblemSolvingScore  int      `json:"problemSolvingScore"`
	CodeCorrectnessScore int      `json:"codeCorrectnessScore"`
	CommunicationScore   int      `json:"communicationScore"`
	TimeEfficiencyScore  int      `json:"timeEfficiencyScore"`
	EdgeCasesScore       int      `json:"edgeCasesScore"`
	Strengths            []string `json:"strengths"`
	Weaknesses           []string `json:"weaknesses"`
	KeyMistakes          []string `json:"keyMistakes"`
	Recommendations      []string `json:"recommendations"`
	DetailedAnalysis     string   `json:"detailedAnalysis"`
}

// Generate asks the model to score the session.
func (a *Assessor) Generate(ctx context.Context, req FeedbackRequest) (*domain.InterviewFeedback, error) {
	provider, err := a.source.Default()
	if err != nil {
		return nil, err
	}

	resp, err := provider.Generate(ctx, &Request{
		System:      assessorSystemPrompt,
		Messages:    []Message{{Role: RoleUser, Content: assessorUserPrompt(req)}},
		MaxTokens:   1200,
		Temperature: 0.3,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate feedback: %w", err)
	}

	var p feedbackPayload
	if err := decodeJSON(resp.Content, &p); err != nil {
		return nil, fmt.Errorf("generate feedback: %w", err)
	}

	fb := &domain.InterviewFeedback{
		Scores: domain.Scores{
			ProblemSolving:  clampScore(p.ProblemSolvingScore),
			CodeCorrectness: clampScore(p.CodeCorrectnessScore),
			Communication:   clampScore(p.CommunicationScore),
			TimeEfficiency:  clampScore(p.TimeEfficiencyScore),
			EdgeCases:       clampScore(p.EdgeCasesScore),
		},
		PerformanceScore: clampScore(p.PerformanceScore),
		Strengths:        orEmpty(p.Strengths),
		Weaknesses:       orEmpty(p.Weaknesses),
		KeyMistakes:      orEmpty(p.KeyMistakes),
		Recommendations:  orEmpty(p.Recommendations),
		DetailedAnalysis: p.DetailedAnalysis,
	}
	// Some models omit the headline score; fall back to the dimension mean.
	if p.PerformanceScore == 0 {
		fb.PerformanceScore = fb.Scores.Average()
	}
	return fb, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
