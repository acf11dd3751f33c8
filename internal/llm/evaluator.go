package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// DefaultLanguage is assumed when a submission names none.
const DefaultLanguage = "javascript"

// ErrEmptyCode rejects a submission with no code.
var ErrEmptyCode = errors.New("code is empty")

// EvaluationRequest is a solution to be judged.
type EvaluationRequest struct {
	Code              string
	ProblemStatement  string
	ReferenceApproach string
	Language          string
}

// Judge is a CodeEvaluator backed by an LLM.
type Judge struct {
	source ProviderSource
}

// NewJudge creates a judge that asks the source's default provider.
func NewJudge(source ProviderSource) *Judge {
	return &Judge{source: source}
}

// Evaluate asks the model for a verdict. Scores are clamped to [0,100].
func (j *Judge) Evaluate(ctx context.Context, req EvaluationRequest) (*domain.CodeEvaluation, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, ErrEmptyCode
	}
	if req.Language == "" {
		req.Language = DefaultLanguage
	}

	provider, err := j.source.Default()
	if err != nil {
		return nil, err
	}

	resp, err := provider.Generate(ctx, &Request{
		System:      judgeSystemPrompt,
		Messages:    []Message{{Role: RoleUser, Content: judgeUserPrompt(req)}},
		MaxTokens:   800,
		Temperature: 0.2,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate code: %w", err)
	}

	var eval domain.CodeEvaluation
	if err := decodeJSON(resp.Content, &eval); err != nil {
		return nil, fmt.Errorf("evaluate code: %w", err)
	}
	eval.CorrectnessScore = clampScore(eval.CorrectnessScore)
	return &eval, nil
}
