package llm

import (
	"context"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// ProviderSource resolves the provider used for a call. *Registry satisfies it.
type ProviderSource interface {
	Default() (Provider, error)
}

// CodeEvaluator judges a submitted solution against a problem.
type CodeEvaluator interface {
	Evaluate(ctx context.Context, req EvaluationRequest) (*domain.CodeEvaluation, error)
}

// DialogueGenerator produces the interviewer's next turn.
type DialogueGenerator interface {
	Respond(ctx context.Context, req DialogueRequest) (*DialogueReply, error)
}

// FeedbackGenerator produces the end-of-interview assessment.
type FeedbackGenerator interface {
	Generate(ctx context.Context, req FeedbackRequest) (*domain.InterviewFeedback, error)
}

var (
	_ ProviderSource    = (*Registry)(nil)
	_ CodeEvaluator     = (*Judge)(nil)
	_ DialogueGenerator = (*Interviewer)(nil)
	_ FeedbackGenerator = (*Assessor)(nil)
)
