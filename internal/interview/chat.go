package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/llm"
)

const (
	dialogueService  = "interviewer"
	evaluatorService = "code evaluator"

	fallbackReply = "I see. Let's continue working through this problem together."

	// PassScore is the lowest correct score that counts as passing in-session.
	PassScore = 70
)

var (
	errNoDialogue  = errors.New("no dialogue generator configured")
	errNoEvaluator = errors.New("no code evaluator configured")
)

// approachWords mark a transcript that has moved past the opening.
var approachWords = []string{"approach", "solution", "algorithm"}

// ChatReply is the interviewer's answer to one candidate message.
type ChatReply struct {
	Message          string    `json:"message"`
	QuestionType     string    `json:"questionType"`
	ShouldPromptCode bool      `json:"shouldPromptCode"`
	Phase            llm.Phase `json:"phase"`
}

// CodeReview is the in-session verdict on submitted code.
type CodeReview struct {
	Evaluation *domain.CodeEvaluation `json:"evaluation"`
	Feedback   string                 `json:"feedback"`
	Passed     bool                   `json:"passed"`
}

// ClassifyPhase places a transcript in the conversation. Up to two
// candidate messages is the introduction; up to five is reasoning unless
// anyone has mentioned an approach, solution or algorithm; anything else is
// coding.
func ClassifyPhase(transcript []domain.TranscriptEntry) llm.Phase {
	userMessages := 0
	mentioned := false
	for _, e := range transcript {
		if e.Speaker == domain.SpeakerUser {
			userMessages++
		}
		text := strings.ToLower(e.Text)
		for _, w := range approachWords {
			if strings.Contains(text, w) {
				mentioned = true
			}
		}
	}
	switch {
	case userMessages <= 2:
		return llm.PhaseIntroduction
	case userMessages <= 5 && !mentioned:
		return llm.PhaseReasoning
	default:
		return llm.PhaseCoding
	}
}

// Chat records the candidate's message, asks the interviewer for a reply
// and records that too. When the interviewer is unavailable a fixed reply
// keeps the session going.
func (s *Service) Chat(ctx context.Context, id, message string) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message required", domain.ErrInvalidOutcome)
	}
	iv, err := s.inProgress(ctx, id)
	if err != nil {
		return nil, err
	}

	userEntry := domain.TranscriptEntry{
		Speaker: domain.SpeakerUser,
		Text:    message,
		Kind:    domain.KindMessage,
		Time:    s.now().UTC(),
	}
	if err := iv.Append(userEntry); err != nil {
		return nil, err
	}
	phase := ClassifyPhase(iv.Transcript)

	problem, err := s.catalog.FindByID(ctx, iv.ProblemID)
	if err != nil && !errors.Is(err, domain.ErrProblemNotFound) {
		return nil, err
	}

	reply, err := s.respond(ctx, llm.DialogueRequest{
		Problem:    problem,
		Transcript: iv.Transcript,
		Message:    message,
		Phase:      phase,
	})
	if err != nil {
		slog.Warn("interviewer unavailable, using fallback reply", "interview_id", id, "error", err)
		reply = &llm.DialogueReply{
			Message:      fallbackReply,
			QuestionType: llm.QuestionReasoning,
		}
	}

	aiEntry := domain.TranscriptEntry{
		Speaker:      domain.SpeakerAI,
		Text:         reply.Message,
		Kind:         domain.KindMessage,
		QuestionType: reply.QuestionType,
		Time:         s.now().UTC(),
	}
	if err := s.uow.Interviews().AppendTranscript(ctx, id, userEntry, aiEntry); err != nil {
		return nil, err
	}

	return &ChatReply{
		Message:          reply.Message,
		QuestionType:     reply.QuestionType,
		ShouldPromptCode: reply.ShouldPromptCode,
		Phase:            phase,
	}, nil
}

func (s *Service) respond(ctx context.Context, req llm.DialogueRequest) (*llm.DialogueReply, error) {
	if s.dialogue == nil {
		return nil, domain.NewUpstreamError(dialogueService, errNoDialogue)
	}
	reply, err := s.dialogue.Respond(ctx, req)
	if err != nil {
		return nil, domain.NewUpstreamError(dialogueService, err)
	}
	return reply, nil
}

// EvaluateCode judges code submitted during the interview and records the
// submission and the review in the transcript. When the judge is
// unavailable the review carries a zero score and is returned together with
// a *domain.UpstreamError.
func (s *Service) EvaluateCode(ctx context.Context, id, code, language string) (*CodeReview, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: code required", domain.ErrInvalidOutcome)
	}
	if language == "" {
		language = llm.DefaultLanguage
	}
	iv, err := s.inProgress(ctx, id)
	if err != nil {
		return nil, err
	}
	problem, err := s.catalog.FindByID(ctx, iv.ProblemID)
	if err != nil {
		return nil, err
	}

	var upstream *domain.UpstreamError
	eval, err := s.judge(ctx, problem, code, language)
	if err != nil {
		slog.Warn("interview code evaluation failed", "interview_id", id, "error", err)
		upstream = domain.NewUpstreamError(evaluatorService, err)
		eval = domain.FailedEvaluation("Evaluation failed")
	}

	review := &CodeReview{
		Evaluation: eval,
		Feedback:   reviewMessage(eval),
		Passed:     eval.IsCorrect && eval.CorrectnessScore >= PassScore,
	}

	now := s.now().UTC()
	err = s.uow.Interviews().AppendTranscript(ctx, id,
		domain.TranscriptEntry{
			Speaker: domain.SpeakerUser,
			Text:    code,
			Kind:    domain.KindCodeSubmission,
			Time:    now,
		},
		domain.TranscriptEntry{
			Speaker:      domain.SpeakerAI,
			Text:         review.Feedback,
			Kind:         domain.KindCodeFeedback,
			QuestionType: llm.QuestionFeedback,
			Time:         now,
		},
	)
	if err != nil {
		return nil, err
	}

	if upstream != nil {
		return review, upstream
	}
	return review, nil
}

func (s *Service) judge(ctx context.Context, p *domain.Problem, code, language string) (*domain.CodeEvaluation, error) {
	if s.evaluator == nil {
		return nil, errNoEvaluator
	}
	return s.evaluator.Evaluate(ctx, llm.EvaluationRequest{
		Code:              code,
		ProblemStatement:  p.Statement,
		ReferenceApproach: p.SolutionApproach,
		Language:          language,
	})
}

// reviewMessage turns a verdict into what the interviewer says about it.
func reviewMessage(e *domain.CodeEvaluation) string {
	var b strings.Builder
	switch {
	case e.IsCorrect && e.CorrectnessScore >= 80:
		fmt.Fprintf(&b, "Excellent work! Your solution is correct with a score of %d%%. ", e.CorrectnessScore)
		fmt.Fprintf(&b, "Time complexity: %s, Space complexity: %s. ", orUnknown(e.TimeComplexity), orUnknown(e.SpaceComplexity))
		if len(e.Suggestions) > 0 {
			fmt.Fprintf(&b, "Some potential enhancements: %s. ", strings.Join(firstN(e.Suggestions, 2), "; "))
		}
		if len(e.EdgeCasesHandled) > 0 {
			fmt.Fprintf(&b, "Great job handling these edge cases: %s.", strings.Join(e.EdgeCasesHandled, ", "))
		}
	case e.CorrectnessScore >= 50:
		fmt.Fprintf(&b, "Good attempt! Your solution scored %d%%. %s ", e.CorrectnessScore, e.Explanation)
		if len(e.EdgeCasesMissed) > 0 {
			fmt.Fprintf(&b, "You might have missed these edge cases: %s. ", strings.Join(e.EdgeCasesMissed, ", "))
		}
		if len(e.Suggestions) > 0 {
			fmt.Fprintf(&b, "Suggestions: %s.", strings.Join(e.Suggestions, "; "))
		}
		b.WriteString("\n\nWould you like to try again or discuss the approach?")
	default:
		fmt.Fprintf(&b, "Your solution needs some work. %s ", e.Explanation)
		if len(e.Suggestions) > 0 {
			fmt.Fprintf(&b, "Here's what to consider: %s.", strings.Join(e.Suggestions, "; "))
		}
		b.WriteString("\n\nLet me help you think through this. What's your general approach to solving this problem?")
	}
	return strings.TrimSpace(b.String())
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
