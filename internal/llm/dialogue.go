package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// Phase is the stage of an interview conversation.
type Phase string

const (
	PhaseIntroduction Phase = "introduction"
	PhaseReasoning    Phase = "reasoning"
	PhaseCoding       Phase = "coding"
	PhaseFeedback     Phase = "feedback"
)

// Question types tag interviewer turns in the transcript.
const (
	QuestionReasoning = "reasoning"
	QuestionCoding    = "coding"
	QuestionFeedback  = "feedback"
)

// ContextWindow is how many trailing transcript entries the model sees.
const ContextWindow = 12

// Fallback replies used when the model returns nothing.
const (
	codingPrompt   = "Please go ahead and implement your solution in the code editor. Click 'Submit Solution' when you're ready for me to review it."
	followUpPrompt = "That's interesting! Can you tell me more about your thought process?"
)

var (
	askingQuestionRe     = regexp.MustCompile(`(?i)\?|how|what|why|can you|could you|explain|help|stuck|don't understand|confused`)
	describingApproachRe = regexp.MustCompile(`(?i)i think|my approach|i would|here's|let me|so basically|the idea is|we can|we could|first|then`)
	readyToCodeRe        = regexp.MustCompile(`(?i)ready|let me code|i'll write|start coding|implement|code it|write the code`)
	askingForHintRe      = regexp.MustCompile(`(?i)hint|help|stuck|clue|guidance`)
)

// Intent is what the candidate appears to be doing in a message.
type Intent struct {
	AskingQuestion     bool
	DescribingApproach bool
	ReadyToCode        bool
	AskingForHint      bool
}

// DetectIntent classifies a candidate message.
func DetectIntent(message string) Intent {
	return Intent{
		AskingQuestion:     askingQuestionRe.MatchString(message),
		DescribingApproach: describingApproachRe.MatchString(message),
		ReadyToCode:        readyToCodeRe.MatchString(message),
		AskingForHint:      askingForHintRe.MatchString(message),
	}
}

// DialogueRequest is the context for the interviewer's next turn. Transcript
// already includes the candidate's latest message.
type DialogueRequest struct {
	Problem    *domain.Problem
	Transcript []domain.TranscriptEntry
	Message    string
	Phase      Phase
}

// DialogueReply is the interviewer's turn.
type DialogueReply struct {
	Message          string `json:"message"`
	QuestionType     string `json:"questionType"`
	ShouldPromptCode bool   `json:"shouldPromptCode"`
}

// Interviewer is a DialogueGenerator backed by an LLM.
type Interviewer struct {
	source ProviderSource
}

// NewInterviewer creates an interviewer that asks the source's default provider.
func NewInterviewer(source ProviderSource) *Interviewer {
	return &Interviewer{source: source}
}

// Respond generates the next interviewer message.
func (iv *Interviewer) Respond(ctx context.Context, req DialogueRequest) (*DialogueReply, error) {
	provider, err := iv.source.Default()
	if err != nil {
		return nil, err
	}

	intent := DetectIntent(req.Message)
	transcript := req.Transcript
	if len(transcript) > ContextWindow {
		transcript = transcript[len(transcript)-ContextWindow:]
	}

	resp, err := provider.Generate(ctx, &Request{
		System: interviewerSystemPrompt(req.Problem, req.Phase),
		Messages: []Message{{
			Role:    RoleUser,
			Content: interviewerUserPrompt(transcript, req.Message, intent, req.Phase),
		}},
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}

	return buildReply(stripThinking(resp.Content), intent, req.Phase), nil
}

func buildReply(content string, intent Intent, phase Phase) *DialogueReply {
	reply := &DialogueReply{Message: content, QuestionType: QuestionReasoning}

	lower := strings.ToLower(content)
	if phase == PhaseCoding || intent.ReadyToCode ||
		strings.Contains(lower, "code editor") || strings.Contains(lower, "implement") {
		reply.QuestionType = QuestionCoding
		reply.ShouldPromptCode = true
	}

	if reply.Message == "" {
		reply.Message = followUpPrompt
		if phase == PhaseCoding {
			reply.Message = codingPrompt
		}
	}
	return reply
}
