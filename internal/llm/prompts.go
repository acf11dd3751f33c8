package llm

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

const judgeSystemPrompt = `You are a strict but fair coding interview judge.
Evaluate the candidate's solution against the problem statement and the reference approach.
Respond with a single JSON object and nothing else, using exactly these keys:
{
  "isCorrect": boolean,
  "correctnessScore": integer from 0 to 100,
  "timeComplexity": string,
  "spaceComplexity": string,
  "suggestions": [string],
  "edgeCasesHandled": [string],
  "edgeCasesMissed": [string],
  "explanation": string
}
A solution is correct only if it solves the problem for all valid inputs.`

const assessorSystemPrompt = `You are a senior interviewer writing the debrief for a mock interview.
Score the candidate from the transcript and submitted code.
Respond with a single JSON object and nothing else, using exactly these keys:
{
  "performanceScore": integer 0-100,
  "problemSolvingScore": integer 0-100,
  "codeCorrectnessScore": integer 0-100,
  "communicationScore": integer 0-100,
  "timeEfficiencyScore": integer 0-100,
  "edgeCasesScore": integer 0-100,
  "strengths": [string],
  "weaknesses": [string],
  "keyMistakes": [string],
  "recommendations": [string],
  "detailedAnalysis": string
}
Be specific and cite moments from the transcript.`

// interviewerSystemPrompt describes the interviewer persona for one phase.
func interviewerSystemPrompt(p *domain.Problem, phase Phase) string {
	var sb strings.Builder

	sb.WriteString("You are an expert technical interviewer conducting a mock interview. The interview has different phases:\n\n")
	sb.WriteString(fmt.Sprintf("CURRENT PHASE: %s\n\n", phase))
	sb.WriteString(`Your behavior depends on the phase:

## INTRODUCTION PHASE (first few exchanges):
- Welcome the candidate warmly
- Present the problem clearly
- Ask them to think about the problem and discuss their initial thoughts
- Ask a REASONING question like "What's your first instinct when you see this problem?"

## REASONING PHASE:
- Ask thought-provoking questions about their approach
- Probe time complexity, edge cases such as empty input, and more efficient alternatives
- When they have a solid approach, tell them to implement it in the code editor and submit when ready

## CODING PHASE:
- If they haven't submitted code, encourage them to write and submit their solution
- If they're stuck, offer hints from the problem hints
- When they say they're ready, direct them to the code editor and the Submit Solution button

## FEEDBACK PHASE (after code evaluation):
- If code was correct: congratulate them and mention possible optimizations
- If code had issues: explain what went wrong and guide them to fix it

IMPORTANT RULES:
1. Keep responses to 2-4 sentences max
2. Actually ANSWER questions when asked, don't just deflect with another question
3. Be encouraging and supportive
4. When transitioning to coding, clearly tell them to use the code editor
5. Use the problem hints when they're stuck

`)
	if p != nil {
		sb.WriteString(fmt.Sprintf("PROBLEM: %s\n%s\n\n", p.Title, p.Statement))
		if len(p.Hints) > 0 {
			sb.WriteString("HINTS (use when candidate is stuck):\n")
			for i, h := range p.Hints {
				sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, h))
			}
		}
	}
	return sb.String()
}

// interviewerUserPrompt frames the candidate's latest message.
func interviewerUserPrompt(transcript []domain.TranscriptEntry, message string, intent Intent, phase Phase) string {
	var sb strings.Builder

	sb.WriteString("CONVERSATION SO FAR:\n")
	for _, e := range transcript {
		sb.WriteString(fmt.Sprintf("%s: %s\n", e.Speaker, e.Text))
	}
	sb.WriteString(fmt.Sprintf("\nCANDIDATE'S MESSAGE: %q\n\n", message))

	if intent.AskingQuestion {
		sb.WriteString("[CONTEXT: Candidate is asking a question - provide a helpful answer]\n")
	}
	if intent.DescribingApproach {
		sb.WriteString("[CONTEXT: Candidate is explaining their approach - give constructive feedback]\n")
	}
	if intent.ReadyToCode {
		sb.WriteString("[CONTEXT: Candidate wants to code - direct them to the code editor]\n")
	}
	if intent.AskingForHint {
		sb.WriteString("[CONTEXT: Candidate needs a hint - provide one from the hints list]\n")
	}

	sb.WriteString(fmt.Sprintf("\nRespond appropriately for the %s phase:", phase))
	return sb.String()
}

func judgeUserPrompt(req EvaluationRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Problem\n\n%s\n\n", req.ProblemStatement))
	if req.ReferenceApproach != "" {
		sb.WriteString(fmt.Sprintf("## Reference Approach\n\n%s\n\n", req.ReferenceApproach))
	}
	sb.WriteString(fmt.Sprintf("## Candidate Solution (%s)\n\n```%s\n%s\n```\n", req.Language, req.Language, req.Code))
	return sb.String()
}

func assessorUserPrompt(req FeedbackRequest) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Problem (%s)\n\n%s\n\n", req.Category, req.ProblemStatement))
	sb.WriteString(fmt.Sprintf("## Session\n\n- Duration: %d seconds\n- Hints used: %d\n\n", req.DurationSec, req.HintsUsed))

	sb.WriteString("## Transcript\n\n")
	if len(req.Transcript) == 0 {
		sb.WriteString("(empty)\n")
	}
	for _, e := range req.Transcript {
		sb.WriteString(fmt.Sprintf("%s: %s\n", e.Speaker, e.Text))
	}

	if req.Code != "" {
		sb.WriteString(fmt.Sprintf("\n## Final Code\n\n```\n%s\n```\n", req.Code))
	}
	return sb.String()
}
