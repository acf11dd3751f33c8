package mcp

import (
	"context"
	"fmt"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/interview"
	"github.com/felixgeelhaar/rehearse/internal/practice"
)

// Server exposes practice and interview operations as MCP tools.
type Server struct {
	mcpServer     *server.Server
	practice      *practice.Service
	interviews    *interview.Service
	defaultUserID string
}

// Config contains configuration for the MCP server
type Config struct {
	Practice      *practice.Service
	Interviews    *interview.Service
	DefaultUserID string
	Version       string
}

// NewServer creates a new MCP server for Rehearse
func NewServer(cfg Config) *Server {
	s := &Server{
		practice:      cfg.Practice,
		interviews:    cfg.Interviews,
		defaultUserID: cfg.DefaultUserID,
	}
	if s.defaultUserID == "" {
		s.defaultUserID = "demo-user"
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "rehearse",
		Version: version,
	}, server.WithInstructions(`
Rehearse is a mock interview trainer for software engineering (SWE),
quantitative finance (QF) and investment banking (IB).
Every scored attempt and finalized interview moves the user's rating
(800-2200) and the next recommended problem adapts to it.

Available tools:
- rehearse_recommend: Get the next problem matched to the user's rating
- rehearse_submit_attempt: Score a practice attempt
- rehearse_dashboard: Get the progress summary
- rehearse_start_interview: Start a mock interview
- rehearse_interview_chat: Send a message to the interviewer
- rehearse_finalize_interview: End an interview and apply its rating change

user_id defaults to the configured demo user when omitted.
`))

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("rehearse_recommend").
		Description("Recommend the next problem for a user, favoring weak categories near their rating.").
		Handler(s.handleRecommend)

	s.mcpServer.Tool("rehearse_submit_attempt").
		Description("Score a practice attempt and update the user's rating.").
		Handler(s.handleSubmitAttempt)

	s.mcpServer.Tool("rehearse_dashboard").
		Description("Get rating, category performance, streak and stats for a user.").
		Handler(s.handleDashboard)

	s.mcpServer.Tool("rehearse_start_interview").
		Description("Start a mock interview. Picks a problem near the user's rating unless one is given.").
		Handler(s.handleStartInterview)

	s.mcpServer.Tool("rehearse_interview_chat").
		Description("Send a candidate message to the interviewer and get the reply.").
		Handler(s.handleInterviewChat)

	s.mcpServer.Tool("rehearse_finalize_interview").
		Description("Finalize an interview. Applies the rating change exactly once.").
		Handler(s.handleFinalizeInterview)
}

// Input/Output types for tools

type RecommendInput struct {
	UserID    string `json:"user_id,omitempty" jsonschema:"description=User ID (defaults to the demo user)"`
	Field     string `json:"field,omitempty" jsonschema:"description=Interview field,enum=SWE,enum=QF,enum=IB"`
	ExcludeID string `json:"exclude_id,omitempty" jsonschema:"description=Problem ID to skip"`
}

type ProblemOutput struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Category   string   `json:"category"`
	Field      string   `json:"field"`
	Difficulty int      `json:"difficulty"`
	Statement  string   `json:"statement"`
	Hints      []string `json:"hints,omitempty"`
}

type SubmitAttemptInput struct {
	UserID       string `json:"user_id,omitempty" jsonschema:"description=User ID (defaults to the demo user)"`
	ProblemID    string `json:"problem_id" jsonschema:"description=Problem that was attempted"`
	IsCorrect    bool   `json:"is_correct" jsonschema:"description=Whether the answer was correct"`
	Score        *int   `json:"score,omitempty" jsonschema:"description=Optional score 0-100"`
	TimeSpentSec int    `json:"time_spent_sec" jsonschema:"description=Seconds spent on the problem"`
	HintsUsed    int    `json:"hints_used,omitempty" jsonschema:"description=Number of hints used"`
}

type SubmitAttemptOutput struct {
	AttemptID   string `json:"attempt_id"`
	RatingDelta int    `json:"rating_delta"`
	NewRating   int    `json:"new_rating"`
	Message     string `json:"message"`
}

type DashboardInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"description=User ID (defaults to the demo user)"`
	Field  string `json:"field,omitempty" jsonschema:"description=Restrict category performance to this field,enum=SWE,enum=QF,enum=IB"`
}

type CategoryOutput struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type DashboardOutput struct {
	Rating              int              `json:"rating"`
	Streak              int              `json:"streak"`
	ProblemsSolved      int              `json:"problems_solved"`
	Accuracy            int              `json:"accuracy"`
	InterviewsCompleted int              `json:"interviews_completed"`
	WeakCategories      []string         `json:"weak_categories"`
	CategoryPerformance []CategoryOutput `json:"category_performance"`
	Summary             string           `json:"summary"`
}

type StartInterviewInput struct {
	UserID    string `json:"user_id,omitempty" jsonschema:"description=User ID (defaults to the demo user)"`
	Field     string `json:"field,omitempty" jsonschema:"description=Interview field,enum=SWE,enum=QF,enum=IB"`
	ProblemID string `json:"problem_id,omitempty" jsonschema:"description=Specific problem to interview on"`
}

type StartInterviewOutput struct {
	InterviewID string `json:"interview_id"`
	ProblemID   string `json:"problem_id"`
	Greeting    string `json:"greeting"`
}

type InterviewChatInput struct {
	InterviewID string `json:"interview_id" jsonschema:"description=Interview ID from rehearse_start_interview"`
	Message     string `json:"message" jsonschema:"description=Candidate message"`
}

type InterviewChatOutput struct {
	Reply            string `json:"reply"`
	Phase            string `json:"phase"`
	ShouldPromptCode bool   `json:"should_prompt_code"`
}

type FinalizeInterviewInput struct {
	InterviewID string `json:"interview_id" jsonschema:"description=Interview ID to finalize"`
	DurationSec int    `json:"duration_sec,omitempty" jsonschema:"description=Interview length in seconds"`
	HintsUsed   int    `json:"hints_used,omitempty" jsonschema:"description=Number of hints used"`
	Code        string `json:"code,omitempty" jsonschema:"description=Final code submitted"`
}

type FinalizeInterviewOutput struct {
	PerformanceScore int      `json:"performance_score"`
	Passed           bool     `json:"passed"`
	RatingDelta      int      `json:"rating_delta"`
	NewRating        int      `json:"new_rating"`
	Strengths        []string `json:"strengths"`
	Recommendations  []string `json:"recommendations"`
}

// Tool handlers

func (s *Server) userID(id string) string {
	if strings.TrimSpace(id) == "" {
		return s.defaultUserID
	}
	return id
}

func (s *Server) handleRecommend(ctx context.Context, input RecommendInput) (ProblemOutput, error) {
	field, err := domain.FieldOrDefault(input.Field)
	if err != nil {
		return ProblemOutput{}, err
	}
	p, err := s.practice.GetRecommendedProblem(ctx, s.userID(input.UserID), field, input.ExcludeID)
	if err != nil {
		return ProblemOutput{}, fmt.Errorf("recommend problem: %w", err)
	}
	return problemOutput(p), nil
}

func (s *Server) handleSubmitAttempt(ctx context.Context, input SubmitAttemptInput) (SubmitAttemptOutput, error) {
	res, err := s.practice.SubmitAttempt(ctx, practice.SubmitRequest{
		UserID:       s.userID(input.UserID),
		ProblemID:    input.ProblemID,
		Mode:         domain.ModePractice,
		IsCorrect:    input.IsCorrect,
		Score:        input.Score,
		TimeSpentSec: input.TimeSpentSec,
		HintsUsed:    input.HintsUsed,
	})
	if err != nil {
		return SubmitAttemptOutput{}, fmt.Errorf("submit attempt: %w", err)
	}

	return SubmitAttemptOutput{
		AttemptID:   res.Attempt.ID,
		RatingDelta: res.RatingDelta,
		NewRating:   res.NewRating,
		Message:     fmt.Sprintf("Rating changed by %s to %d.", signed(res.RatingDelta), res.NewRating),
	}, nil
}

func (s *Server) handleDashboard(ctx context.Context, input DashboardInput) (DashboardOutput, error) {
	var field domain.Field
	if input.Field != "" {
		f, err := domain.ParseField(input.Field)
		if err != nil {
			return DashboardOutput{}, err
		}
		field = f
	}

	sum, err := s.practice.GetDashboardSummary(ctx, s.userID(input.UserID), field)
	if err != nil {
		return DashboardOutput{}, fmt.Errorf("load dashboard: %w", err)
	}

	out := DashboardOutput{
		Rating:              sum.Rating,
		Streak:              sum.Streak,
		ProblemsSolved:      sum.Stats.ProblemsSolved,
		Accuracy:            sum.Stats.Accuracy,
		InterviewsCompleted: sum.Stats.InterviewsCompleted,
		WeakCategories:      make([]string, 0, len(sum.WeakCategories)),
		CategoryPerformance: make([]CategoryOutput, 0, len(sum.CategoryPerformance)),
	}
	for _, c := range sum.WeakCategories {
		out.WeakCategories = append(out.WeakCategories, string(c))
	}
	for _, c := range sum.CategoryPerformance {
		out.CategoryPerformance = append(out.CategoryPerformance, CategoryOutput{Name: string(c.Name), Value: c.Value})
	}

	focus := "none yet"
	if len(out.WeakCategories) > 0 {
		focus = strings.Join(out.WeakCategories, ", ")
	}
	out.Summary = fmt.Sprintf("Rating %d | Solved %d | Accuracy %d%% | Streak %d | Focus: %s",
		out.Rating, out.ProblemsSolved, out.Accuracy, out.Streak, focus)
	return out, nil
}

func (s *Server) handleStartInterview(ctx context.Context, input StartInterviewInput) (StartInterviewOutput, error) {
	field, err := domain.FieldOrDefault(input.Field)
	if err != nil {
		return StartInterviewOutput{}, err
	}

	iv, err := s.interviews.Start(ctx, s.userID(input.UserID), input.ProblemID, field)
	if err != nil {
		return StartInterviewOutput{}, fmt.Errorf("start interview: %w", err)
	}

	out := StartInterviewOutput{InterviewID: iv.ID, ProblemID: iv.ProblemID}
	if len(iv.Transcript) > 0 {
		out.Greeting = iv.Transcript[0].Text
	}
	return out, nil
}

func (s *Server) handleInterviewChat(ctx context.Context, input InterviewChatInput) (InterviewChatOutput, error) {
	reply, err := s.interviews.Chat(ctx, input.InterviewID, input.Message)
	if err != nil {
		return InterviewChatOutput{}, fmt.Errorf("interview chat: %w", err)
	}
	return InterviewChatOutput{
		Reply:            reply.Message,
		Phase:            string(reply.Phase),
		ShouldPromptCode: reply.ShouldPromptCode,
	}, nil
}

func (s *Server) handleFinalizeInterview(ctx context.Context, input FinalizeInterviewInput) (FinalizeInterviewOutput, error) {
	res, err := s.interviews.Finalize(ctx, input.InterviewID, interview.Outcome{
		DurationSec: input.DurationSec,
		HintsUsed:   input.HintsUsed,
		Code:        input.Code,
	})
	if err != nil {
		return FinalizeInterviewOutput{}, fmt.Errorf("finalize interview: %w", err)
	}

	iv := res.Interview
	out := FinalizeInterviewOutput{
		PerformanceScore: iv.PerformanceScore,
		Passed:           iv.Report != nil && iv.Report.Passed,
		RatingDelta:      res.RatingDelta,
		NewRating:        res.NewRating,
		Strengths:        iv.Strengths,
		Recommendations:  iv.Recommendations,
	}
	return out, nil
}

func problemOutput(p *domain.Problem) ProblemOutput {
	return ProblemOutput{
		ID:         p.ID,
		Title:      p.Title,
		Category:   string(p.Category),
		Field:      string(p.Field),
		Difficulty: p.DifficultyRating,
		Statement:  p.Statement,
		Hints:      p.Hints,
	}
}

func signed(n int) string {
	if n >= 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
