// Package interview runs mock interview sessions: the greeting, the
// dialogue, in-session code review and the single finalize step that turns
// the session into a rating change.
package interview

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/llm"
	"github.com/felixgeelhaar/rehearse/internal/recommend"
)

// DefaultListLimit caps interview listings when the caller sets no limit.
const DefaultListLimit = 20

// greetingStatementLen is how much of the statement the greeting quotes.
const greetingStatementLen = 300

// Users resolves or lazily creates users.
type Users interface {
	EnsureUser(ctx context.Context, userID string) (*domain.User, error)
}

// Service orchestrates interviews.
type Service struct {
	uow       domain.UnitOfWork
	catalog   domain.ProblemCatalog
	selector  *recommend.Selector
	users     Users
	dialogue  llm.DialogueGenerator
	feedback  llm.FeedbackGenerator
	evaluator llm.CodeEvaluator
	events    domain.EventPublisher
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCatalog reads problems from catalog instead of the unit of work.
func WithCatalog(catalog domain.ProblemCatalog) Option {
	return func(s *Service) { s.catalog = catalog }
}

// WithDialogue sets the interviewer used by Chat.
func WithDialogue(d llm.DialogueGenerator) Option {
	return func(s *Service) { s.dialogue = d }
}

// WithFeedback sets the assessor used by Finalize.
func WithFeedback(f llm.FeedbackGenerator) Option {
	return func(s *Service) { s.feedback = f }
}

// WithEvaluator sets the judge used by EvaluateCode.
func WithEvaluator(e llm.CodeEvaluator) Option {
	return func(s *Service) { s.evaluator = e }
}

// WithPublisher sets where finalize events go.
func WithPublisher(p domain.EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an interview service.
func NewService(uow domain.UnitOfWork, selector *recommend.Selector, users Users, opts ...Option) *Service {
	s := &Service{
		uow:      uow,
		catalog:  uow.Problems(),
		selector: selector,
		users:    users,
		events:   domain.NopPublisher{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens an interview on problemID, or on a problem picked for the
// user when problemID is empty, and seeds the transcript with a greeting.
func (s *Service) Start(ctx context.Context, userID, problemID string, field domain.Field) (*domain.Interview, error) {
	if field != "" && !field.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidField, field)
	}
	user, err := s.users.EnsureUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var problem *domain.Problem
	if problemID != "" {
		problem, err = s.catalog.FindByID(ctx, problemID)
	} else {
		problem, err = s.selector.SelectInterviewProblem(ctx, user.ID, field)
	}
	if err != nil {
		return nil, err
	}
	if field == "" {
		field = problem.Field
	}

	iv := domain.NewInterview(user.ID, problem.ID, field)
	iv.CreatedAt = s.now().UTC()
	if err := iv.Append(domain.TranscriptEntry{
		Speaker:      domain.SpeakerAI,
		Text:         greeting(problem),
		QuestionType: llm.QuestionReasoning,
		Time:         iv.CreatedAt,
	}); err != nil {
		return nil, err
	}
	if err := s.uow.Interviews().Create(ctx, iv); err != nil {
		return nil, fmt.Errorf("create interview: %w", err)
	}

	slog.Info("interview started",
		"interview_id", iv.ID,
		"user_id", user.ID,
		"problem_id", problem.ID)
	return iv, nil
}

func greeting(p *domain.Problem) string {
	statement := p.Statement
	if r := []rune(statement); len(r) > greetingStatementLen {
		statement = string(r[:greetingStatementLen]) + "..."
	}
	return fmt.Sprintf("Hello! I'm your AI interviewer today. Let's work on %q. Here's the problem: %s "+
		"Take your time to understand it, and when you're ready, walk me through your initial thoughts.",
		p.Title, statement)
}

// Get returns one interview.
func (s *Service) Get(ctx context.Context, id string) (*domain.Interview, error) {
	return s.uow.Interviews().FindByID(ctx, id)
}

// List returns the user's interviews, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]*domain.Interview, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.uow.Interviews().ListByUser(ctx, userID, limit)
}

// AppendTranscript adds one entry to an in-progress interview.
func (s *Service) AppendTranscript(ctx context.Context, id string, entry domain.TranscriptEntry) error {
	if entry.Text == "" {
		return fmt.Errorf("%w: transcript text required", domain.ErrInvalidOutcome)
	}
	switch entry.Speaker {
	case domain.SpeakerAI, domain.SpeakerUser:
	default:
		return fmt.Errorf("%w: unknown speaker %q", domain.ErrInvalidOutcome, entry.Speaker)
	}
	if entry.Kind == "" {
		entry.Kind = domain.KindMessage
	}
	if entry.Time.IsZero() {
		entry.Time = s.now().UTC()
	}
	return s.uow.Interviews().AppendTranscript(ctx, id, entry)
}

// NextQuestion moves an in-progress interview to another problem near the
// user's rating and announces it in the transcript.
func (s *Service) NextQuestion(ctx context.Context, id string, field domain.Field) (*domain.Problem, error) {
	if field != "" && !field.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidField, field)
	}
	p, err := s.selector.SelectNextForInterview(ctx, id, field, "")
	if err != nil {
		return nil, err
	}
	err = s.uow.Interviews().AppendTranscript(ctx, id, domain.TranscriptEntry{
		Speaker:      domain.SpeakerAI,
		Text:         fmt.Sprintf("Let's move on to the next problem: %q. %s", p.Title, p.Statement),
		Kind:         domain.KindMessage,
		QuestionType: llm.QuestionReasoning,
		Time:         s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) inProgress(ctx context.Context, id string) (*domain.Interview, error) {
	iv, err := s.uow.Interviews().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if iv.IsCompleted() {
		return nil, domain.ErrInterviewCompleted
	}
	return iv, nil
}
