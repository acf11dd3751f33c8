package domain

import (
	"time"

	"github.com/google/uuid"
)

// InterviewStatus is the lifecycle state of an interview.
type InterviewStatus string

const (
	StatusInProgress InterviewStatus = "in_progress"
	StatusCompleted  InterviewStatus = "completed"
)

// Speaker identifies who produced a transcript entry.
type Speaker string

const (
	SpeakerAI   Speaker = "AI"
	SpeakerUser Speaker = "User"
)

// EntryKind classifies transcript entries.
type EntryKind string

const (
	KindMessage        EntryKind = "message"
	KindCodeSubmission EntryKind = "code_submission"
	KindCodeFeedback   EntryKind = "code_feedback"
)

// TranscriptEntry is one line of interview dialogue.
type TranscriptEntry struct {
	Speaker      Speaker   `json:"speaker"`
	Text         string    `json:"text"`
	Kind         EntryKind `json:"kind,omitempty"`
	QuestionType string    `json:"question_type,omitempty"`
	Time         time.Time `json:"timestamp"`
}

// Scores are the per-dimension interview scores, each in [0,100].
type Scores struct {
	ProblemSolving  int `json:"problemSolving"`
	CodeCorrectness int `json:"codeCorrectness"`
	Communication   int `json:"communication"`
	TimeEfficiency  int `json:"timeEfficiency"`
	EdgeCases       int `json:"edgeCases"`
}

// Average returns the rounded mean of all five dimensions.
func (s Scores) Average() int {
	sum := s.ProblemSolving + s.CodeCorrectness + s.Communication + s.TimeEfficiency + s.EdgeCases
	return (sum + 2) / 5
}

// TimelineEvent marks a moment in the interview report.
type TimelineEvent struct {
	At    string `json:"time"`
	Event string `json:"event"`
	Kind  string `json:"type"`
}

// Report is the detailed record produced at finalize.
type Report struct {
	Timeline           []TimelineEvent `json:"timeline"`
	DetailedAnalysis   string          `json:"detailedAnalysis,omitempty"`
	CodeSubmitted      string          `json:"codeSubmitted,omitempty"`
	CorrectAnswers     *int            `json:"correctAnswers,omitempty"`
	QuestionsAttempted *int            `json:"questionsAttempted,omitempty"`
	Passed             bool            `json:"passed"`
}

// Interview is a timed mock interview session.
type Interview struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	ProblemID        string            `json:"problem_id"`
	Field            Field             `json:"field"`
	Status           InterviewStatus   `json:"status"`
	Transcript       []TranscriptEntry `json:"transcript"`
	Scores           *Scores           `json:"scores,omitempty"`
	PerformanceScore int               `json:"performance_score"`
	Strengths        []string          `json:"strengths,omitempty"`
	Weaknesses       []string          `json:"weaknesses,omitempty"`
	KeyMistakes      []string          `json:"key_mistakes,omitempty"`
	Recommendations  []string          `json:"recommendations,omitempty"`
	Report           *Report           `json:"report,omitempty"`
	RatingDelta      int               `json:"rating_delta"`
	DurationSec      int               `json:"duration_sec"`
	CreatedAt        time.Time         `json:"created_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
}

// NewInterview creates an in-progress interview.
func NewInterview(userID, problemID string, field Field) *Interview {
	return &Interview{
		ID:         uuid.NewString(),
		UserID:     userID,
		ProblemID:  problemID,
		Field:      field,
		Status:     StatusInProgress,
		Transcript: []TranscriptEntry{},
		CreatedAt:  time.Now().UTC(),
	}
}

// IsCompleted reports whether the interview reached its terminal state.
func (i *Interview) IsCompleted() bool {
	return i.Status == StatusCompleted
}

// Append adds an entry to the transcript.
func (i *Interview) Append(entry TranscriptEntry) error {
	if i.IsCompleted() {
		return ErrInterviewCompleted
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}
	if entry.Kind == "" {
		entry.Kind = KindMessage
	}
	i.Transcript = append(i.Transcript, entry)
	return nil
}

// UserMessages counts the candidate's entries.
func (i *Interview) UserMessages() int {
	n := 0
	for _, e := range i.Transcript {
		if e.Speaker == SpeakerUser {
			n++
		}
	}
	return n
}

// Passed reports whether a completed interview counts as passed.
func (i *Interview) Passed() bool {
	if i.Report != nil && i.Report.Passed {
		return true
	}
	return i.PerformanceScore >= 70 || i.RatingDelta > 0
}

// Completion is everything written when an interview is finalized.
type Completion struct {
	Scores           Scores
	PerformanceScore int
	Strengths        []string
	Weaknesses       []string
	KeyMistakes      []string
	Recommendations  []string
	Report           Report
	RatingDelta      int
	DurationSec      int
	CompletedAt      time.Time
}

// ApplyCompletion moves the interview to completed in memory.
func (i *Interview) ApplyCompletion(c Completion) error {
	if i.IsCompleted() {
		return ErrAlreadyFinalized
	}
	scores := c.Scores
	report := c.Report
	completedAt := c.CompletedAt
	i.Status = StatusCompleted
	i.Scores = &scores
	i.PerformanceScore = c.PerformanceScore
	i.Strengths = c.Strengths
	i.Weaknesses = c.Weaknesses
	i.KeyMistakes = c.KeyMistakes
	i.Recommendations = c.Recommendations
	i.Report = &report
	i.RatingDelta = c.RatingDelta
	i.DurationSec = c.DurationSec
	i.CompletedAt = &completedAt
	return nil
}
