package sqlite

import "github.com/felixgeelhaar/rehearse/internal/domain"

// Ensure SQLite stores implement the storage interfaces.
var (
	_ domain.UserRepository      = (*UserStore)(nil)
	_ domain.ProblemRepository   = (*ProblemStore)(nil)
	_ domain.AttemptRepository   = (*AttemptStore)(nil)
	_ domain.InterviewRepository = (*InterviewStore)(nil)
	_ domain.RatingEventStore    = (*EventStore)(nil)
	_ domain.EventPublisher      = (*EventStore)(nil)
)
