package domain

import "context"

// -----------------------------------------------------------------------------
// Repository Ports
// Implemented by internal/storage/sqlite and internal/storage/postgres.
// -----------------------------------------------------------------------------

// UserRepository persists users.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	// FindForUpdate reads the latest user state for a read-modify-write.
	// Implementations lock the row where the backend supports it.
	FindForUpdate(ctx context.Context, id string) (*User, error)
	// Create inserts user unless a user with the same ID exists, in which
	// case it does nothing.
	Create(ctx context.Context, user *User) error
	Save(ctx context.Context, user *User) error
}

// ProblemCatalog is the read side of the problem store.
type ProblemCatalog interface {
	FindByID(ctx context.Context, id string) (*Problem, error)
	Query(ctx context.Context, q ProblemQuery) ([]*Problem, error)
}

// ProblemRepository adds seeding to the catalog.
type ProblemRepository interface {
	ProblemCatalog
	Save(ctx context.Context, p *Problem) error
	Count(ctx context.Context) (int, error)
}

// AttemptRepository is the append-only attempt log.
type AttemptRepository interface {
	Append(ctx context.Context, a *Attempt) error
	ListByUser(ctx context.Context, userID string, filter AttemptFilter) ([]*Attempt, error)
}

// InterviewRepository persists interviews.
type InterviewRepository interface {
	Create(ctx context.Context, i *Interview) error
	FindByID(ctx context.Context, id string) (*Interview, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Interview, error)
	// AppendTranscript appends entries to an in-progress interview.
	AppendTranscript(ctx context.Context, id string, entries ...TranscriptEntry) error
	SetProblem(ctx context.Context, id, problemID string) error
	// Complete transitions in_progress to completed. It returns
	// ErrAlreadyFinalized when the interview is no longer in progress.
	Complete(ctx context.Context, id string, c Completion) error
}

// RatingEventStore keeps the rating event log.
type RatingEventStore interface {
	Record(ctx context.Context, event *RatingEvent) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*RatingEvent, error)
}

// UnitOfWork groups repositories that share a transaction.
type UnitOfWork interface {
	Users() UserRepository
	Problems() ProblemRepository
	Attempts() AttemptRepository
	Interviews() InterviewRepository

	// Atomic runs fn inside a transaction. The UnitOfWork passed to fn is
	// bound to that transaction; fn's error rolls everything back.
	Atomic(ctx context.Context, fn func(uow UnitOfWork) error) error
}
