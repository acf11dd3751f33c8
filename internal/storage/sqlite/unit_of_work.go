package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// UnitOfWork implements domain.UnitOfWork for SQLite.
type UnitOfWork struct {
	db *DB
	tx *sql.Tx

	users      *UserStore
	problems   *ProblemStore
	attempts   *AttemptStore
	interviews *InterviewStore
}

// NewUnitOfWork creates a unit of work whose repositories run outside any
// transaction until Atomic is called.
func NewUnitOfWork(db *DB) *UnitOfWork {
	return newUnitOfWork(db, db, nil)
}

// newUnitOfWork binds every repository to q.
func newUnitOfWork(db *DB, q querier, tx *sql.Tx) *UnitOfWork {
	return &UnitOfWork{
		db:         db,
		tx:         tx,
		users:      &UserStore{q: q},
		problems:   &ProblemStore{q: q},
		attempts:   &AttemptStore{q: q},
		interviews: &InterviewStore{q: q},
	}
}

// Users returns the user repository
func (u *UnitOfWork) Users() domain.UserRepository {
	return u.users
}

// Problems returns the problem repository
func (u *UnitOfWork) Problems() domain.ProblemRepository {
	return u.problems
}

// Attempts returns the attempt repository
func (u *UnitOfWork) Attempts() domain.AttemptRepository {
	return u.attempts
}

// Interviews returns the interview repository
func (u *UnitOfWork) Interviews() domain.InterviewRepository {
	return u.interviews
}

// Atomic runs fn in a transaction. Nested calls reuse the outer transaction.
func (u *UnitOfWork) Atomic(ctx context.Context, fn func(domain.UnitOfWork) error) error {
	if u.tx != nil {
		return fn(u)
	}

	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txUOW := newUnitOfWork(u.db, tx, tx)

	if err := fn(txUOW); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var _ domain.UnitOfWork = (*UnitOfWork)(nil)
