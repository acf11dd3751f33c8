package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// UnitOfWork implements domain.UnitOfWork for PostgreSQL.
type UnitOfWork struct {
	db *DB
	tx pgx.Tx

	users      *UserStore
	problems   *ProblemStore
	attempts   *AttemptStore
	interviews *InterviewStore
}

// NewUnitOfWork creates a unit of work whose repositories use the pool
// directly until Atomic is called.
func NewUnitOfWork(db *DB) *UnitOfWork {
	return newUnitOfWork(db, db.pool, nil)
}

func newUnitOfWork(db *DB, q querier, tx pgx.Tx) *UnitOfWork {
	return &UnitOfWork{
		db:         db,
		tx:         tx,
		users:      &UserStore{q: q},
		problems:   &ProblemStore{q: q},
		attempts:   &AttemptStore{q: q},
		interviews: &InterviewStore{q: q},
	}
}

func (u *UnitOfWork) Users() domain.UserRepository           { return u.users }
func (u *UnitOfWork) Problems() domain.ProblemRepository     { return u.problems }
func (u *UnitOfWork) Attempts() domain.AttemptRepository     { return u.attempts }
func (u *UnitOfWork) Interviews() domain.InterviewRepository { return u.interviews }

// Atomic runs fn in a read-committed transaction. Nested calls reuse the
// outer transaction.
func (u *UnitOfWork) Atomic(ctx context.Context, fn func(domain.UnitOfWork) error) error {
	if u.tx != nil {
		return fn(u)
	}

	tx, err := u.db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(newUnitOfWork(u.db, tx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var _ domain.UnitOfWork = (*UnitOfWork)(nil)
