package rating

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// RatingChange describes one applied rating update.
type RatingChange struct {
	OldRating int  `json:"oldRating"`
	NewRating int  `json:"newRating"`
	Delta     int  `json:"delta"`
	Clamped   bool `json:"clamped"`
}

// Updater applies deltas to stored users.
type Updater struct {
	uow domain.UnitOfWork
}

// NewUpdater creates an updater over uow.
func NewUpdater(uow domain.UnitOfWork) *Updater {
	return &Updater{uow: uow}
}

// UpdateUserRating applies delta to the user's latest stored rating, records
// the category outcome and recomputes weak categories in one transaction.
func (u *Updater) UpdateUserRating(ctx context.Context, userID string, delta int, category domain.Category, isCorrect bool) (*RatingChange, error) {
	var change *RatingChange
	err := u.uow.Atomic(ctx, func(tx domain.UnitOfWork) error {
		var err error
		change, err = UpdateWithin(ctx, tx, userID, delta, category, isCorrect)
		return err
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// UpdateWithin performs the rating update using a caller's transaction.
func UpdateWithin(ctx context.Context, tx domain.UnitOfWork, userID string, delta int, category domain.Category, isCorrect bool) (*RatingChange, error) {
	user, err := tx.Users().FindForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}

	old := Clamp(user.CurrentRating)
	next, clamped := ApplyDeltaReport(old, delta)
	if clamped {
		slog.Debug("rating clamped",
			"user_id", userID,
			"old_rating", old,
			"delta", delta,
			"new_rating", next)
	}

	user.CurrentRating = next
	user.RecordOutcome(category, isCorrect)
	user.RecomputeWeakCategories(WeakThreshold)
	user.Touch()

	if err := tx.Users().Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user %s: %w", userID, err)
	}

	return &RatingChange{
		OldRating: old,
		NewRating: next,
		Delta:     next - old,
		Clamped:   clamped,
	}, nil
}
