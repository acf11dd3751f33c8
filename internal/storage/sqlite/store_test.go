package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

func seedProblem(t *testing.T, db *DB, id string, field domain.Field, category domain.Category, rating int) *domain.Problem {
	t.Helper()
	p := &domain.Problem{
		ID:               id,
		Title:            "Problem " + id,
		Statement:        "Solve " + id,
		Category:         category,
		Field:            field,
		DifficultyRating: rating,
		Hints:            []string{"think"},
		CreatedAt:        time.Now().UTC(),
	}
	if err := NewProblemStore(db).Save(context.Background(), p); err != nil {
		t.Fatalf("seed problem: %v", err)
	}
	return p
}

func seedUser(t *testing.T, db *DB, id string, rating int) *domain.User {
	t.Helper()
	u := domain.NewUser(id, domain.FieldSWE, rating)
	if err := NewUserStore(db).Save(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestUserStore_SaveFind(t *testing.T) {
	db := openTestDB(t)
	store := NewUserStore(db)
	ctx := context.Background()

	u := domain.NewUser("u1", domain.FieldQF, 1350)
	u.Role = domain.RoleQuantDeveloper
	u.RecordOutcome(domain.CategoryProbability, false)
	u.RecomputeWeakCategories(0.5)
	u.CompletedDiagnostic = true

	if err := store.Save(ctx, u); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.FindByID(ctx, "u1")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if loaded.CurrentRating != 1350 || loaded.Field != domain.FieldQF || loaded.Role != domain.RoleQuantDeveloper {
		t.Errorf("loaded = %+v", loaded)
	}
	if !loaded.CompletedDiagnostic {
		t.Error("CompletedDiagnostic = false; want true")
	}
	if loaded.CategoryStats[domain.CategoryProbability].Total != 1 {
		t.Errorf("CategoryStats = %v", loaded.CategoryStats)
	}
	if len(loaded.WeakCategories) != 1 || loaded.WeakCategories[0] != domain.CategoryProbability {
		t.Errorf("WeakCategories = %v", loaded.WeakCategories)
	}

	if _, err := store.FindByID(ctx, "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("FindByID(missing) error = %v; want ErrUserNotFound", err)
	}
}

func TestUserStore_RatingBounds(t *testing.T) {
	db := openTestDB(t)
	u := domain.NewUser("u1", domain.FieldSWE, 2500)
	if err := NewUserStore(db).Save(context.Background(), u); err == nil {
		t.Error("Save() should reject a rating outside [800, 2200]")
	}
}

func TestProblemStore_Query(t *testing.T) {
	db := openTestDB(t)
	store := NewProblemStore(db)
	ctx := context.Background()

	seedProblem(t, db, "a", domain.FieldSWE, domain.CategoryArrays, 1000)
	seedProblem(t, db, "b", domain.FieldSWE, domain.CategoryGraphs, 1250)
	seedProblem(t, db, "c", domain.FieldSWE, domain.CategoryArrays, 1400)
	seedProblem(t, db, "q", domain.FieldQF, domain.CategoryOptions, 1200)

	tests := []struct {
		name  string
		query domain.ProblemQuery
		want  []string
	}{
		{"all", domain.ProblemQuery{}, []string{"a", "q", "b", "c"}},
		{"field", domain.ProblemQuery{Field: domain.FieldSWE}, []string{"a", "b", "c"}},
		{"window", domain.ProblemQuery{Field: domain.FieldSWE, MinRating: 1100, MaxRating: 1400}, []string{"b", "c"}},
		{"exclude", domain.ProblemQuery{Field: domain.FieldSWE, ExcludeID: "b"}, []string{"a", "c"}},
		{"category", domain.ProblemQuery{Category: domain.CategoryArrays}, []string{"a", "c"}},
		{"limit", domain.ProblemQuery{Field: domain.FieldSWE, Limit: 1}, []string{"a"}},
		{"empty", domain.ProblemQuery{Field: domain.FieldIB}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.query)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Query() returned %d problems; want %d", len(got), len(tt.want))
			}
			for i, p := range got {
				if p.ID != tt.want[i] {
					t.Errorf("Query()[%d] = %q; want %q", i, p.ID, tt.want[i])
				}
			}
		})
	}

	n, err := store.Count(ctx)
	if err != nil || n != 4 {
		t.Errorf("Count() = %d, %v; want 4", n, err)
	}
	if _, err := store.FindByID(ctx, "zzz"); !errors.Is(err, domain.ErrProblemNotFound) {
		t.Errorf("FindByID(zzz) error = %v; want ErrProblemNotFound", err)
	}
}

func TestAttemptStore_AppendList(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1", 1200)
	seedProblem(t, db, "p1", domain.FieldSWE, domain.CategoryArrays, 1200)
	store := NewAttemptStore(db)

	score := 85
	base := time.Now().UTC().Add(-time.Hour)
	for i, mode := range []domain.AttemptMode{domain.ModePractice, domain.ModeDiagnostic, domain.ModePractice} {
		a := &domain.Attempt{
			ID:           "a" + string(rune('0'+i)),
			UserID:       "u1",
			ProblemID:    "p1",
			Mode:         mode,
			IsCorrect:    i != 1,
			TimeSpentSec: 60,
			Category:     domain.CategoryArrays,
			Field:        domain.FieldSWE,
			RatingDelta:  16,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if i == 2 {
			a.Score = &score
			a.Evaluation = &domain.CodeEvaluation{IsCorrect: true, CorrectnessScore: 85}
		}
		if err := store.Append(ctx, a); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	all, err := store.ListByUser(ctx, "u1", domain.AttemptFilter{})
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d; want 3", len(all))
	}
	if all[0].ID != "a2" {
		t.Errorf("newest attempt = %q; want a2", all[0].ID)
	}
	if all[0].Score == nil || *all[0].Score != 85 || all[0].Evaluation == nil {
		t.Errorf("score/evaluation not round-tripped: %+v", all[0])
	}

	diag, _ := store.ListByUser(ctx, "u1", domain.AttemptFilter{Mode: domain.ModeDiagnostic})
	if len(diag) != 1 || diag[0].IsCorrect {
		t.Errorf("diagnostic filter = %+v", diag)
	}

	limited, _ := store.ListByUser(ctx, "u1", domain.AttemptFilter{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("limit = %d; want 2", len(limited))
	}

	dup := *all[0]
	if err := store.Append(ctx, &dup); err == nil {
		t.Error("Append() with an existing ID should fail")
	}
}

func TestInterviewStore_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1", 1200)
	seedProblem(t, db, "p1", domain.FieldSWE, domain.CategoryTrees, 1200)
	seedProblem(t, db, "p2", domain.FieldSWE, domain.CategoryTrees, 1250)
	store := NewInterviewStore(db)

	iv := domain.NewInterview("u1", "p1", domain.FieldSWE)
	_ = iv.Append(domain.TranscriptEntry{Speaker: domain.SpeakerAI, Text: "Welcome"})
	if err := store.Create(ctx, iv); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.AppendTranscript(ctx, iv.ID,
		domain.TranscriptEntry{Speaker: domain.SpeakerUser, Text: "Hi", Kind: domain.KindMessage, Time: time.Now().UTC()},
		domain.TranscriptEntry{Speaker: domain.SpeakerAI, Text: "Go on", Kind: domain.KindMessage, Time: time.Now().UTC()},
	); err != nil {
		t.Fatalf("AppendTranscript() error = %v", err)
	}
	if err := store.SetProblem(ctx, iv.ID, "p2"); err != nil {
		t.Fatalf("SetProblem() error = %v", err)
	}

	loaded, err := store.FindByID(ctx, iv.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if len(loaded.Transcript) != 3 || loaded.Transcript[2].Text != "Go on" {
		t.Errorf("Transcript = %+v", loaded.Transcript)
	}
	if loaded.ProblemID != "p2" {
		t.Errorf("ProblemID = %q; want p2", loaded.ProblemID)
	}

	completion := domain.Completion{
		Scores:           domain.Scores{ProblemSolving: 80, CodeCorrectness: 70, Communication: 60, TimeEfficiency: 50, EdgeCases: 40},
		PerformanceScore: 60,
		Strengths:        []string{"clear"},
		Report:           domain.Report{Passed: true, Timeline: []domain.TimelineEvent{{At: "0:00", Event: "Started", Kind: "start"}}},
		RatingDelta:      9,
		DurationSec:      1500,
		CompletedAt:      time.Now().UTC(),
	}
	if err := store.Complete(ctx, iv.ID, completion); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if err := store.Complete(ctx, iv.ID, completion); !errors.Is(err, domain.ErrAlreadyFinalized) {
		t.Errorf("second Complete() error = %v; want ErrAlreadyFinalized", err)
	}
	if err := store.AppendTranscript(ctx, iv.ID, domain.TranscriptEntry{Speaker: domain.SpeakerUser, Text: "late"}); !errors.Is(err, domain.ErrInterviewCompleted) {
		t.Errorf("AppendTranscript() after completion error = %v; want ErrInterviewCompleted", err)
	}
	if err := store.Complete(ctx, "missing", completion); !errors.Is(err, domain.ErrInterviewNotFound) {
		t.Errorf("Complete(missing) error = %v; want ErrInterviewNotFound", err)
	}

	done, _ := store.FindByID(ctx, iv.ID)
	if done.Status != domain.StatusCompleted || done.CompletedAt == nil {
		t.Errorf("Status = %q, CompletedAt = %v", done.Status, done.CompletedAt)
	}
	if done.Scores == nil || done.Scores.ProblemSolving != 80 || done.RatingDelta != 9 {
		t.Errorf("completion not stored: %+v", done)
	}
	if done.Report == nil || !done.Report.Passed || len(done.Report.Timeline) != 1 {
		t.Errorf("Report = %+v", done.Report)
	}

	list, err := store.ListByUser(ctx, "u1", 20)
	if err != nil || len(list) != 1 {
		t.Errorf("ListByUser() = %d, %v; want 1", len(list), err)
	}
}

func TestUnitOfWork_AtomicRollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1", 1200)
	uow := NewUnitOfWork(db)

	boom := errors.New("boom")
	err := uow.Atomic(ctx, func(tx domain.UnitOfWork) error {
		u, err := tx.Users().FindForUpdate(ctx, "u1")
		if err != nil {
			return err
		}
		u.CurrentRating = 1500
		if err := tx.Users().Save(ctx, u); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Atomic() error = %v; want boom", err)
	}

	u, _ := uow.Users().FindByID(ctx, "u1")
	if u.CurrentRating != 1200 {
		t.Errorf("CurrentRating = %d; want 1200 after rollback", u.CurrentRating)
	}
}

func TestUnitOfWork_ConcurrentAtomic(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "u1", 1200)
	uow := NewUnitOfWork(db)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := uow.Atomic(ctx, func(tx domain.UnitOfWork) error {
				u, err := tx.Users().FindForUpdate(ctx, "u1")
				if err != nil {
					return err
				}
				u.CurrentRating += 10
				return tx.Users().Save(ctx, u)
			})
			if err != nil {
				t.Errorf("Atomic() error = %v", err)
			}
		}()
	}
	wg.Wait()

	u, _ := uow.Users().FindByID(ctx, "u1")
	if u.CurrentRating != 1300 {
		t.Errorf("CurrentRating = %d; want 1300", u.CurrentRating)
	}
}

func TestEventStore(t *testing.T) {
	db := openTestDB(t)
	store := NewEventStore(db)
	ctx := context.Background()

	e := domain.NewRatingEvent(domain.EventAttemptScored, "u1")
	e.OldRating, e.NewRating, e.RatingDelta = 1200, 1216, 16
	if err := store.Record(ctx, e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := store.Record(ctx, e); err != nil {
		t.Fatalf("Record() duplicate error = %v", err)
	}
	store.Publish(ctx, domain.NewRatingEvent(domain.EventInterviewFinalized, "u1"))

	events, err := store.ListByUser(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len = %d; want 2", len(events))
	}

	n, _ := store.Count(ctx, domain.EventAttemptScored)
	if n != 1 {
		t.Errorf("Count() = %d; want 1", n)
	}

	pruned, err := store.Prune(ctx, -time.Minute)
	if err != nil || pruned != 2 {
		t.Errorf("Prune() = %d, %v; want 2", pruned, err)
	}
}
