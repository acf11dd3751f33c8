package recommend

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/storage/sqlite"
)

type fixture struct {
	uow *sqlite.UnitOfWork
	sel *Selector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	uow := sqlite.NewUnitOfWork(db)
	return &fixture{
		uow: uow,
		sel: NewSelector(uow, WithRand(rand.New(rand.NewSource(1)))),
	}
}

func (f *fixture) user(t *testing.T, id string, field domain.Field, r int, weak ...domain.Category) {
	t.Helper()
	u := domain.NewUser(id, field, r)
	u.WeakCategories = weak
	if err := f.uow.Users().Save(context.Background(), u); err != nil {
		t.Fatalf("save user: %v", err)
	}
}

func (f *fixture) problem(t *testing.T, id string, field domain.Field, c domain.Category, r int) {
	t.Helper()
	p := &domain.Problem{ID: id, Title: id, Statement: id, Field: field, Category: c, DifficultyRating: r, CreatedAt: time.Now().UTC()}
	if err := f.uow.Problems().Save(context.Background(), p); err != nil {
		t.Fatalf("save problem: %v", err)
	}
}

func TestSelectNextProblem_Window(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "u1", domain.FieldSWE, 1200)
	f.problem(t, "near-1", domain.FieldSWE, domain.CategoryArrays, 1100)
	f.problem(t, "near-2", domain.FieldSWE, domain.CategoryGraphs, 1400)
	f.problem(t, "far", domain.FieldSWE, domain.CategoryTrees, 1700)
	f.problem(t, "other-field", domain.FieldQF, domain.CategoryOptions, 1200)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		p, err := f.sel.SelectNextProblem(ctx, "u1", domain.FieldSWE, "")
		if err != nil {
			t.Fatalf("SelectNextProblem() error = %v", err)
		}
		seen[p.ID] = true
	}
	if seen["far"] || seen["other-field"] {
		t.Errorf("selected outside the window: %v", seen)
	}
	if !seen["near-1"] || !seen["near-2"] {
		t.Errorf("expected both window problems to be chosen over 50 draws, got %v", seen)
	}

	for i := 0; i < 20; i++ {
		p, _ := f.sel.SelectNextProblem(ctx, "u1", domain.FieldSWE, "near-1")
		if p.ID != "near-2" {
			t.Fatalf("exclude ignored: got %q", p.ID)
		}
	}
}

func TestSelectNextProblem_Fallbacks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "u1", domain.FieldSWE, 1200)

	if _, err := f.sel.SelectNextProblem(ctx, "u1", domain.FieldSWE, ""); !errors.Is(err, domain.ErrNoProblemsAvailable) {
		t.Fatalf("empty catalog error = %v, want ErrNoProblemsAvailable", err)
	}

	f.problem(t, "qf-only", domain.FieldQF, domain.CategoryProbability, 2000)
	p, err := f.sel.SelectNextProblem(ctx, "u1", domain.FieldSWE, "")
	if err != nil || p.ID != "qf-only" {
		t.Fatalf("global fallback = %v, %v; want qf-only", p, err)
	}

	f.problem(t, "swe-hard", domain.FieldSWE, domain.CategoryGraphs, 2100)
	p, err = f.sel.SelectNextProblem(ctx, "u1", domain.FieldSWE, "")
	if err != nil || p.ID != "swe-hard" {
		t.Fatalf("field fallback = %v, %v; want swe-hard", p, err)
	}

	if _, err := f.sel.SelectNextProblem(ctx, "ghost", "", ""); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("unknown user error = %v, want ErrUserNotFound", err)
	}
}

func TestSelectNextProblem_DefaultsToUserField(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", domain.FieldIB, 1200)
	f.problem(t, "ib", domain.FieldIB, domain.CategoryDCF, 1200)
	f.problem(t, "swe", domain.FieldSWE, domain.CategoryArrays, 1200)

	for i := 0; i < 10; i++ {
		p, err := f.sel.SelectNextProblem(context.Background(), "u1", "", "")
		if err != nil || p.ID != "ib" {
			t.Fatalf("got %v, %v; want ib", p, err)
		}
	}
}

func TestSelectNextForInterview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "u1", domain.FieldSWE, 1200)
	f.problem(t, "p1", domain.FieldSWE, domain.CategoryArrays, 1200)
	f.problem(t, "p2", domain.FieldSWE, domain.CategoryArrays, 1250)

	iv := domain.NewInterview("u1", "p1", domain.FieldSWE)
	if err := f.uow.Interviews().Create(ctx, iv); err != nil {
		t.Fatal(err)
	}

	p, err := f.sel.SelectNextForInterview(ctx, iv.ID, "", "")
	if err != nil {
		t.Fatalf("SelectNextForInterview() error = %v", err)
	}
	if p.ID != "p2" {
		t.Errorf("problem = %q, want p2 (current problem excluded)", p.ID)
	}
	stored, _ := f.uow.Interviews().FindByID(ctx, iv.ID)
	if stored.ProblemID != "p2" {
		t.Errorf("stored ProblemID = %q, want p2", stored.ProblemID)
	}

	if _, err := f.sel.SelectNextForInterview(ctx, "missing", "", ""); !errors.Is(err, domain.ErrInterviewNotFound) {
		t.Errorf("missing interview error = %v", err)
	}

	_ = f.uow.Interviews().Complete(ctx, iv.ID, domain.Completion{CompletedAt: time.Now().UTC()})
	if _, err := f.sel.SelectNextForInterview(ctx, iv.ID, "", ""); !errors.Is(err, domain.ErrInterviewCompleted) {
		t.Errorf("completed interview error = %v, want ErrInterviewCompleted", err)
	}
}

func TestSelectRecommendedProblems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "u1", domain.FieldSWE, 1200, domain.CategoryGraphs)
	f.problem(t, "arrays-close", domain.FieldSWE, domain.CategoryArrays, 1210)
	f.problem(t, "arrays-far", domain.FieldSWE, domain.CategoryArrays, 1600)
	f.problem(t, "graphs-far", domain.FieldSWE, domain.CategoryGraphs, 1700)
	f.problem(t, "graphs-close", domain.FieldSWE, domain.CategoryGraphs, 1150)
	f.problem(t, "qf", domain.FieldQF, domain.CategoryOptions, 1200)

	got, err := f.sel.SelectRecommendedProblems(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("SelectRecommendedProblems() error = %v", err)
	}
	want := []string{"graphs-close", "graphs-far", "arrays-close", "arrays-far"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, p := range got {
		if p.ID != want[i] {
			t.Errorf("[%d] = %q, want %q", i, p.ID, want[i])
		}
	}

	limited, _ := f.sel.SelectRecommendedProblems(ctx, "u1", 2)
	if len(limited) != 2 {
		t.Errorf("limit 2 returned %d", len(limited))
	}
}

// sharedCatalog hands every caller the same slice.
type sharedCatalog struct {
	problems []*domain.Problem
}

func (c *sharedCatalog) FindByID(_ context.Context, id string) (*domain.Problem, error) {
	for _, p := range c.problems {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.ErrProblemNotFound
}

func (c *sharedCatalog) Query(context.Context, domain.ProblemQuery) ([]*domain.Problem, error) {
	return c.problems, nil
}

func TestSelectRecommendedProblems_LeavesCatalogOrder(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", domain.FieldSWE, 1200, domain.CategoryGraphs)
	catalog := &sharedCatalog{problems: []*domain.Problem{
		{ID: "arrays", Field: domain.FieldSWE, Category: domain.CategoryArrays, DifficultyRating: 1200},
		{ID: "graphs", Field: domain.FieldSWE, Category: domain.CategoryGraphs, DifficultyRating: 1200},
	}}
	sel := NewSelector(f.uow, WithCatalog(catalog))

	got, err := sel.SelectRecommendedProblems(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("SelectRecommendedProblems() error = %v", err)
	}
	if got[0].ID != "graphs" {
		t.Errorf("first = %q, want the weak category", got[0].ID)
	}
	if catalog.problems[0].ID != "arrays" {
		t.Error("selector reordered the catalog's slice")
	}
}

func TestSelectInterviewProblem_PrefersWeakCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "u1", domain.FieldQF, 1300, domain.CategoryOptions)
	f.problem(t, "prob", domain.FieldQF, domain.CategoryProbability, 1300)
	f.problem(t, "opt", domain.FieldQF, domain.CategoryOptions, 1350)

	for i := 0; i < 20; i++ {
		p, err := f.sel.SelectInterviewProblem(ctx, "u1", "")
		if err != nil || p.ID != "opt" {
			t.Fatalf("got %v, %v; want opt", p, err)
		}
	}

	f.user(t, "u2", domain.FieldQF, 1300)
	p, err := f.sel.SelectInterviewProblem(ctx, "u2", domain.FieldQF)
	if err != nil || p.Field != domain.FieldQF {
		t.Errorf("fallback = %v, %v", p, err)
	}
}
