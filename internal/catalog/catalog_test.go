package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/storage/sqlite"
)

func TestDefault(t *testing.T) {
	problems, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	counts := make(map[domain.Field]int)
	for _, p := range problems {
		counts[p.Field]++
		if !p.Field.HasCategory(p.Category) {
			t.Errorf("%s: category %q not in %s", p.ID, p.Category, p.Field)
		}
		if len(p.Hints) == 0 || p.SolutionApproach == "" {
			t.Errorf("%s: missing hints or solution approach", p.ID)
		}
	}
	for _, f := range domain.Fields() {
		if counts[f] < DiagnosticMinimum {
			t.Errorf("%s has %d problems, want at least %d", f, counts[f], DiagnosticMinimum)
		}
	}
}

// DiagnosticMinimum is how many problems each field needs for a full diagnostic.
const DiagnosticMinimum = 5

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Two Sum":                       "two-sum",
		"M&A Accretion/Dilution":        "m-a-accretion-dilution",
		"Mental Math: Multiply 37 × 43": "mental-math-multiply-37-43",
		"  Why Investment Banking?  ":   "why-investment-banking",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoader_LoadAll(t *testing.T) {
	fsys := fstest.MapFS{
		"b/qf.yaml": {Data: []byte(`
field: qf
problems:
  - title: Dice
    category: Probability
    difficulty: 1150
    statement: Roll a die.
    companies: [Jane Street, Optiver]
`)},
		"a/swe.yml": {Data: []byte(`
field: SWE
problems:
  - id: custom-id
    title: Two Sum
    category: Arrays
    difficulty: 1100
    statement: Find two numbers.
    hints: [use a map]
`)},
		"README.md": {Data: []byte("ignored")},
	}

	problems, err := NewLoader(fsys).LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(problems) != 2 {
		t.Fatalf("len = %d, want 2", len(problems))
	}
	if problems[0].ID != "custom-id" || problems[0].Field != domain.FieldSWE {
		t.Errorf("first problem = %+v, want the a/ file first", problems[0])
	}
	if problems[1].ID != "dice" || problems[1].Company != "Jane Street" || problems[1].Field != domain.FieldQF {
		t.Errorf("second problem = %+v", problems[1])
	}
}

func TestLoader_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "field: law\nproblems: []\n"},
		{"category outside field", "field: SWE\nproblems:\n  - title: X\n    category: Probability\n    difficulty: 1200\n    statement: s\n"},
		{"difficulty too low", "field: SWE\nproblems:\n  - title: X\n    category: Arrays\n    difficulty: 100\n    statement: s\n"},
		{"missing title", "field: SWE\nproblems:\n  - category: Arrays\n    difficulty: 1200\n    statement: s\n"},
		{"missing statement", "field: SWE\nproblems:\n  - title: X\n    category: Arrays\n    difficulty: 1200\n"},
		{"bad yaml", "field: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{"bank.yaml": {Data: []byte(tt.yaml)}}
			if _, err := NewLoader(fsys).LoadAll(); err == nil {
				t.Error("LoadAll() should fail")
			}
		})
	}
}

func TestLoader_DuplicateID(t *testing.T) {
	entry := "field: SWE\nproblems:\n  - title: Two Sum\n    category: Arrays\n    difficulty: 1100\n    statement: s\n"
	fsys := fstest.MapFS{
		"one.yaml": {Data: []byte(entry)},
		"two.yaml": {Data: []byte(entry)},
	}
	_, err := NewLoader(fsys).LoadAll()
	if !errors.Is(err, ErrInvalidProblem) {
		t.Errorf("error = %v, want ErrInvalidProblem", err)
	}
}

func openTestDB(t *testing.T) *sqlite.UnitOfWork {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlite.NewUnitOfWork(db)
}

func TestSeed(t *testing.T) {
	uow := openTestDB(t)
	ctx := context.Background()
	problems, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	seeded, err := SeedIfEmpty(ctx, uow.Problems(), problems)
	if err != nil || !seeded {
		t.Fatalf("SeedIfEmpty() = %v, %v; want seeded", seeded, err)
	}
	n, _ := uow.Problems().Count(ctx)
	if n != len(problems) {
		t.Errorf("Count() = %d, want %d", n, len(problems))
	}

	seeded, err = SeedIfEmpty(ctx, uow.Problems(), problems)
	if err != nil || seeded {
		t.Errorf("second SeedIfEmpty() = %v, %v; want skipped", seeded, err)
	}

	res, err := Seed(ctx, uow.Problems(), problems)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if res.Total != len(problems) || res.ByField[domain.FieldIB] == 0 {
		t.Errorf("Seed() = %+v", res)
	}
	if n, _ := uow.Problems().Count(ctx); n != len(problems) {
		t.Errorf("reseed Count() = %d, want %d", n, len(problems))
	}

	p, err := uow.Problems().FindByID(ctx, "two-sum")
	if err != nil || p.Title != "Two Sum" {
		t.Errorf("FindByID(two-sum) = %+v, %v", p, err)
	}
}
