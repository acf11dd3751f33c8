// Package catalog loads the problem bank from YAML and seeds it into a
// problem repository.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/rating"
)

// ErrInvalidProblem is returned for catalog entries that cannot be seeded.
var ErrInvalidProblem = errors.New("invalid problem")

// BankFile is the YAML structure of one problem bank file. Every problem
// in a file belongs to the file's field.
type BankFile struct {
	Field    string        `yaml:"field"`
	Problems []ProblemFile `yaml:"problems"`
}

// ProblemFile is the YAML structure of one problem.
type ProblemFile struct {
	ID               string   `yaml:"id"`
	Title            string   `yaml:"title"`
	Category         string   `yaml:"category"`
	Difficulty       int      `yaml:"difficulty"`
	Statement        string   `yaml:"statement"`
	Hints            []string `yaml:"hints"`
	SolutionApproach string   `yaml:"solution_approach"`
	Tags             []string `yaml:"tags"`
	Companies        []string `yaml:"companies"`
	RoleLevel        string   `yaml:"role_level"`
	TimeLimitSec     int      `yaml:"time_limit_sec"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives a problem ID from its title.
func Slug(title string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
}

// Loader reads problem bank files from a file system.
type Loader struct {
	fsys fs.FS
	now  func() time.Time
}

// NewLoader creates a loader over fsys.
func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys, now: time.Now}
}

// NewDirLoader creates a loader over a directory on disk.
func NewDirLoader(dir string) *Loader {
	return NewLoader(os.DirFS(dir))
}

// LoadAll parses every .yaml and .yml file at any depth, in path order.
// Problem IDs must be unique across files.
func (l *Loader) LoadAll() ([]*domain.Problem, error) {
	var files []string
	err := fs.WalkDir(l.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ext := path.Ext(p); !d.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read problem bank: %w", err)
	}
	sort.Strings(files)

	seen := make(map[string]string)
	var problems []*domain.Problem
	for _, f := range files {
		loaded, err := l.LoadFile(f)
		if err != nil {
			return nil, err
		}
		for _, p := range loaded {
			if prev, ok := seen[p.ID]; ok {
				return nil, fmt.Errorf("%w: duplicate id %q in %s and %s", ErrInvalidProblem, p.ID, prev, f)
			}
			seen[p.ID] = f
			problems = append(problems, p)
		}
	}
	return problems, nil
}

// LoadFile parses one bank file.
func (l *Loader) LoadFile(name string) ([]*domain.Problem, error) {
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read bank file: %w", err)
	}

	var bank BankFile
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("parse bank file %s: %w", name, err)
	}
	field, err := domain.ParseField(bank.Field)
	if err != nil {
		return nil, fmt.Errorf("bank file %s: %w", name, err)
	}

	created := l.now().UTC()
	problems := make([]*domain.Problem, 0, len(bank.Problems))
	for i, pf := range bank.Problems {
		p, err := pf.toDomain(field, created)
		if err != nil {
			return nil, fmt.Errorf("%s problem %d: %w", name, i, err)
		}
		problems = append(problems, p)
	}
	return problems, nil
}

func (pf ProblemFile) toDomain(field domain.Field, created time.Time) (*domain.Problem, error) {
	if strings.TrimSpace(pf.Title) == "" {
		return nil, fmt.Errorf("%w: title required", ErrInvalidProblem)
	}
	if strings.TrimSpace(pf.Statement) == "" {
		return nil, fmt.Errorf("%w: statement required for %q", ErrInvalidProblem, pf.Title)
	}
	category := domain.Category(pf.Category)
	if !field.HasCategory(category) {
		return nil, fmt.Errorf("%w: category %q is not in %s", ErrInvalidProblem, pf.Category, field)
	}
	if pf.Difficulty < rating.MinRating || pf.Difficulty > rating.MaxRating {
		return nil, fmt.Errorf("%w: difficulty %d outside %d..%d", ErrInvalidProblem, pf.Difficulty, rating.MinRating, rating.MaxRating)
	}

	id := pf.ID
	if id == "" {
		id = Slug(pf.Title)
	}
	var company string
	if len(pf.Companies) > 0 {
		company = pf.Companies[0]
	}

	return &domain.Problem{
		ID:               id,
		Title:            pf.Title,
		Statement:        strings.TrimSpace(pf.Statement),
		Category:         category,
		Field:            field,
		DifficultyRating: pf.Difficulty,
		Company:          company,
		RoleLevel:        pf.RoleLevel,
		Hints:            pf.Hints,
		SolutionApproach: strings.TrimSpace(pf.SolutionApproach),
		Tags:             pf.Tags,
		TimeLimitSec:     pf.TimeLimitSec,
		CreatedAt:        created,
	}, nil
}
