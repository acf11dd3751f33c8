package catalog

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

//go:embed problems/*.yaml
var bankFS embed.FS

// Default loads the problem bank compiled into the binary.
func Default() ([]*domain.Problem, error) {
	sub, err := fs.Sub(bankFS, "problems")
	if err != nil {
		return nil, err
	}
	return NewLoader(sub).LoadAll()
}

// SeedResult counts what a seed run wrote.
type SeedResult struct {
	Total   int                  `json:"total"`
	ByField map[domain.Field]int `json:"by_field"`
}

// Seed upserts problems into repo. Reseeding replaces stored problems with
// the same IDs.
func Seed(ctx context.Context, repo domain.ProblemRepository, problems []*domain.Problem) (*SeedResult, error) {
	res := &SeedResult{ByField: make(map[domain.Field]int)}
	for _, p := range problems {
		if err := repo.Save(ctx, p); err != nil {
			return nil, fmt.Errorf("seed %s: %w", p.ID, err)
		}
		res.Total++
		res.ByField[p.Field]++
	}
	slog.Info("problem bank seeded", "total", res.Total, "by_field", res.ByField)
	return res, nil
}

// SeedIfEmpty seeds problems only when repo holds none. It reports whether
// anything was written.
func SeedIfEmpty(ctx context.Context, repo domain.ProblemRepository, problems []*domain.Problem) (bool, error) {
	n, err := repo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count problems: %w", err)
	}
	if n > 0 {
		slog.Debug("problem bank already seeded", "count", n)
		return false, nil
	}
	if _, err := Seed(ctx, repo, problems); err != nil {
		return false, err
	}
	return true, nil
}

// Source returns the problems at dir, or the built-in bank when dir is empty.
func Source(dir string) ([]*domain.Problem, error) {
	if dir == "" {
		return Default()
	}
	return NewDirLoader(dir).LoadAll()
}
