package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

type countingCatalog struct {
	problems map[string]*domain.Problem
	finds    atomic.Int32
	queries  atomic.Int32
	delay    time.Duration
}

func (c *countingCatalog) FindByID(_ context.Context, id string) (*domain.Problem, error) {
	c.finds.Add(1)
	time.Sleep(c.delay)
	p, ok := c.problems[id]
	if !ok {
		return nil, domain.ErrProblemNotFound
	}
	return p, nil
}

func (c *countingCatalog) Query(_ context.Context, q domain.ProblemQuery) ([]*domain.Problem, error) {
	c.queries.Add(1)
	out := make([]*domain.Problem, 0)
	for _, p := range c.problems {
		if q.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func setup(t *testing.T) (*miniredis.Miniredis, *countingCatalog, *ProblemCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	inner := &countingCatalog{problems: map[string]*domain.Problem{
		"two-sum": {ID: "two-sum", Title: "Two Sum", Field: domain.FieldSWE, Category: domain.CategoryArrays, DifficultyRating: 1100, Hints: []string{"map"}},
		"dice":    {ID: "dice", Title: "Dice", Field: domain.FieldQF, Category: domain.CategoryProbability, DifficultyRating: 1150},
	}}
	return mr, inner, NewProblemCache(client, inner, time.Minute)
}

func TestProblemCache_FindByIDCaches(t *testing.T) {
	mr, inner, cache := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := cache.FindByID(ctx, "two-sum")
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if p.Title != "Two Sum" || len(p.Hints) != 1 {
			t.Errorf("FindByID() = %+v", p)
		}
	}
	if got := inner.finds.Load(); got != 1 {
		t.Errorf("inner finds = %d, want 1", got)
	}

	ttl := mr.TTL(keyPrefix + "id:two-sum")
	if ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Errorf("ttl = %v, want between 1m and 1m6s", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := cache.FindByID(ctx, "two-sum"); err != nil {
		t.Fatal(err)
	}
	if got := inner.finds.Load(); got != 2 {
		t.Errorf("inner finds after expiry = %d, want 2", got)
	}
}

func TestProblemCache_NotFoundIsNotCached(t *testing.T) {
	_, inner, cache := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := cache.FindByID(ctx, "missing"); !errors.Is(err, domain.ErrProblemNotFound) {
			t.Fatalf("FindByID(missing) error = %v", err)
		}
	}
	if got := inner.finds.Load(); got != 2 {
		t.Errorf("inner finds = %d, want 2", got)
	}
}

func TestProblemCache_QueryKeyedByFilter(t *testing.T) {
	_, inner, cache := setup(t)
	ctx := context.Background()

	swe := domain.ProblemQuery{Field: domain.FieldSWE, Limit: 5}
	qf := domain.ProblemQuery{Field: domain.FieldQF, Limit: 5}

	for i := 0; i < 2; i++ {
		got, err := cache.Query(ctx, swe)
		if err != nil || len(got) != 1 || got[0].ID != "two-sum" {
			t.Fatalf("Query(swe) = %v, %v", got, err)
		}
		got, err = cache.Query(ctx, qf)
		if err != nil || len(got) != 1 || got[0].ID != "dice" {
			t.Fatalf("Query(qf) = %v, %v", got, err)
		}
	}
	if n := inner.queries.Load(); n != 2 {
		t.Errorf("inner queries = %d, want 2", n)
	}
}

func TestProblemCache_SingleflightCollapsesMisses(t *testing.T) {
	_, inner, cache := setup(t)
	inner.delay = 50 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.FindByID(context.Background(), "dice"); err != nil {
				t.Errorf("FindByID() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := inner.finds.Load(); got != 1 {
		t.Errorf("inner finds = %d, want 1", got)
	}
}

func TestProblemCache_Invalidate(t *testing.T) {
	mr, inner, cache := setup(t)
	ctx := context.Background()

	cache.FindByID(ctx, "two-sum")
	cache.Query(ctx, domain.ProblemQuery{Field: domain.FieldSWE})
	mr.Set("unrelated", "keep")

	removed, err := cache.Invalidate(ctx)
	if err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if !mr.Exists("unrelated") {
		t.Error("Invalidate removed a key outside the cache prefix")
	}

	cache.FindByID(ctx, "two-sum")
	if got := inner.finds.Load(); got != 2 {
		t.Errorf("inner finds = %d, want 2 after invalidation", got)
	}
}

func TestProblemCache_RedisDownFallsThrough(t *testing.T) {
	mr, inner, cache := setup(t)
	mr.Close()

	p, err := cache.FindByID(context.Background(), "two-sum")
	if err != nil {
		t.Fatalf("FindByID() error = %v, want fallthrough", err)
	}
	if p.ID != "two-sum" || inner.finds.Load() != 1 {
		t.Errorf("FindByID() = %+v", p)
	}
	if err := cache.Ping(context.Background()); err == nil {
		t.Error("Ping() should fail when redis is down")
	}
}

func TestProblemCache_CorruptEntryReloads(t *testing.T) {
	mr, inner, cache := setup(t)
	mr.Set(keyPrefix+"id:dice", "{not json")

	p, err := cache.FindByID(context.Background(), "dice")
	if err != nil || p.ID != "dice" {
		t.Fatalf("FindByID() = %+v, %v", p, err)
	}
	if inner.finds.Load() != 1 {
		t.Error("corrupt entry should trigger a reload")
	}
}

// gatedCatalog blocks Query until release is closed.
type gatedCatalog struct {
	countingCatalog
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (c *gatedCatalog) Query(ctx context.Context, q domain.ProblemQuery) ([]*domain.Problem, error) {
	c.once.Do(func() { close(c.entered) })
	<-c.release
	return c.countingCatalog.Query(ctx, q)
}

func TestProblemCache_ConcurrentQueriesGetOwnSlices(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	inner := &gatedCatalog{
		countingCatalog: countingCatalog{problems: map[string]*domain.Problem{
			"two-sum": {ID: "two-sum", Field: domain.FieldSWE, Category: domain.CategoryArrays, DifficultyRating: 1100},
			"anagram": {ID: "anagram", Field: domain.FieldSWE, Category: domain.CategoryStrings, DifficultyRating: 1150},
		}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	cache := NewProblemCache(client, inner, time.Minute)
	q := domain.ProblemQuery{Field: domain.FieldSWE}

	results := make([][]*domain.Problem, 2)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = cache.Query(context.Background(), q)
	}()
	<-inner.entered

	// The second caller joins the in-flight load.
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = cache.Query(context.Background(), q)
	}()
	time.Sleep(20 * time.Millisecond)
	close(inner.release)
	wg.Wait()

	if len(results[0]) != 2 || len(results[1]) != 2 {
		t.Fatalf("results = %d and %d problems, want 2 each", len(results[0]), len(results[1]))
	}
	results[0][0] = nil
	if results[1][0] == nil {
		t.Error("concurrent callers share one backing array")
	}
}
