package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/rehearse/internal/cache"
	"github.com/felixgeelhaar/rehearse/internal/catalog"
	"github.com/felixgeelhaar/rehearse/internal/config"
	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/interview"
	"github.com/felixgeelhaar/rehearse/internal/llm"
	"github.com/felixgeelhaar/rehearse/internal/practice"
	"github.com/felixgeelhaar/rehearse/internal/queue"
	"github.com/felixgeelhaar/rehearse/internal/recommend"
	"github.com/felixgeelhaar/rehearse/internal/storage/postgres"
	"github.com/felixgeelhaar/rehearse/internal/storage/sqlite"
)

// EventLog is the rating event store the API reads from and the local
// publisher writes to.
type EventLog interface {
	domain.RatingEventStore
	domain.EventPublisher
}

// Check is a named readiness probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// App holds all application dependencies
type App struct {
	Config     *config.Config
	UoW        domain.UnitOfWork
	Practice   *practice.Service
	Interviews *interview.Service
	Events     EventLog
	Cache      *cache.ProblemCache
	Producer   *queue.Producer
	LLM        *llm.Registry

	checks  []Check
	closers []func() error
}

// AppConfig holds configuration for application initialization
type AppConfig struct {
	Config *config.Config
	// SkipSeed leaves an empty catalog empty.
	SkipSeed bool
}

// NewApp opens storage, the optional cache and queue, and wires the
// practice and interview services.
func NewApp(ctx context.Context, cfg AppConfig) (_ *App, err error) {
	app := &App{Config: cfg.Config}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	if err := app.openStorage(ctx); err != nil {
		return nil, err
	}

	if !cfg.SkipSeed {
		problems, err := catalog.Source(cfg.Config.ProblemsPath)
		if err != nil {
			return nil, fmt.Errorf("load problem bank: %w", err)
		}
		if _, err := catalog.SeedIfEmpty(ctx, app.UoW.Problems(), problems); err != nil {
			return nil, err
		}
	}

	var problems domain.ProblemCatalog = app.UoW.Problems()
	if cfg.Config.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Config.RedisAddr,
			Password: cfg.Config.RedisPassword,
			DB:       cfg.Config.RedisDB,
		})
		app.closers = append(app.closers, client.Close)
		app.Cache = cache.NewProblemCache(client, problems, cfg.Config.CatalogCacheTTL)
		app.AddCheck("redis", app.Cache.Ping)
		problems = app.Cache
		slog.Info("problem catalog cache enabled", "addr", cfg.Config.RedisAddr)
	}

	var publisher domain.EventPublisher = app.Events
	if cfg.Config.RabbitMQURL != "" {
		conn, err := queue.NewConnection(cfg.Config.RabbitMQURL)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		app.closers = append(app.closers, conn.Close)
		app.Producer = queue.NewProducer(conn)
		app.AddCheck("rabbitmq", func(context.Context) error {
			if !conn.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		})
		publisher = app.Producer
		slog.Info("rating events routed through rabbitmq")
	}

	app.LLM = llm.NewRegistry()
	if err := initLLMProviders(app.LLM, cfg.Config); err != nil {
		return nil, fmt.Errorf("init LLM providers: %w", err)
	}
	app.closers = append(app.closers, app.LLM.Close)

	var source llm.ProviderSource
	if len(app.LLM.List()) > 0 {
		source = app.LLM
	}
	app.wire(problems, publisher, source)
	return app, nil
}

// wire builds the services. A nil source leaves the LLM collaborators
// unset so the services use their fallbacks.
func (a *App) wire(problems domain.ProblemCatalog, publisher domain.EventPublisher, source llm.ProviderSource) {
	selector := recommend.NewSelector(a.UoW, recommend.WithCatalog(problems))

	practiceOpts := []practice.Option{
		practice.WithCatalog(problems),
		practice.WithPublisher(publisher),
	}
	interviewOpts := []interview.Option{
		interview.WithCatalog(problems),
		interview.WithPublisher(publisher),
	}
	if source != nil {
		judge := llm.NewJudge(source)
		practiceOpts = append(practiceOpts, practice.WithEvaluator(judge))
		interviewOpts = append(interviewOpts,
			interview.WithEvaluator(judge),
			interview.WithDialogue(llm.NewInterviewer(source)),
			interview.WithFeedback(llm.NewAssessor(source)),
		)
	}

	a.Practice = practice.NewService(a.UoW, selector, practiceOpts...)
	a.Interviews = interview.NewService(a.UoW, selector, a.Practice, interviewOpts...)
}

func (a *App) openStorage(ctx context.Context) error {
	switch a.Config.StorageDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, postgres.Config{DSN: a.Config.DatabaseURL})
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		events, err := postgres.OpenEventLog(a.Config.DatabaseURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, events.Close)
		a.UoW = postgres.NewUnitOfWork(db)
		a.Events = events
		a.AddCheck("database", db.Ping)
		slog.Info("storage opened", "driver", "postgres")

	default:
		db, err := sqlite.Open(a.Config.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
		a.UoW = sqlite.NewUnitOfWork(db)
		a.Events = sqlite.NewEventStore(db)
		a.AddCheck("database", db.PingContext)
		slog.Info("storage opened", "driver", "sqlite", "path", a.Config.SQLitePath)
	}
	return nil
}

// initLLMProviders registers the configured provider behind the fortify
// resilience wrapper. Without an API key nothing is registered and the
// services fall back to their canned behavior.
func initLLMProviders(registry *llm.Registry, cfg *config.Config) error {
	if cfg.LLMAPIKey == "" {
		slog.Warn("LLM_API_KEY not set, interviewer and judge use fallbacks")
		return nil
	}

	var provider llm.Provider
	switch cfg.LLMProvider {
	case "openai":
		provider = llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
		})
	case "qwen", "":
		provider = llm.NewQwenProvider(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	default:
		return fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}

	name := provider.Name()
	registry.Register(name, llm.NewResilientProvider(provider, llm.DefaultResilientConfig()))
	return registry.SetDefault(name)
}

// AddCheck registers a readiness probe.
func (a *App) AddCheck(name string, probe func(ctx context.Context) error) {
	a.checks = append(a.checks, Check{Name: name, Probe: probe})
}

// Checks returns the registered readiness probes.
func (a *App) Checks() []Check {
	return a.checks
}

// Close cleans up application resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
