package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"FeedbackScanner/internal/api"
	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/dedup"
	"FeedbackScanner/internal/infrastructure/cache"
	"FeedbackScanner/internal/infrastructure/llm"
	"FeedbackScanner/internal/infrastructure/ml"
	"FeedbackScanner/internal/infrastructure/parser"
	"FeedbackScanner/internal/infrastructure/reddit"
	"FeedbackScanner/internal/infrastructure/scheduler"
	"FeedbackScanner/internal/infrastructure/slack"
	"FeedbackScanner/internal/infrastructure/storage"
	"FeedbackScanner/internal/infrastructure/telegram"
	"FeedbackScanner/internal/infrastructure/tracker"
	"FeedbackScanner/internal/infrastructure/twitter"
	"FeedbackScanner/internal/logging"
	"FeedbackScanner/internal/ports"
	"FeedbackScanner/internal/scanner"
	"FeedbackScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	registry  *scanner.Registry
	pipeline  *usecase.Pipeline
	reviews   *usecase.ReviewService
	scheduler *usecase.Scheduler
	handler   http.Handler
	closers   []func() error
}

// New builds the application from configuration. Optional integrations are
// enabled only when their credentials or addresses are present.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger, registry: scanner.NewRegistry()}

	if cfg.Reddit.Enabled {
		a.registry.Register(reddit.NewClient(cfg.Reddit, baseLogger.With("component", "scanner.reddit")))
	}
	if cfg.Twitter.BearerToken != "" {
		a.registry.Register(twitter.NewClient(cfg.Twitter, baseLogger.With("component", "scanner.twitter")))
	}
	if len(cfg.Support.Forums) > 0 {
		client := &http.Client{Timeout: 15 * time.Second}
		a.registry.Register(parser.NewForumScanner(client, cfg.Support.Forums, baseLogger.With("component", "scanner.support")))
	}

	var hook *slack.Webhook
	if cfg.Slack.Enabled {
		seen, err := a.eventSet(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		inbox := slack.NewInbox(cfg.Slack.InboxSize, cfg.Slack.Channels)
		a.registry.Register(inbox)
		hook = slack.NewWebhook(inbox, seen, cfg.Slack.SigningSecret, baseLogger.With("component", "slack.webhook"))
	}

	var (
		items   ports.FeedbackRepository
		tickets ports.TicketRepository
	)
	if cfg.Database.DSN != "" {
		db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		repo := storage.NewSQLRepository(db, cfg.Database.Driver)
		items, tickets = repo, repo
	}

	classifier, drafter := newCollaborators(cfg)

	var issueTracker ports.TicketTracker
	if cfg.GitHub.Token != "" {
		gh, err := tracker.NewGitHubTracker(ctx, cfg.GitHub)
		if err != nil {
			a.Close()
			return nil, err
		}
		issueTracker = gh
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Registry:   a.registry,
		Deduper:    dedup.New(cfg.Pipeline.DedupThreshold),
		Classifier: classifier,
		Drafter:    drafter,
		Items:      items,
		Tickets:    tickets,
		Logger:     baseLogger.With("component", "pipeline"),
		Options: usecase.Options{
			MaxItems:      cfg.Pipeline.MaxItems,
			MaxQueries:    cfg.Pipeline.MaxQueries,
			MaxSubreddits: cfg.Pipeline.MaxSubreddits,
			DefaultLimit:  cfg.Pipeline.DefaultLimit,
			EventBuffer:   cfg.Pipeline.EventBuffer,
			RunTimeout:    cfg.Pipeline.RunTimeout,
			KnownLookback: cfg.Pipeline.KnownLookback,
			KnownLimit:    cfg.Pipeline.KnownLimit,
		},
	})
	a.reviews = usecase.NewReviewService(tickets, issueTracker, baseLogger.With("component", "review"))
	a.handler = api.NewRouter(api.NewHandler(a.pipeline, a.reviews, hook, baseLogger.With("component", "api")))

	if cfg.Scheduler.Enabled {
		req, err := LoadRequest(cfg.Scheduler.RequestFile)
		if err != nil {
			a.Close()
			return nil, err
		}
		var notifier ports.Notifier
		if cfg.Notifications.Telegram.BotToken != "" {
			notifier = telegram.NewNotifier(cfg.Notifications.Telegram)
		}
		driver := scheduler.NewIntervalScheduler(cfg.Scheduler.Interval, cfg.Scheduler.Location())
		a.scheduler = usecase.NewScheduler(driver, a.pipeline, notifier, req, baseLogger.With("component", "scheduler"))
	}

	baseLogger.Info("application configured", "sources", a.registry.Sources(), "persistent", items != nil, "scheduler", a.scheduler != nil)
	return a, nil
}

func newCollaborators(cfg config.Config) (ports.Classifier, ports.Drafter) {
	switch cfg.LLM.Backend {
	case "ml":
		if cfg.ML.InferenceURL == "" {
			return nil, nil
		}
		client := ml.NewClient(cfg.ML, cfg.LLM.Timeout)
		return client, client
	default:
		if cfg.LLM.APIKey == "" {
			return nil, nil
		}
		client := llm.NewChatGPTClient(cfg.LLM)
		return client, client
	}
}

func (a *Application) eventSet(ctx context.Context) (ports.EventSet, error) {
	if a.cfg.Redis.Addr != "" {
		client, err := cache.Connect(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return cache.NewRedisEventSet(client, a.cfg.Redis.EventTTL), nil
	}
	return cache.NewLRUEventSet(a.cfg.Pipeline.EventCacheSize)
}

// Handler exposes the HTTP API.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Sources lists the registered source adapters.
func (a *Application) Sources() []string {
	out := make([]string, 0)
	for _, s := range a.registry.Sources() {
		out = append(out, string(s))
	}
	return out
}

// RunOnce performs a single batch run.
func (a *Application) RunOnce(ctx context.Context, req usecase.Request) (usecase.BatchResult, error) {
	return a.pipeline.Run(ctx, req)
}

// Serve runs the HTTP API and the scheduler until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := a.cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if a.scheduler != nil {
		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			a.logger.Warn("scheduler stop", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	a.logger.Info("http server stopped")
	return nil
}

// Close releases database and cache connections.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close resource", "error", err)
		}
	}
	a.closers = nil
}

// LoadRequest reads a JSON run request from path.
func LoadRequest(path string) (usecase.Request, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return usecase.Request{}, fmt.Errorf("read request file: %w", err)
	}
	var req usecase.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return usecase.Request{}, fmt.Errorf("decode request file %s: %w", path, err)
	}
	return req, nil
}
