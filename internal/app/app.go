package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"NewsPublisher/internal/config"
	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/infrastructure/instagram"
	"NewsPublisher/internal/infrastructure/llm"
	"NewsPublisher/internal/infrastructure/mail"
	"NewsPublisher/internal/infrastructure/parser"
	"NewsPublisher/internal/infrastructure/report"
	"NewsPublisher/internal/infrastructure/scheduler"
	"NewsPublisher/internal/infrastructure/storage"
	"NewsPublisher/internal/infrastructure/telegram"
	"NewsPublisher/internal/infrastructure/trends"
	"NewsPublisher/internal/interface/rest"
	"NewsPublisher/internal/logging"
	"NewsPublisher/internal/ports"
	"NewsPublisher/internal/source"
	"NewsPublisher/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	store     *storage.Store
	scheduler *usecase.Scheduler
	tasks     usecase.Tasks
	server    *echo.Echo
	journal   *usecase.Journal
	logger    *slog.Logger
}

// New opens the store and builds every task. The caller owns Run.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	store, err := storage.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	journal := usecase.NewJournal(store, baseLogger.With("component", "journal"))
	trendClient := trends.NewClient(cfg.Trends.URL, cfg.Trends.RemixWebhook, cfg.Trends.APIKey)

	registry := source.NewRegistry(
		parser.NewWordPressFetcher(nil),
		parser.NewRSSFetcher(nil),
	)
	contentSource := parser.NewStrategySource(registry, baseLogger)

	graph := instagram.NewGraphClient(instagram.Config{
		BaseURL:         cfg.Instagram.BaseURL,
		DefaultImageURL: cfg.Instagram.DefaultImageURL,
		Timeout:         time.Duration(cfg.Instagram.TimeoutSeconds) * time.Second,
	}, nil, baseLogger)

	var publisher ports.Publisher = graph
	if cfg.Instagram.IsDryRun() {
		publisher = instagram.NewDryRunPublisher(baseLogger)
	}

	var captionWriter ports.CaptionWriter
	if cfg.ChatGPT.Enabled && cfg.ChatGPT.APIKey != "" {
		captionWriter = llm.NewChatGPTClient(llm.Config{
			Endpoint:     cfg.ChatGPT.Endpoint,
			Model:        cfg.ChatGPT.Model,
			APIKey:       cfg.ChatGPT.APIKey,
			SystemPrompt: cfg.ChatGPT.SystemPrompt,
		})
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Registry:   store,
		Source:     contentSource,
		Ledger:     store,
		Metrics:    store,
		Publisher:  publisher,
		Captions:   usecase.NewCaptioner(captionWriter, baseLogger.With("component", "caption")),
		Journal:    journal,
		Pacer:      usecase.NewPacer(cfg.Pipeline.PauseMin(), cfg.Pipeline.PauseMax(), cfg.Pipeline.Cooldown(), nil),
		FetchLimit: cfg.Pipeline.FetchLimit,
		TopK:       cfg.Pipeline.TopK,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	var chat ports.Reporter
	if cfg.Telegram.BotToken != "" {
		chat = telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.APIBase)
	}
	reporter := report.NewRouter(mail.NewSender(mail.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Sender:   cfg.Email.Sender,
		Password: cfg.Email.Password,
	}, baseLogger), chat)

	var remixer ports.Remixer
	if cfg.Trends.RemixWebhook != "" {
		remixer = trendClient
	}

	tasks := usecase.Tasks{
		Pipeline: pipeline,
		Report: usecase.NewReportTask(usecase.ReportDeps{
			Registry: store,
			Metrics:  store,
			Reporter: reporter,
			Journal:  journal,
			Logger:   baseLogger.With("component", "report"),
		}),
		Stats: usecase.NewStatsTask(usecase.StatsDeps{
			Registry:  store,
			Collector: graph,
			Store:     store,
			Journal:   journal,
			Location:  cfg.Scheduler.Location(),
			Logger:    baseLogger.With("component", "stats"),
		}),
		Remix: usecase.NewRemixTask(usecase.RemixDeps{
			Registry: store,
			Topics:   store,
			Remixer:  remixer,
			Trends:   trendClient,
			Feeder:   store,
			Journal:  journal,
			Logger:   baseLogger.With("component", "remix"),
		}),
	}

	driver := scheduler.NewDailyScheduler(cfg.Scheduler.Location(), baseLogger.With("component", "scheduler"))
	sched := usecase.NewScheduler(driver, usecase.Schedule{
		PublishTimes: cfg.Scheduler.PublishTimes,
		ReportTimes:  cfg.Scheduler.ReportTimes,
		RemixTimes:   cfg.Scheduler.RemixTimes,
		StatsTimes:   cfg.Scheduler.StatsTimes,
	}, tasks, baseLogger.With("component", "tasks"))

	a := &Application{
		cfg:       cfg,
		store:     store,
		scheduler: sched,
		tasks:     tasks,
		journal:   journal,
		logger:    baseLogger,
	}

	if cfg.HTTP.Listen != "" {
		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		dashboard := usecase.NewDashboard(store, time.Duration(cfg.HTTP.SummaryCacheSeconds)*time.Second)
		rest.NewHandler(dashboard).RegisterRoutes(e)
		a.server = e
	}

	return a, nil
}

// Run seeds the store, starts the scheduler and the dashboard, and blocks
// until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	defer a.store.Close()

	if err := a.seed(ctx); err != nil {
		return err
	}
	a.journal.Record(ctx, domain.CategoryAgentStart, "Agent started with %d configured clients.", len(a.cfg.Clients))

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	serverErr := make(chan error, 1)
	if a.server != nil {
		go func() {
			a.logger.Info("dashboard listening", "addr", a.cfg.HTTP.Listen)
			if err := a.server.Start(a.cfg.HTTP.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	case err := <-serverErr:
		runErr = fmt.Errorf("dashboard: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("dashboard shutdown", "error", err)
		}
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler shutdown", "error", err)
	}
	return runErr
}

// RunTask seeds the store and executes one named task immediately.
func (a *Application) RunTask(ctx context.Context, name string) error {
	defer a.store.Close()

	if err := a.seed(ctx); err != nil {
		return err
	}

	switch name {
	case usecase.TaskPublish:
		summary := a.tasks.Pipeline.Run(ctx)
		a.logger.Info("publish finished", "clients", len(summary.Results))
		return summary.Err
	case usecase.TaskReport:
		summary, err := a.tasks.Report.Run(ctx)
		a.logger.Info("report finished", "sent", summary.Sent, "failed", summary.Failed)
		return err
	case usecase.TaskRemix:
		summary, err := a.tasks.Remix.Run(ctx)
		a.logger.Info("remix finished", "topic", summary.Topic, "queries", len(summary.Queries))
		return err
	case usecase.TaskStats:
		summary, err := a.tasks.Stats.Run(ctx)
		a.logger.Info("stats finished", "collected", summary.Collected, "failed", summary.Failed)
		return err
	default:
		return fmt.Errorf("unknown task %q", name)
	}
}

func (a *Application) seed(ctx context.Context) error {
	for _, c := range a.cfg.Clients {
		id, err := a.store.UpsertClient(ctx, c.Domain())
		if err != nil {
			return fmt.Errorf("seed client %s: %w", c.Username, err)
		}
		a.logger.Debug("client seeded", "client", c.Username, "id", id)
	}

	added, err := a.store.AddRemixTopics(ctx, a.cfg.RemixTopics)
	if err != nil {
		return fmt.Errorf("seed remix topics: %w", err)
	}
	if added > 0 {
		a.logger.Info("remix topics seeded", "added", added)
	}
	return nil
}
