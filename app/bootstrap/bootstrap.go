package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/social-comb/app/api"
	"github.com/lysyi3m/social-comb/app/cfg"
	"github.com/lysyi3m/social-comb/app/content"
	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/dedup"
	"github.com/lysyi3m/social-comb/app/extract"
	"github.com/lysyi3m/social-comb/app/feed"
	"github.com/lysyi3m/social-comb/app/llm"
	"github.com/lysyi3m/social-comb/app/lock"
	"github.com/lysyi3m/social-comb/app/metrics"
	"github.com/lysyi3m/social-comb/app/platform"
	"github.com/lysyi3m/social-comb/app/policy"
	"github.com/lysyi3m/social-comb/app/publisher"
	"github.com/lysyi3m/social-comb/app/tasks"
	"github.com/lysyi3m/social-comb/app/trends"
)

// SetupLogger installs the default slog handler.
func SetupLogger(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// Run wires every component from c, serves the API and blocks until SIGINT or
// SIGTERM.
func Run(c *cfg.Cfg) error {
	slog.Info("Starting Social Comb", "version", c.Version, "timezone", time.Local.String())

	db, err := database.Open(c.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database ready", "path", c.DBPath, "schema_version", version, "dirty", dirty)

	feedRepo := database.NewFeedRepository(db)
	postRepo := database.NewPostRepository(db)
	trendRepo := database.NewTrendRepository(db)
	analyticsRepo := database.NewAnalyticsRepository(db)
	settingsRepo := database.NewSettingsRepository(db)

	ctx := context.Background()

	filters := feed.NewFilterCache()
	if c.FeedsFile != "" {
		n, err := feed.ApplySeed(ctx, c.FeedsFile, feedRepo, filters)
		if err != nil {
			return fmt.Errorf("failed to seed feeds: %w", err)
		}
		slog.Info("Feeds seeded", "file", c.FeedsFile, "count", n)
	}

	m := metrics.New()

	registry := platform.FromConfig(c)
	for p, s := range registry.Status() {
		slog.Info("Platform client", "platform", p, "configured", s.Configured, "reason", s.Reason)
	}

	llmClient := llm.NewClient(llm.Config{
		APIKey:  c.LLM.APIKey,
		Model:   c.LLM.Model,
		BaseURL: c.LLM.BaseURL,
	}, m)
	if !llmClient.Configured() {
		slog.Warn("LLM API key not set, content generation will use fallback templates")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	aggregator := feed.NewAggregator(feed.NewReader(httpClient, c.UserAgent), feedRepo, filters, m)
	extractor := extract.NewExtractor(httpClient, c.UserAgent)
	gate := policy.New(postRepo, c.Posting.HoursStart, c.Posting.HoursEnd, c.Posting.MaxPostsPerDay)

	contentService := content.NewService(
		extractor,
		llmClient,
		dedup.NewFilter(postRepo),
		postRepo,
		trendRepo,
		analyticsRepo,
		aggregator,
		gate,
	)
	analyzer := trends.NewAnalyzer(trendRepo, postRepo, aggregator)
	pub := publisher.New(postRepo, analyticsRepo, registry, m)
	pub.StaleAfter = tasks.DefaultJobTimeout

	runtime := tasks.NewRuntime(c.WorkerCount, lock.New(c.Redis.Addr(), c.Redis.Password), m)
	tasks.RegisterJobs(runtime, tasks.Deps{
		Feeds:          aggregator,
		Trends:         analyzer,
		Content:        contentService,
		Publisher:      pub,
		MaxPostsPerDay: c.Posting.MaxPostsPerDay,
	})
	if err := runtime.Start(tasks.RecurringFromConfig(c)); err != nil {
		return err
	}
	defer runtime.Stop()

	handler := api.NewHandler(api.Deps{
		Feeds:       feedRepo,
		Posts:       postRepo,
		Trends:      trendRepo,
		Analytics:   analyticsRepo,
		Settings:    settingsRepo,
		FeedManager: aggregator,
		Content:     contentService,
		Publisher:   pub,
		Analyzer:    analyzer,
		Hashtags:    llmClient,
		Queue:       runtime,
		Platforms:   registry,
		Metrics:     m.Handler(),
		Version:     c.Version,
	})

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      api.NewServer(handler, c.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Social Comb started successfully")

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case runErr = <-serverErrChan:
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return runErr
}
