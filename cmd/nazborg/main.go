package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/comigor/nazborg-go/internal/agent"
	"github.com/comigor/nazborg-go/internal/auth"
	"github.com/comigor/nazborg-go/internal/booking"
	"github.com/comigor/nazborg-go/internal/calendar"
	"github.com/comigor/nazborg-go/internal/config"
	"github.com/comigor/nazborg-go/internal/dates"
	"github.com/comigor/nazborg-go/internal/history"
	"github.com/comigor/nazborg-go/internal/intent"
	"github.com/comigor/nazborg-go/internal/llm"
	"github.com/comigor/nazborg-go/internal/logger"
	"github.com/comigor/nazborg-go/internal/metrics"
	"github.com/comigor/nazborg-go/internal/notify"
	"github.com/comigor/nazborg-go/internal/prompts"
	"github.com/comigor/nazborg-go/internal/server"
	"github.com/comigor/nazborg-go/internal/tasks"
	"github.com/comigor/nazborg-go/pkg/tools"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.SetLevel(cfg.Log.Level)
	logCloser := logger.SetOutput(logger.FileConfig{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer logCloser.Close()

	if err := run(cfg); err != nil {
		logger.L.Error("nazborg stopped with error", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return err
	}

	systemPrompt, err := prompts.Load(cfg.LLM.PromptVersion, cfg.LLM.SystemPrompt)
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.New()
	dispatcher := tasks.New(cfg.Tasks, m)
	defer dispatcher.Close()
	historyWriter := tasks.NewSerial(cfg.Tasks, m)
	defer historyWriter.Close()

	// Calendar credential and booking pipeline
	resolver := dates.NewResolver(loc)
	tokens := auth.NewTokenHolder()
	oauthCfg := auth.NewOAuthConfig(cfg.GoogleCalendar)
	flow := auth.NewFlow(oauthCfg, tokens, cfg.GoogleCalendar.RefreshToken)
	committer := calendar.NewCommitter(oauthCfg, cfg.GoogleCalendar, loc)
	notifier, err := notify.New(cfg.Notify, loc)
	if err != nil {
		return err
	}
	bookings := booking.NewService(resolver, tokens, committer, notifier, dispatcher, m)

	extractor := intent.NewExtractor(
		intent.ActionBlock{},
		intent.ImplicitDate{Resolver: resolver, PlaceholderName: cfg.Scheduling.PlaceholderName},
	)
	chat := agent.New(llm.NewClient(cfg.LLM), cfg.LLM, systemPrompt, agent.Deps{
		History:   store,
		Extractor: extractor,
		Scheduler: bookings,
		Tasks:     historyWriter,
		Metrics:   m,
	})

	toolManager := tools.NewToolManager()
	toolManager.RegisterTool(tools.NewScheduleTool(bookings))
	toolManager.RegisterTool(tools.NewResolveDateTool(resolver))
	mcpHandler := mcpserver.NewStreamableHTTPServer(toolManager.MCPServer("nazborg", version))

	srv := server.New(cfg.Server, server.Deps{
		Chat:    chat,
		Booker:  bookings,
		Auth:    flow,
		Status:  tokens,
		Metrics: m.Handler(),
		MCP:     mcpHandler,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.L.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L.Warn("http shutdown incomplete", "error", err)
	}
	return nil
}
