package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"newstrader/internal/api"
	"newstrader/internal/config"
	"newstrader/internal/logging"
	"newstrader/pkg/newstrader"
)

func main() {
	var (
		positionsPath string
		marketPath    string
		provider      string
		model         string
		multiStep     string
		threshold     int
		debugCapture  bool
		debugOut      string
		dummy         bool
		serve         bool
		host          string
		port          int
		dataDir       string
	)

	flag.StringVar(&positionsPath, "positions", "positions.json", "Path to the positions file")
	flag.StringVar(&marketPath, "market", "", "Path to a pre-fetched market data file (optional)")
	flag.StringVar(&provider, "provider", "", "AI provider override (anthropic, openai, gemini, ollama)")
	flag.StringVar(&model, "model", "", "Model identifier override")
	flag.StringVar(&multiStep, "multistep", "", "Multi-step override (auto, on, off)")
	flag.IntVar(&threshold, "multistep-threshold", 0, "Context-size threshold for automatic multi-step")
	flag.BoolVar(&debugCapture, "debug-capture", false, "Capture all prompts and responses")
	flag.StringVar(&debugOut, "debug-out", "", "Write the debug capture to this file")
	flag.BoolVar(&dummy, "dummy", false, "Skip AI analysis, emit dummy recommendations")
	flag.BoolVar(&serve, "serve", false, "Run the HTTP API server instead of a pipeline run")
	flag.StringVar(&host, "host", "127.0.0.1", "Host to bind the server to")
	flag.IntVar(&port, "port", 0, "Port to run the server on")
	flag.StringVar(&dataDir, "data-dir", "", "Directory for storing database and application data")
	flag.Parse()

	settings, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	if provider != "" {
		settings.AIProvider = provider
	}
	if multiStep != "" {
		settings.MultiStep = multiStep
	}
	if threshold > 0 {
		settings.MultiStepThreshold = threshold
	}
	if debugCapture {
		settings.DebugCapture = true
	}
	if dummy {
		settings.DummyAnalysis = true
	}
	if dataDir != "" {
		settings.DataDir = dataDir
	}
	if port > 0 {
		settings.Port = port
	}
	if model == "" {
		model = settings.ModelForProvider()
	}

	logDir := filepath.Join(settings.DataDir, "logs")
	logger, writer, err := logging.NewLogger(logDir, slog.LevelInfo)
	if err != nil {
		slog.Error("failed to initialize logger", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("failed to close log writer", "err", err)
		}
	}()

	core, err := newstrader.OpenWithOptions(newstrader.Options{
		DBPath: settings.DBPath(),
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to initialize core", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error("failed to close core", "err", err)
		}
	}()

	ctx := context.Background()

	var resolver *newstrader.Resolver
	if !settings.DummyAnalysis {
		backend, err := newstrader.NewProvider(ctx, newstrader.ProviderConfig{
			Provider: settings.AIProvider,
			Model:    model,
			APIKey:   settings.APIKeyForProvider(),
			BaseURL:  settings.BaseURLForProvider(),
		})
		if err != nil {
			logger.Error("failed to initialize AI backend", "err", err)
			os.Exit(1)
		}
		logger.Info("verifying AI backend", "backend", settings.DisplayName())
		if err := backend.Verify(ctx); err != nil {
			logger.Error("AI backend verification failed", "err", err)
			os.Exit(1)
		}
		resolver = newstrader.NewResolver(backend, newstrader.ResolverConfig{
			MultiStep:          settings.MultiStep,
			MultiStepThreshold: settings.MultiStepThreshold,
		}, logger)
	}

	if serve {
		runServer(logger, core, resolver, host, settings.Port)
		return
	}

	runPipeline(ctx, logger, core, resolver, settings, positionsPath, marketPath, debugOut, model)
}

func runPipeline(ctx context.Context, logger *slog.Logger, core *newstrader.Core, resolver *newstrader.Resolver, settings config.Settings, positionsPath, marketPath, debugOut, model string) {
	assets, err := newstrader.LoadPositions(positionsPath)
	if err != nil {
		logger.Error("failed to load positions", "err", err)
		os.Exit(1)
	}

	market := map[string]newstrader.MarketSnapshot{}
	if marketPath != "" {
		market, err = newstrader.LoadMarketSnapshots(marketPath)
		if err != nil {
			logger.Error("failed to load market data", "err", err)
			os.Exit(1)
		}
	}

	var session *newstrader.DebugSession
	if settings.DebugCapture {
		session = newstrader.NewDebugSession(settings.AIProvider, model)
	}

	pipeline := newstrader.NewPipeline(resolver, core, logger, settings.DummyAnalysis)
	results := pipeline.Run(ctx, assets, market, session)

	if session != nil {
		if err := core.SaveDebugSession(ctx, session); err != nil {
			logger.Error("failed to persist debug session", "err", err)
		}
		if debugOut != "" {
			if err := session.WriteFile(debugOut); err != nil {
				logger.Error("failed to write debug session file", "err", err)
			}
		}
	}

	output, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		logger.Error("failed to encode results", "err", err)
		os.Exit(1)
	}
	fmt.Println(string(output))
}

func runServer(logger *slog.Logger, core *newstrader.Core, resolver *newstrader.Resolver, host string, port int) {
	addr := fmt.Sprintf("%s:%d", host, port)
	handler := api.NewRouter(core, resolver, logger)
	handler = middleware.Compress(5)(handler)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("server starting", "addr", addr)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
}
