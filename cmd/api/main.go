package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-twin/backend/internal/config"
	"github.com/zhouzirui/voice-twin/backend/internal/handler"
	"github.com/zhouzirui/voice-twin/backend/internal/logging"
	"github.com/zhouzirui/voice-twin/backend/internal/service/ai"
	journalservice "github.com/zhouzirui/voice-twin/backend/internal/service/journal"
	"github.com/zhouzirui/voice-twin/backend/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "voice-twin: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// .env 可选，缺失时只用系统环境变量
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Debug("no .env file loaded, using system environment", zap.Error(envErr))
	}

	st, err := store.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer st.Close()
	logger.Info("store ready", zap.String("driver", cfg.Store.Driver))

	var chatModel model.BaseChatModel
	if cfg.AI.Enabled() {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			logger.Warn("failed to initialize chat model, running with heuristics only", zap.Error(err))
		} else {
			logger.Info("chat model initialized", zap.String("model", cfg.AI.Model))
		}
	} else {
		logger.Info("Ark 凭证未配置，使用启发式分析与回复 (demo mode)")
	}

	aiOpts := ai.Options{
		HistoryLimit: cfg.AI.HistoryLimit,
		Timeout:      cfg.AI.RequestTimeout,
		Logger:       logger.Named("ai"),
	}
	journal := journalservice.NewService(
		st,
		ai.NewAnalyzer(chatModel, aiOpts),
		ai.NewResponder(chatModel, aiOpts),
		journalservice.Config{
			DefaultUserID:   cfg.Journal.DefaultUserID,
			AnalyticsWindow: cfg.Journal.AnalyticsWindow,
		},
		logger.Named("journal"),
	)

	router := handler.NewRouter(journal, logger.Named("http"))

	return startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("voice twin backend listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
