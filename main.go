package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/librarydesk/internal/adapter/llm"
	"github.com/xiaot623/librarydesk/internal/config"
	"github.com/xiaot623/librarydesk/internal/hub"
	"github.com/xiaot623/librarydesk/internal/logging"
	"github.com/xiaot623/librarydesk/internal/policy"
	"github.com/xiaot623/librarydesk/internal/repository"
	"github.com/xiaot623/librarydesk/internal/service"
	"github.com/xiaot623/librarydesk/internal/toolargs"
	"github.com/xiaot623/librarydesk/internal/tools"
	transporthttp "github.com/xiaot623/librarydesk/internal/transport/http"
	"github.com/xiaot623/librarydesk/internal/transport/rpc"
)

func main() {
	if err := run(); err != nil {
		slog.Error("librarydesk exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.InitLogger(cfg.LogLevel)

	slog.Info("starting librarydesk",
		"port", cfg.HTTPPort,
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
		"read_only", cfg.ReadOnly,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer db.Close()

	if err := seed(ctx, db, cfg); err != nil {
		return err
	}

	llmClient, err := llm.NewLLMClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize llm client: %w", err)
	}
	if closer, ok := llmClient.(io.Closer); ok {
		defer closer.Close()
	}

	policyEngine, err := policy.NewEngineFromFile(ctx, cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("initialize policy engine: %w", err)
	}

	normalizer := toolargs.NewNormalizer(toolargs.PolicyFromConfig(cfg))
	dispatcher := tools.NewDispatcher(db, normalizer)
	sessionHub := hub.NewHub()

	svc, err := service.New(db, llmClient, dispatcher, cfg, policyEngine, sessionHub)
	if err != nil {
		return fmt.Errorf("initialize service: %w", err)
	}

	e := transporthttp.NewServer(svc, sessionHub, cfg)

	var rpcServer *rpc.Server
	if cfg.RPCPort > 0 {
		rpcServer, err = rpc.NewServer(svc)
		if err != nil {
			return fmt.Errorf("initialize rpc server: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sessionHub.Run(gctx)
	})
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		slog.Info("http server listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if rpcServer != nil {
		g.Go(func() error {
			addr := fmt.Sprintf(":%d", cfg.RPCPort)
			slog.Info("rpc server listening", "addr", addr)
			if err := rpcServer.Start(addr); err != nil {
				return fmt.Errorf("rpc server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down librarydesk")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
		}
		if rpcServer != nil {
			if err := rpcServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("rpc shutdown failed", "error", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("librarydesk stopped")
	return nil
}

func seed(ctx context.Context, db *repository.SQLStore, cfg *config.Config) error {
	var (
		stats *repository.SeedStats
		err   error
	)
	switch {
	case cfg.SeedFile != "":
		stats, err = db.SeedFromFile(ctx, cfg.SeedFile)
	case cfg.SeedOnStart:
		stats, err = db.SeedDefault(ctx)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	slog.Info("catalog seeded", "books", stats.Books, "customers", stats.Customers, "orders", stats.Orders)
	return nil
}
