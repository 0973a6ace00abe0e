package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"fxpay-service/internal/bootstrap"
	"fxpay-service/internal/config"
	infraconfig "fxpay-service/internal/infrastructure/config"
	httpserver "fxpay-service/internal/infrastructure/http"
	"fxpay-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	ctx := context.Background()
	logger := logx.L()
	cfg := config.Load()
	addr := ":" + cfg.Port

	repos, closeRepos, err := bootstrap.BuildRepos(ctx, cfg)
	if err != nil {
		logger.Fatal("bootstrap repos", zap.Error(err))
	}
	defer closeRepos()

	rateCache, closeCache, err := bootstrap.BuildCache(cfg)
	if err != nil {
		logger.Fatal("bootstrap cache", zap.Error(err))
	}
	defer closeCache()

	idem, closeIdem := bootstrap.BuildIdempotency(cfg)
	defer closeIdem()

	services := bootstrap.BuildServices(cfg, repos, rateCache)
	srv := httpserver.NewServer(services.Quotes, services.Payments, idem, cfg.MarkupPct, repos.Ping)
	mux := httpserver.NewRouter(srv)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, shCancel := context.WithTimeout(context.Background(), infraconfig.DefaultShutdownTimeout)
	defer shCancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}
