package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fxpay-service/internal/bootstrap"
	"fxpay-service/internal/config"
	"fxpay-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	log := logx.L()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, closeRepos, err := bootstrap.BuildRepos(ctx, cfg)
	if err != nil {
		log.Fatal("bootstrap repos", zap.Error(err))
	}
	defer closeRepos()

	rateCache, closeCache, err := bootstrap.BuildCache(cfg)
	if err != nil {
		log.Fatal("bootstrap cache", zap.Error(err))
	}
	defer closeCache()

	services := bootstrap.BuildServices(cfg, repos, rateCache)
	w := bootstrap.BuildWorker(cfg, services.Payments)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	w.Start(ctx)
	log.Info("worker stopped")
}
