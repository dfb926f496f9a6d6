package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/DoyleJ11/overlay-relay/internal/catalog"
	"github.com/DoyleJ11/overlay-relay/internal/httpapi"
	"github.com/DoyleJ11/overlay-relay/internal/hub"
)

type config struct {
	Addr           string
	AssetsDir      string
	DefaultGame    string
	DefaultChannel string
	Dev            bool
}

func loadConfig() config {
	return config{
		Addr:           getenv("ADDR", "127.0.0.1:17311"),
		AssetsDir:      getenv("ASSETS_DIR", "Assets"),
		DefaultGame:    getenv("DEFAULT_GAME", "ApexLegends"),
		DefaultChannel: getenv("DEFAULT_CHANNEL", "obs_challenge_overlay"),
		Dev:            os.Getenv("DEV") == "1",
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// A missing .env just means everything comes from the environment.
	_ = godotenv.Load()
	cfg := loadConfig()

	var log *zap.Logger
	var err error
	if cfg.Dev {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, log)
	scanner := catalog.NewScanner(cfg.AssetsDir, cfg.DefaultGame, log)

	handler := httpapi.SetupRoutes(h, scanner, log, cfg.DefaultChannel)
	srv := &http.Server{Addr: cfg.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening",
		zap.String("addr", cfg.Addr),
		zap.String("assets_dir", cfg.AssetsDir),
		zap.String("default_channel", cfg.DefaultChannel))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server exited", zap.Error(err))
	}
}
