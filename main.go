package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/devmemory/apps/go-server/internal/catalog"
	"github.com/robalobadob/devmemory/apps/go-server/internal/config"
	"github.com/robalobadob/devmemory/apps/go-server/internal/db"
	"github.com/robalobadob/devmemory/apps/go-server/internal/httpserver"
	"github.com/robalobadob/devmemory/apps/go-server/internal/metrics"
	"github.com/robalobadob/devmemory/apps/go-server/internal/store"
)

func main() {
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := catalog.Init(cfg.CatalogFile); err != nil {
		log.Fatal().Err(err).Msg("failed to load symbol catalog")
	}

	conn, err := db.OpenAndMigrate(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mem := store.NewMemoryStore()
	go store.RunReaper(ctx, mem, time.Minute, cfg.SessionIdleTTL, func(int) {
		metrics.ActiveSessions.Set(float64(mem.Len()))
	})

	srv := httpserver.New(cfg, mem, conn)
	go func() {
		log.Info().Str("port", cfg.Port).Int("pairs", catalog.Size()).Msg("starting go-server")
		if err := srv.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown")
	}
}
