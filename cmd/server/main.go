package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Space/internal/adapters/http"
	signalws "github.com/dkeye/Space/internal/adapters/signal"
	"github.com/dkeye/Space/internal/app"
	"github.com/dkeye/Space/internal/config"
	"github.com/dkeye/Space/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	spaces := make([]domain.Space, 0, len(cfg.Spaces))
	for _, s := range cfg.Spaces {
		spaces = append(spaces, domain.Space{
			ID:       domain.SpaceID(s.ID),
			MapID:    domain.MapID(s.MapID),
			Capacity: s.Capacity,
		})
	}

	rooms := app.NewRoomManager()
	metrics := app.NewMetrics(func() float64 { return float64(len(rooms.List())) })
	promReg := prometheus.NewRegistry()
	if err := metrics.Register(promReg); err != nil {
		log.Error().Err(err).Msg("failed to register metrics")
	}

	coord := &app.Coordinator{
		Registry:  app.NewRegistry(),
		Rooms:     rooms,
		Directory: app.NewStaticDirectory(spaces, cfg.AllowUnlistedSpaces, domain.MapID(cfg.DefaultMapID)),
		Policy:    app.KickPolicy{},
		Metrics:   metrics,
		Throttle:  app.NewPositionThrottle(cfg.PositionMinInterval),
	}

	ctl := signalws.NewSignalWSController(coord, cfg)

	r := router.SetupRouter(ctx, cfg, coord, ctl, promReg)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Space server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
