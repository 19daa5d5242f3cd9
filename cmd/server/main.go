package main

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"whist-lite/internal/auth"
	"whist-lite/internal/config"
	"whist-lite/internal/gateway"
	"whist-lite/internal/player"
	"whist-lite/internal/room"
	"whist-lite/internal/service"
)

func main() {
	cfg := config.Load()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(lvl)
	}

	authService, authMode, err := auth.NewServiceFromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init auth service")
	}
	defer authService.Close()

	players := player.NewRegistry(cfg.DisconnectGrace, logger)
	rooms := room.NewRegistry(cfg.RoomEmptyGrace, cfg.RoomInactiveTTL, logger)
	svc := service.New(rooms, players, logger)
	gw := gateway.New(svc, authService, logger)
	authHTTP := auth.NewHTTPHandler(authService)

	stop := make(chan struct{})
	defer close(stop)
	go rooms.RunSweeper(cfg.SweepInterval, stop)
	go players.RunSweeper(cfg.SweepInterval, stop)
	go gw.Run()
	defer gw.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	authHTTP.RegisterRoutes(mux)

	logger.Info().
		Str("addr", cfg.Addr).
		Str("authMode", authMode).
		Msg("starting whist-lite server")
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
