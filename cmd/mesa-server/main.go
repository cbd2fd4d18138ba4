package main

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"mesa-chat-backend/internal/config"
	"mesa-chat-backend/internal/server"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg := config.Load()
	srv, err := server.NewServer(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("server setup failed")
	}
	defer srv.Close()

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Msg("mesa chat backend listening")
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
