package main

import (
	"github.com/rs/zerolog/log"

	"build-watcher/internal/app/server"
	"build-watcher/internal/config"
)

func main() {
	cfg, err := config.Load()
	config.SetupLogging(cfg.Server.LogLevel, cfg.Server.LogFormat)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	server.Run(cfg)
}
