package main

import (
	"fmt"
	"os"

	"gentoostats/archive"
	"gentoostats/config"
	"gentoostats/geoip"
	"gentoostats/ingest"
	"gentoostats/orm"
	"gentoostats/receiver"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogging(cfg)

	db := orm.InitDB(cfg)

	archiver, err := archive.NewFilesystem(cfg.RequestDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize request archive")
	}
	log.Info().
		Str("request_dir", cfg.RequestDir).
		Msg("request archive initialized")

	// Country lookup is a pluggable collaborator; no geo database is
	// wired in by default.
	ingestor := ingest.New(db, archiver, geoip.Noop{}, cfg.ProtocolVersion)

	router := receiver.NewHandler(ingestor).Router()

	log.Info().
		Int("port", cfg.Port).
		Int("protocol", cfg.ProtocolVersion).
		Msg("gentoostats receiver listening")

	if err := router.Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		log.Fatal().Err(err).Msg("http server exited")
	}
}

func initLogging(cfg *config.AppConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Msgf("unknown log level '%s', defaulting to info", cfg.LogLevel)
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.HumanReadableOutput {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
