package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"build-watcher/internal/api"
	"build-watcher/internal/buildapi"
	"build-watcher/internal/config"
	"build-watcher/internal/engine"
	"build-watcher/internal/extract"
	"build-watcher/internal/notify"
	"build-watcher/internal/poller"
	"build-watcher/internal/storage"
)

func Run(cfg config.Config) {
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Recorded hash
	store, closeStore, err := newHashStore(rootCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init hash store")
	}
	defer closeStore()

	// Notifications
	notifier, err := newNotifier(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init notifier")
	}

	// Engine
	client := buildapi.New(buildapi.Config{
		APIBaseURL:   cfg.Builds.APIBaseURL,
		AssetBaseURL: cfg.Builds.AssetBaseURL,
		Timeout:      cfg.RequestTimeout(),
	})
	extractor := extract.New(client, extract.Options{
		ScriptIndex: extract.ScriptAt(cfg.Extract.ScriptIndex),
		SkipModules: cfg.Extract.SkipModules,
		MarkerKey:   cfg.Extract.MarkerKey,
	})
	coord := poller.New(client, engine.NewComparator(extractor), notifier, store, nil)

	// HTTP
	h := api.NewBuildsHandler(coord)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Router(h, cfg.TickTimeout()),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.TickTimeout() + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Poller
	go poller.Run(rootCtx, coord, cfg.PollInterval(), cfg.TickTimeout())

	// Server goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server crashed")
		}
	}()

	// Wait for signal
	waitForSignal()
	log.Info().Msg("shutdown...")

	// Graceful shutdown
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	cancel() // stop the poller
	_ = srv.Shutdown(shCtx)
}

// newHashStore uses Postgres when a host is configured, memory otherwise.
func newHashStore(ctx context.Context, cfg config.Config) (storage.HashStore, func(), error) {
	if cfg.Postgres.Host == "" {
		log.Info().Msg("no postgres host; last build hash kept in memory")
		return storage.NewMemoryStore(), func() {}, nil
	}
	st, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("dsn", st.DSNRedacted()).Msg("last build hash kept in postgres")
	return st, st.Close, nil
}

func newNotifier(cfg config.Config) (*notify.Notifier, error) {
	roles := notify.Roles{
		GlobalEnvs:  cfg.Discord.GlobalEnvRoleID,
		Strings:     cfg.Discord.StringsRoleID,
		Experiments: cfg.Discord.ExperimentsRoleID,
		CSSRules:    cfg.Discord.CSSRoleID,
	}
	if cfg.Discord.DryRun {
		log.Warn().Msg("discord dry run; messages are only logged")
		return notify.New(notify.LogSender{}, cfg.Discord.ChannelID, roles, cfg.Discord.BatchSize), nil
	}
	return notify.NewDiscord(cfg.Discord.Token, cfg.Discord.ChannelID, roles, cfg.Discord.BatchSize)
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
