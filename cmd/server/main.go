package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/babelchat/server/internal/api"
	"github.com/babelchat/server/internal/config"
	"github.com/babelchat/server/internal/database"
	"github.com/babelchat/server/internal/logger"
	"github.com/babelchat/server/internal/session"
	"github.com/babelchat/server/internal/stats"
	"github.com/babelchat/server/internal/translate"
)

var configPath string

func main() {
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		// config failures happen before the logger exists
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	db, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db open")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("db close")
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	var provider translate.Provider = translate.NewGoogleProvider(
		cfg.TranslateEndpoint, cfg.TranslateAPIKey)

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		provider = translate.NewCachingProvider(provider, rdb, translate.DefaultCacheTTL, log)
		log.Info().Str("addr", cfg.RedisAddr).Msg("translation cache enabled")
	}

	translator := translate.NewPipeline(
		provider, cfg.TargetLanguages(), cfg.TranslateTimeout, log, statsUpdater)

	core := session.NewServer(log, db, db, translator, statsUpdater, cfg.OutboxSize)

	srv := api.NewServer(mux, log, core, db, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		log.Info().Str("signal", sig.String()).Msg("received signal")
	case err := <-errCh:
		log.Error().Err(err).Msg("server")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("HTTP server shutdown")
	}

	log.Info().Msg("shutdown complete")
}
