package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tractdb/tractdb-server/internal/config"
	"github.com/tractdb/tractdb-server/internal/couch"
	"github.com/tractdb/tractdb-server/internal/fitbit"
	"github.com/tractdb/tractdb-server/internal/handler"
	"github.com/tractdb/tractdb-server/internal/jobs"
	"github.com/tractdb/tractdb-server/internal/middleware"
	"github.com/tractdb/tractdb-server/internal/redis"
	"github.com/tractdb/tractdb-server/internal/service"
	"github.com/tractdb/tractdb-server/internal/session"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("TRACTDB_ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	provisioner, err := couch.NewProvisioner(cfg.CouchDBURL, cfg.CouchDBAdmin, cfg.CouchDBAdminSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to couchdb")
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.CouchPingTimeout)
	if err := provisioner.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping couchdb")
	}
	cancel()
	log.Info().Msg("couchdb connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	sessions := session.NewStore(redisClient.Client, cfg.SessionSecret, cfg.SessionTTL())

	var fitbitClient *fitbit.Client
	if cfg.FitbitConfigured() {
		fitbitClient = fitbit.NewClient(cfg.FitbitClientID, cfg.FitbitClientSecret, cfg.FitbitRedirectURI)
	}

	authService := service.NewAuthService(cfg.CouchDBURL, provisioner, sessions)
	accountService := service.NewAccountService(provisioner)
	familySleepService := service.NewFamilySleepService(fitbitClient)

	authMiddleware := middleware.NewAuthMiddleware(authService, authService)
	loginLimitMiddleware := middleware.NewLoginRateLimitMiddleware(redisClient.Client, config.LoginMaxAttemptsPerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(cfg.MaxAttachmentBytes)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	accountHandler := handler.NewAccountHandler(accountService)
	authHandler := handler.NewAuthHandler(authService, cfg.SessionTTL(), isProduction)
	documentHandler := handler.NewDocumentHandler()
	attachmentHandler := handler.NewAttachmentHandler()
	familySleepHandler := handler.NewFamilySleepHandler(familySleepService)

	r := newRouter(routerDeps{
		cfg:             cfg,
		auth:            authMiddleware,
		loginLimit:      loginLimitMiddleware,
		bodyLimit:       bodyLimitMiddleware,
		securityHeaders: securityHeadersMiddleware,
		accounts:        accountHandler,
		authn:           authHandler,
		documents:       documentHandler,
		attachments:     attachmentHandler,
		familySleep:     familySleepHandler,
	})

	sweeper := jobs.NewCredentialSweeper(provisioner, sessions, config.CredentialSweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerRequestTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
