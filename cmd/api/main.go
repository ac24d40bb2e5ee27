package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"staybook/internal/adapters/auth"
	server "staybook/internal/adapters/http_server"
	"staybook/internal/adapters/mailer"
	"staybook/internal/adapters/observability"
	redisad "staybook/internal/adapters/redis"
	"staybook/internal/app"
	"staybook/internal/domain"
	"staybook/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api", cfg.LogLevel)

	observability.Serve(cfg.MetricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// redis backs the hotel cache, sessions and change notifications
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer rc.Close()
	if err := rc.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("redis ping failed")
	}

	store, closeStore, err := shared.OpenStore(ctx, cfg, redisad.NewNotifier(rc))
	if err != nil {
		log.Fatal().Err(err).Msg("open document store failed")
	}
	defer closeStore()

	var mail domain.Mailer = mailer.LogMailer{}
	if cfg.MailerBase != "" && cfg.MailerKey != "" {
		c, err := mailer.New(cfg.MailerBase, cfg.MailerKey, cfg.MailerRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize mailer")
		}
		mail = c
	}

	provider, err := auth.New(store, redisad.NewSessionStore(rc), mail, auth.Config{
		Secret:            []byte(cfg.JWTSecret),
		SessionTTL:        cfg.SessionTTL,
		AttemptsPerMinute: cfg.SignInPerMinute,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth provider")
	}
	stopAuthLog := provider.OnAuthStateChange(func(ev domain.AuthEvent) {
		log.Debug().Str("user_id", ev.UserID).Bool("signed_in", ev.Session != nil).Msg("auth state changed")
	})
	defer stopAuthLog()

	hotels := app.NewHotelService(store, redisad.NewCache(rc), cfg.CacheTTL)
	bookings := app.NewBookingService(store, hotels)
	go app.NewSweeper(bookings, cfg.SweepInterval).Run(ctx)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Accounts: app.NewAccountService(provider, store),
		Hotels:   hotels,
		Bookings: bookings,
		Reviews:  app.NewReviewService(store, hotels),
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
		os.Exit(1)
	}
	log.Info().Msg("server exited")
}
