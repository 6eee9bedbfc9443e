package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BaGreal2/yamdb-server/internal/auth"
	"github.com/BaGreal2/yamdb-server/internal/config"
	"github.com/BaGreal2/yamdb-server/internal/db"
	"github.com/BaGreal2/yamdb-server/internal/handler"
	"github.com/BaGreal2/yamdb-server/internal/middleware"
	"github.com/BaGreal2/yamdb-server/internal/store"
	"github.com/BaGreal2/yamdb-server/internal/validation"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()
	log := config.NewLogger(cfg)

	database, err := db.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("unable to open database")
	}
	defer database.Close()

	st := store.New(database)
	if cfg.SuperuserUsername != "" && cfg.SuperuserEmail != "" {
		u, err := st.EnsureSuperuser(context.Background(), cfg.SuperuserUsername, cfg.SuperuserEmail)
		if err != nil {
			log.WithError(err).Fatal("unable to bootstrap superuser")
		}
		log.WithField("username", u.Username).Info("superuser ready")
	}

	var mailer auth.Mailer = auth.LogMailer{Log: log}
	if cfg.SendGridAPIKey != "" {
		mailer = auth.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFrom)
	} else {
		log.Warn("SENDGRID_API_KEY not set, confirmation codes will be logged")
	}

	validator := validation.New(st)
	authService := auth.NewService(
		st,
		mailer,
		auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		validator,
		auth.Options{CodeLength: cfg.CodeLength, SingleUse: cfg.CodeSingleUse},
		log,
	)

	stop := make(chan struct{})
	var limiter *middleware.RateLimiter
	if cfg.AuthRateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)
		limiter.StartCleanup(10*time.Minute, stop)
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: handler.NewRouter(handler.Deps{
			Store:       st,
			Validator:   validator,
			Auth:        authService,
			Logger:      log,
			CORSOrigins: cfg.CORSOrigins,
			AuthLimiter: limiter,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("server stopped")
}
