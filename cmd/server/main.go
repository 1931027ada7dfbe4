package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketquotes/internal/app"
	"marketquotes/internal/config"
	"marketquotes/internal/logging"
)

func main() {
	// Config
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.WithError(err).Fatal("config")
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("wiring")
	}
	defer a.Close()
	log.WithField("chain", a.Chain).Info("quote chain ready")

	s := &server{
		quotes:   a.Resolver,
		markets:  a.Markets,
		screener: a.Screener,
		news:     a.News,
		maxAge:   a.DisplayMaxAge(),
		timeout:  time.Duration(cfg.Server.RequestTimeoutSec+5) * time.Second,
		log:      log,
		now:      time.Now,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infof("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server")
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
