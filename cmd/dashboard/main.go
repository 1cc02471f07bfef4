package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/healthrec/internal/config"
	"github.com/Skufu/healthrec/internal/dashboard"
	"github.com/Skufu/healthrec/internal/logging"
)

func main() {
	cfg, err := config.LoadDashboard()
	if err != nil {
		logging.Fatal().Err(err).Msg("config error")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	gin.SetMode(cfg.Server.GinMode)

	client := dashboard.NewClient(cfg.Dashboard.APIURL, cfg.Dashboard.RequestTimeout)
	router, err := dashboard.NewRouter(client, dashboard.Options{
		EmbedURL:     cfg.Dashboard.EmbedURL,
		SecureCookie: cfg.Dashboard.SecureCookie,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("startup failed")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Dashboard.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("dashboard server error")
		}
	}()
	logging.Info().Str("port", cfg.Dashboard.Port).Str("api", cfg.Dashboard.APIURL).Msg("dashboard listening")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
}
