package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/healthrec/internal/analytics"
	"github.com/Skufu/healthrec/internal/api"
	"github.com/Skufu/healthrec/internal/auth"
	"github.com/Skufu/healthrec/internal/config"
	"github.com/Skufu/healthrec/internal/heart"
	"github.com/Skufu/healthrec/internal/knn"
	"github.com/Skufu/healthrec/internal/logging"
	"github.com/Skufu/healthrec/internal/sentiment"
	"github.com/Skufu/healthrec/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("config error")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.Database.URL, store.Options{
		MaxConns:       cfg.Database.MaxConns,
		MinConns:       cfg.Database.MinConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logging.Fatal().Err(err).Msg("schema migration failed")
	}

	router, err := setupRouter(cfg, db)
	if err != nil {
		logging.Fatal().Err(err).Msg("startup failed")
	}

	server := newServer(cfg.Server.Port, router)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	logging.Info().Str("port", cfg.Server.Port).Msg("server listening")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	waitForShutdown(server, stop)
}

// setupRouter loads the model artifacts and wires every service into the API.
func setupRouter(cfg *config.Config, db *store.Store) (*gin.Engine, error) {
	clf, err := heart.Load(cfg.Models.HeartModelPath)
	if err != nil {
		return nil, fmt.Errorf("load heart model: %w", err)
	}

	rec, err := knn.Load(cfg.Models.KNNDataPath, cfg.Models.KNNScalerPath)
	if err != nil {
		return nil, fmt.Errorf("load recommender: %w", err)
	}
	logging.Info().Int("diseases", rec.Len()).Str("mapping", cfg.Models.KNNDataPath).Msg("recommender ready")

	jwtm, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}

	return api.NewRouter(api.Deps{
		Repo:      db,
		Health:    db,
		Heart:     clf,
		KNN:       rec,
		Sentiment: sentiment.NewAnalyzer(nil),
		Reports:   analytics.NewService(db),
		Hasher:    auth.NewHasher(cfg.Security.BcryptCost),
		JWT:       jwtm,
		Options: api.Options{
			CORSOrigins:    cfg.Server.CORSOrigins,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			DebugAdminKey:  cfg.Security.DebugAdminKey,
			DefaultRecs:    cfg.Models.DefaultRecs,
			LoginRateLimit: cfg.Security.LoginRateLimit,
		},
	})
}

func newServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func waitForShutdown(server *http.Server, stop <-chan os.Signal) {
	<-stop

	logging.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
}
