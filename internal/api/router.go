// Package api is the JSON HTTP surface of the prediction and recommendation
// service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Skufu/healthrec/internal/analytics"
	"github.com/Skufu/healthrec/internal/auth"
	"github.com/Skufu/healthrec/internal/heart"
	"github.com/Skufu/healthrec/internal/knn"
	"github.com/Skufu/healthrec/internal/logging"
	"github.com/Skufu/healthrec/internal/metrics"
	"github.com/Skufu/healthrec/internal/models"
	"github.com/Skufu/healthrec/internal/sentiment"
	"github.com/Skufu/healthrec/internal/store"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Repository is the persistence the handlers need.
type Repository interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UpdateProfile(ctx context.Context, id uint, upd store.ProfileUpdate) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	CreatePredictionLog(ctx context.Context, log *models.PredictionLog) error
	CreatePredictionLogs(ctx context.Context, logs []models.PredictionLog) error
	CreateActivity(ctx context.Context, a *models.ActivityLog) error
	ListActivity(ctx context.Context, userID uint, limit int) ([]models.ActivityLog, error)
	CreateFeedback(ctx context.Context, f *models.FeedbackLog) error
	ListFeedbackByUser(ctx context.Context, userID uint, limit int) ([]models.FeedbackLog, error)
	ListFeedback(ctx context.Context, limit int) ([]models.FeedbackLog, error)
}

type HeartModel interface {
	Predict(f heart.Features) (heart.Prediction, error)
}

type Recommender interface {
	Recommend(query string, n int) (knn.Result, error)
}

type Reports interface {
	UserReport(ctx context.Context, userID uint) (*analytics.UserReport, error)
	GlobalReport(ctx context.Context) (*analytics.GlobalReport, error)
}

type Options struct {
	CORSOrigins    []string
	MaxBodyBytes   int64
	DebugAdminKey  string
	DefaultRecs    int
	LoginRateLimit int
}

type Deps struct {
	Repo      Repository
	Health    HealthChecker
	Heart     HeartModel
	KNN       Recommender
	Sentiment *sentiment.Analyzer
	Reports   Reports
	Hasher    *auth.Hasher
	JWT       *auth.JWTManager
	Options   Options
}

type handler struct {
	Deps
}

// NewRouter wires middleware and every route.
func NewRouter(d Deps) (*gin.Engine, error) {
	if d.Repo == nil || d.Heart == nil || d.KNN == nil || d.Hasher == nil || d.JWT == nil || d.Reports == nil {
		return nil, fmt.Errorf("api: missing dependency")
	}
	if d.Sentiment == nil {
		d.Sentiment = sentiment.NewAnalyzer(nil)
	}
	if d.Options.DefaultRecs < 1 {
		d.Options.DefaultRecs = 5
	}
	if d.Options.MaxBodyBytes <= 0 {
		d.Options.MaxBodyBytes = 1 << 20
	}
	if len(d.Options.CORSOrigins) == 0 {
		d.Options.CORSOrigins = []string{"*"}
	}
	useJSONFieldNames()

	h := &handler{Deps: d}
	requireAuth := auth.RequireAuth(d.JWT)
	optionalAuth := auth.OptionalAuth(d.JWT)
	limiter := auth.NewRateLimiter(d.Options.LoginRateLimit, time.Minute).Middleware()

	router := gin.New()
	// Route on the escaped path so a "/" inside a disease name stays in :name.
	router.UseRawPath = true
	router.UnescapePathValues = true
	router.Use(
		logging.GinMiddleware(),
		gin.Recovery(),
		metrics.Middleware(),
		limitBodySize(d.Options.MaxBodyBytes),
		cors.New(cors.Config{
			AllowOrigins: d.Options.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", h.readyz)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.POST("/predict_heart", optionalAuth, h.predictHeart)
	router.GET("/recommend_knn/:name", optionalAuth, h.recommendKNN)

	router.POST("/signup", limiter, h.signup)
	router.POST("/login", limiter, h.login)
	router.GET("/profile", requireAuth, h.getProfile)
	router.PUT("/profile", requireAuth, h.updateProfile)

	router.POST("/activity", requireAuth, h.logActivity)
	router.GET("/activity", requireAuth, h.listActivity)

	router.POST("/feedback", requireAuth, h.submitFeedback)
	router.GET("/feedback/user", requireAuth, h.userFeedback)
	router.GET("/feedback/global", requireAuth, h.globalFeedback)

	router.GET("/analytics/user", requireAuth, h.userAnalytics)
	router.GET("/analytics/global", h.globalAnalytics)

	router.GET("/debug/users", h.debugUsers)

	return router, nil
}

func (h *handler) readyz(c *gin.Context) {
	if h.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.Health.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"db":     fmt.Sprintf("unhealthy: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok"})
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
