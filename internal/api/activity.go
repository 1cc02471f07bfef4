package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/healthrec/internal/auth"
	"github.com/Skufu/healthrec/internal/metrics"
	"github.com/Skufu/healthrec/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type ActivityRequest struct {
	ActionType string `json:"action_type" binding:"required,max=64"`
	Details    string `json:"details" binding:"max=4000"`
}

type FeedbackRequest struct {
	PredictionID *uint  `json:"prediction_id"`
	Text         string `json:"text" binding:"required,max=4000"`
}

type FeedbackResponse struct {
	ID        uint    `json:"id"`
	Sentiment string  `json:"sentiment"`
	Polarity  float64 `json:"polarity"`
}

func (h *handler) logActivity(c *gin.Context) {
	var req ActivityRequest
	if !bindJSON(c, &req) {
		return
	}

	claims, _ := auth.ClaimsFrom(c)
	row := &models.ActivityLog{UserID: claims.UserID, ActionType: req.ActionType, Details: req.Details}
	if err := h.Repo.CreateActivity(c.Request.Context(), row); err != nil {
		respondInternal(c, err, "create activity")
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (h *handler) listActivity(c *gin.Context) {
	limit, ok := listLimit(c)
	if !ok {
		return
	}
	claims, _ := auth.ClaimsFrom(c)
	rows, err := h.Repo.ListActivity(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		respondInternal(c, err, "list activity")
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *handler) submitFeedback(c *gin.Context) {
	var req FeedbackRequest
	if !bindJSON(c, &req) {
		return
	}

	result := h.Sentiment.Analyze(req.Text)
	claims, _ := auth.ClaimsFrom(c)
	row := &models.FeedbackLog{
		UserID:       claims.UserID,
		PredictionID: req.PredictionID,
		Text:         req.Text,
		Sentiment:    string(result.Label),
		Polarity:     result.Polarity,
	}
	if err := h.Repo.CreateFeedback(c.Request.Context(), row); err != nil {
		respondInternal(c, err, "create feedback")
		return
	}
	metrics.RecordFeedback(row.Sentiment)

	c.JSON(http.StatusCreated, FeedbackResponse{ID: row.ID, Sentiment: row.Sentiment, Polarity: row.Polarity})
}

func (h *handler) userFeedback(c *gin.Context) {
	limit, ok := listLimit(c)
	if !ok {
		return
	}
	claims, _ := auth.ClaimsFrom(c)
	rows, err := h.Repo.ListFeedbackByUser(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		respondInternal(c, err, "list user feedback")
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *handler) globalFeedback(c *gin.Context) {
	limit, ok := listLimit(c)
	if !ok {
		return
	}
	rows, err := h.Repo.ListFeedback(c.Request.Context(), limit)
	if err != nil {
		respondInternal(c, err, "list feedback")
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *handler) userAnalytics(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	report, err := h.Reports.UserReport(c.Request.Context(), claims.UserID)
	if err != nil {
		respondInternal(c, err, "user analytics")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handler) globalAnalytics(c *gin.Context) {
	report, err := h.Reports.GlobalReport(c.Request.Context())
	if err != nil {
		respondInternal(c, err, "global analytics")
		return
	}
	c.JSON(http.StatusOK, report)
}

func listLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxListLimit {
		respondValidation(c, []FieldError{{
			Field:   "limit",
			Tag:     "range",
			Message: fmt.Sprintf("limit must be an integer between 1 and %d", maxListLimit),
		}})
		return 0, false
	}
	return n, true
}
