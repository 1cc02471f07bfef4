package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/healthrec/internal/auth"
	"github.com/Skufu/healthrec/internal/heart"
	"github.com/Skufu/healthrec/internal/knn"
	"github.com/Skufu/healthrec/internal/logging"
	"github.com/Skufu/healthrec/internal/metrics"
	"github.com/Skufu/healthrec/internal/models"
)

// MaxRecs bounds num_recs on the recommendation endpoint.
const MaxRecs = 50

type HeartResponse struct {
	Prediction    int        `json:"prediction"`
	Probabilities [2]float64 `json:"probabilities"`
	Label         string     `json:"label"`
	PredictionID  *uint      `json:"prediction_id,omitempty"`
}

type RecommendResponse struct {
	Query           string               `json:"query"`
	Matched         string               `json:"matched"`
	Recommendations []knn.Recommendation `json:"recommendations"`
}

// NotFoundResponse keeps the "status" field older clients look for.
type NotFoundResponse struct {
	Status string `json:"status"`
	ErrorResponse
}

func (h *handler) predictHeart(c *gin.Context) {
	var features heart.Features
	if !bindJSON(c, &features) {
		metrics.RecordPrediction(metrics.KindHeart, metrics.OutcomeInvalid)
		return
	}

	pred, err := h.Heart.Predict(features)
	if err != nil {
		metrics.RecordPrediction(metrics.KindHeart, metrics.OutcomeError)
		respondInternal(c, err, "heart prediction failed")
		return
	}
	metrics.RecordPrediction(metrics.KindHeart, metrics.OutcomeOK)

	resp := HeartResponse{
		Prediction:    pred.Label,
		Probabilities: pred.Probabilities,
		Label:         pred.Text(),
	}

	entry := &models.PredictionLog{
		UserID:  auth.UserID(c),
		Disease: heart.DiseaseLabel,
		Drug:    heart.NoDrug,
	}
	if err := h.Repo.CreatePredictionLog(c.Request.Context(), entry); err != nil {
		logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("could not record heart prediction")
	} else {
		resp.PredictionID = &entry.ID
	}

	c.JSON(http.StatusOK, resp)
}

func (h *handler) recommendKNN(c *gin.Context) {
	name := c.Param("name")

	n := h.Options.DefaultRecs
	if raw := c.Query("num_recs"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > MaxRecs {
			metrics.RecordPrediction(metrics.KindKNN, metrics.OutcomeInvalid)
			respondValidation(c, []FieldError{{
				Field:   "num_recs",
				Tag:     "range",
				Message: fmt.Sprintf("num_recs must be an integer between 1 and %d", MaxRecs),
			}})
			return
		}
		n = v
	}

	res, err := h.KNN.Recommend(name, n)
	switch {
	case errors.Is(err, knn.ErrEmptyQuery):
		metrics.RecordPrediction(metrics.KindKNN, metrics.OutcomeInvalid)
		respondError(c, http.StatusBadRequest, CodeInvalidQuery, "disease name must not be empty")
		return
	case errors.Is(err, knn.ErrNoMatch):
		metrics.RecordPrediction(metrics.KindKNN, metrics.OutcomeNotFound)
		c.AbortWithStatusJSON(http.StatusNotFound, NotFoundResponse{
			Status: "not_found",
			ErrorResponse: ErrorResponse{
				Error:   CodeNotFound,
				Message: fmt.Sprintf("No matching disease found for %q", name),
			},
		})
		return
	case err != nil:
		metrics.RecordPrediction(metrics.KindKNN, metrics.OutcomeError)
		respondInternal(c, err, "knn recommendation failed")
		return
	}
	metrics.RecordPrediction(metrics.KindKNN, metrics.OutcomeOK)

	if len(res.Recommendations) > 0 {
		userID := auth.UserID(c)
		logs := make([]models.PredictionLog, len(res.Recommendations))
		for i, rec := range res.Recommendations {
			logs[i] = models.PredictionLog{UserID: userID, Disease: rec.Disease, Drug: rec.Drug}
		}
		if err := h.Repo.CreatePredictionLogs(c.Request.Context(), logs); err != nil {
			logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("could not record recommendations")
		}
	}

	c.JSON(http.StatusOK, RecommendResponse{
		Query:           res.Query,
		Matched:         res.Matched,
		Recommendations: res.Recommendations,
	})
}
