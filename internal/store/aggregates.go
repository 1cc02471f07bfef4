package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skufu/healthrec/internal/models"
)

// NoDrug is the drug recorded for heart predictions; it is left out of drug rankings.
const NoDrug = "N/A"

// Count is one bucket of a GROUP BY.
type Count struct {
	Label string `json:"label"`
	Total int64  `json:"count"`
}

// Every aggregate returns an empty result when its table does not exist yet.

func (s *Store) TopDiseases(ctx context.Context, userID *uint, limit int) ([]Count, error) {
	return s.countBy(ctx, &models.PredictionLog{}, "disease", limit, byUser(userID))
}

func (s *Store) TopDrugs(ctx context.Context, userID *uint, limit int) ([]Count, error) {
	return s.countBy(ctx, &models.PredictionLog{}, "drug", limit, byUser(userID), func(q *gorm.DB) *gorm.DB {
		return q.Where("drug <> ?", NoDrug)
	})
}

func (s *Store) SentimentCounts(ctx context.Context, userID *uint) ([]Count, error) {
	return s.countBy(ctx, &models.FeedbackLog{}, "sentiment", 0, byUser(userID))
}

func (s *Store) ActivityCounts(ctx context.Context, userID *uint) ([]Count, error) {
	return s.countBy(ctx, &models.ActivityLog{}, "action_type", 0, byUser(userID))
}

func (s *Store) RoleCounts(ctx context.Context) ([]Count, error) {
	return s.countBy(ctx, &models.User{}, "role", 0)
}

// FeedbackTexts returns the newest feedback bodies, at most limit when limit > 0.
func (s *Store) FeedbackTexts(ctx context.Context, limit int) ([]string, error) {
	db := s.db.WithContext(ctx)
	if !db.Migrator().HasTable(&models.FeedbackLog{}) {
		return []string{}, nil
	}

	var texts []string
	q := db.Model(&models.FeedbackLog{}).Order(newestFirst)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("text", &texts).Error; err != nil {
		return nil, fmt.Errorf("feedback texts: %w", err)
	}
	return texts, nil
}

// Totals counts rows per table, optionally restricted to one user.
type Totals struct {
	Users       int64 `json:"users"`
	Predictions int64 `json:"predictions"`
	Activities  int64 `json:"activities"`
	Feedback    int64 `json:"feedback"`
}

func (s *Store) Totals(ctx context.Context, userID *uint) (Totals, error) {
	var t Totals
	var err error
	if userID == nil {
		if t.Users, err = s.countRows(ctx, &models.User{}); err != nil {
			return t, err
		}
	}
	if t.Predictions, err = s.countRows(ctx, &models.PredictionLog{}, byUser(userID)); err != nil {
		return t, err
	}
	if t.Activities, err = s.countRows(ctx, &models.ActivityLog{}, byUser(userID)); err != nil {
		return t, err
	}
	if t.Feedback, err = s.countRows(ctx, &models.FeedbackLog{}, byUser(userID)); err != nil {
		return t, err
	}
	return t, nil
}

type scope = func(*gorm.DB) *gorm.DB

func byUser(userID *uint) scope {
	return func(q *gorm.DB) *gorm.DB {
		if userID == nil {
			return q
		}
		return q.Where("user_id = ?", *userID)
	}
}

func (s *Store) countBy(ctx context.Context, model any, column string, limit int, scopes ...scope) ([]Count, error) {
	db := s.db.WithContext(ctx)
	if !db.Migrator().HasTable(model) {
		return []Count{}, nil
	}

	counts := []Count{}
	q := db.Model(model).
		Scopes(scopes...).
		Select(column + " AS label, COUNT(*) AS total").
		Group(column).
		Order("total DESC, label ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count %s: %w", column, err)
	}
	return counts, nil
}

func (s *Store) countRows(ctx context.Context, model any, scopes ...scope) (int64, error) {
	db := s.db.WithContext(ctx)
	if !db.Migrator().HasTable(model) {
		return 0, nil
	}

	var n int64
	if err := db.Model(model).Scopes(scopes...).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}
