package store

import (
	"context"
	"fmt"

	"github.com/Skufu/healthrec/internal/models"
)

const newestFirst = "created_at DESC, id DESC"

// CreatePredictionLogs inserts logs in one statement.
func (s *Store) CreatePredictionLogs(ctx context.Context, logs []models.PredictionLog) error {
	if len(logs) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&logs).Error; err != nil {
		return fmt.Errorf("create prediction logs: %w", err)
	}
	return nil
}

func (s *Store) CreatePredictionLog(ctx context.Context, log *models.PredictionLog) error {
	if err := s.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("create prediction log: %w", err)
	}
	return nil
}

func (s *Store) CreateActivity(ctx context.Context, a *models.ActivityLog) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

func (s *Store) ListActivity(ctx context.Context, userID uint, limit int) ([]models.ActivityLog, error) {
	var rows []models.ActivityLog
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order(newestFirst)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return rows, nil
}

func (s *Store) CreateFeedback(ctx context.Context, f *models.FeedbackLog) error {
	if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

func (s *Store) ListFeedbackByUser(ctx context.Context, userID uint, limit int) ([]models.FeedbackLog, error) {
	var rows []models.FeedbackLog
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order(newestFirst)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list feedback for user %d: %w", userID, err)
	}
	return rows, nil
}

func (s *Store) ListFeedback(ctx context.Context, limit int) ([]models.FeedbackLog, error) {
	var rows []models.FeedbackLog
	q := s.db.WithContext(ctx).Order(newestFirst)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return rows, nil
}
