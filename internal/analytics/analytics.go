// Package analytics summarizes logged predictions, activity and feedback.
package analytics

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Skufu/healthrec/internal/store"
)

// TopN is how many diseases and drugs a report ranks.
const TopN = 10

// Source is the read side of the store used by reports.
type Source interface {
	TopDiseases(ctx context.Context, userID *uint, limit int) ([]store.Count, error)
	TopDrugs(ctx context.Context, userID *uint, limit int) ([]store.Count, error)
	SentimentCounts(ctx context.Context, userID *uint) ([]store.Count, error)
	ActivityCounts(ctx context.Context, userID *uint) ([]store.Count, error)
	RoleCounts(ctx context.Context) ([]store.Count, error)
	FeedbackTexts(ctx context.Context, limit int) ([]string, error)
	Totals(ctx context.Context, userID *uint) (store.Totals, error)
}

type UserReport struct {
	UserID      uint          `json:"user_id"`
	Predictions int64         `json:"prediction_count"`
	Totals      store.Totals  `json:"totals"`
	TopDiseases []store.Count `json:"top_diseases"`
	TopDrugs    []store.Count `json:"top_drugs"`
	Activity    []store.Count `json:"activity"`
	Sentiment   []store.Count `json:"sentiment"`
}

type GlobalReport struct {
	Totals      store.Totals  `json:"totals"`
	TopDiseases []store.Count `json:"top_diseases"`
	TopDrugs    []store.Count `json:"top_drugs"`
	Sentiment   []store.Count `json:"sentiment"`
	Roles       []store.Count `json:"roles"`
	Words       []WordCount   `json:"words"`
}

type Service struct {
	src Source

	// WordLimit caps the word cloud; FeedbackSample caps the texts it is built from.
	WordLimit      int
	FeedbackSample int
}

func NewService(src Source) *Service {
	return &Service{src: src, WordLimit: 100, FeedbackSample: 1000}
}

func (s *Service) UserReport(ctx context.Context, userID uint) (*UserReport, error) {
	id := &userID
	r := &UserReport{UserID: userID}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		r.Totals, err = s.src.Totals(ctx, id)
		return wrap("totals", err)
	})
	g.Go(func() (err error) {
		r.TopDiseases, err = s.src.TopDiseases(ctx, id, TopN)
		return wrap("top diseases", err)
	})
	g.Go(func() (err error) {
		r.TopDrugs, err = s.src.TopDrugs(ctx, id, TopN)
		return wrap("top drugs", err)
	})
	g.Go(func() (err error) {
		r.Activity, err = s.src.ActivityCounts(ctx, id)
		return wrap("activity counts", err)
	})
	g.Go(func() (err error) {
		r.Sentiment, err = s.src.SentimentCounts(ctx, id)
		return wrap("sentiment counts", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.Predictions = r.Totals.Predictions
	return r, nil
}

func (s *Service) GlobalReport(ctx context.Context) (*GlobalReport, error) {
	r := &GlobalReport{}
	var texts []string

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		r.Totals, err = s.src.Totals(ctx, nil)
		return wrap("totals", err)
	})
	g.Go(func() (err error) {
		r.TopDiseases, err = s.src.TopDiseases(ctx, nil, TopN)
		return wrap("top diseases", err)
	})
	g.Go(func() (err error) {
		r.TopDrugs, err = s.src.TopDrugs(ctx, nil, TopN)
		return wrap("top drugs", err)
	})
	g.Go(func() (err error) {
		r.Sentiment, err = s.src.SentimentCounts(ctx, nil)
		return wrap("sentiment counts", err)
	})
	g.Go(func() (err error) {
		r.Roles, err = s.src.RoleCounts(ctx)
		return wrap("role counts", err)
	})
	g.Go(func() (err error) {
		texts, err = s.src.FeedbackTexts(ctx, s.FeedbackSample)
		return wrap("feedback texts", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.Words = WordFrequencies(texts, s.WordLimit)
	return r, nil
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("analytics %s: %w", what, err)
}
