package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/healthrec/internal/store"
)

type mockSource struct {
	err       error
	gotUserID *uint
}

func (m *mockSource) TopDiseases(_ context.Context, userID *uint, _ int) ([]store.Count, error) {
	m.gotUserID = userID
	return []store.Count{{Label: "acne", Total: 3}}, nil
}

func (m *mockSource) TopDrugs(context.Context, *uint, int) ([]store.Count, error) {
	return []store.Count{{Label: "adapalene", Total: 3}}, nil
}

func (m *mockSource) SentimentCounts(context.Context, *uint) ([]store.Count, error) {
	return []store.Count{{Label: "positive", Total: 2}}, nil
}

func (m *mockSource) ActivityCounts(context.Context, *uint) ([]store.Count, error) {
	return []store.Count{{Label: "predict", Total: 1}}, m.err
}

func (m *mockSource) RoleCounts(context.Context) ([]store.Count, error) {
	return []store.Count{{Label: "user", Total: 4}}, nil
}

func (m *mockSource) FeedbackTexts(context.Context, int) ([]string, error) {
	return []string{"Great drug, great results", "The results were great"}, nil
}

func (m *mockSource) Totals(_ context.Context, userID *uint) (store.Totals, error) {
	if userID != nil {
		return store.Totals{Predictions: 3}, nil
	}
	return store.Totals{Users: 4, Predictions: 9}, nil
}

func TestUserReport(t *testing.T) {
	src := &mockSource{}
	r, err := NewService(src).UserReport(context.Background(), 7)
	require.NoError(t, err)

	require.NotNil(t, src.gotUserID)
	assert.Equal(t, uint(7), *src.gotUserID)
	assert.Equal(t, int64(3), r.Predictions)
	assert.Equal(t, "acne", r.TopDiseases[0].Label)
	assert.Equal(t, "predict", r.Activity[0].Label)
}

func TestUserReportPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewService(&mockSource{err: boom}).UserReport(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
}

func TestGlobalReport(t *testing.T) {
	r, err := NewService(&mockSource{}).GlobalReport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), r.Totals.Users)
	assert.Equal(t, []store.Count{{Label: "user", Total: 4}}, r.Roles)
	require.NotEmpty(t, r.Words)
	assert.Equal(t, WordCount{Word: "great", Count: 3}, r.Words[0])
}

func TestWordFrequencies(t *testing.T) {
	got := WordFrequencies([]string{
		"The doctor's advice was GOOD, good and helpful!",
		"ok it is good; helpful doctor",
	}, 3)

	assert.Equal(t, []WordCount{
		{Word: "good", Count: 3},
		{Word: "helpful", Count: 2},
		{Word: "advice", Count: 1},
	}, got)
}

func TestWordFrequenciesEmpty(t *testing.T) {
	assert.Empty(t, WordFrequencies(nil, 10))
	assert.Empty(t, WordFrequencies([]string{"a an to of"}, 10))
}
