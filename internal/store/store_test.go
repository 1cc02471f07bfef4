package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/healthrec/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(s.Close)
	return s
}

func TestCreateUserRejectsDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &models.User{Username: "alice", HashedPassword: "x"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotZero(t, u.ID)
	assert.Equal(t, models.RoleUser, u.Role)

	err := s.CreateUser(ctx, &models.User{Username: "alice", HashedPassword: "y"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestUserLookupNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.UserByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfileOnlyTouchesGivenFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &models.User{Username: "bob", HashedPassword: "x", Gender: "male"}
	require.NoError(t, s.CreateUser(ctx, u))

	age := 41
	updated, err := s.UpdateProfile(ctx, u.ID, ProfileUpdate{Age: &age})
	require.NoError(t, err)
	require.NotNil(t, updated.Age)
	assert.Equal(t, 41, *updated.Age)
	assert.Equal(t, "male", updated.Gender)

	_, err = s.UpdateProfile(ctx, 999, ProfileUpdate{Age: &age})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAggregates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := &models.User{Username: "alice", HashedPassword: "x"}
	admin := &models.User{Username: "root", HashedPassword: "x", Role: models.RoleAdmin}
	require.NoError(t, s.CreateUser(ctx, alice))
	require.NoError(t, s.CreateUser(ctx, admin))

	require.NoError(t, s.CreatePredictionLogs(ctx, []models.PredictionLog{
		{UserID: &alice.ID, Disease: "acne", Drug: "adapalene"},
		{UserID: &alice.ID, Disease: "acne", Drug: "tretinoin"},
		{Disease: "Heart Disease", Drug: NoDrug},
		{UserID: &admin.ID, Disease: "gerd", Drug: "adapalene"},
	}))
	require.NoError(t, s.CreateFeedback(ctx, &models.FeedbackLog{UserID: alice.ID, Text: "great", Sentiment: "positive", Polarity: 0.6}))
	require.NoError(t, s.CreateActivity(ctx, &models.ActivityLog{UserID: alice.ID, ActionType: "view", Details: "home"}))

	diseases, err := s.TopDiseases(ctx, nil, 10)
	require.NoError(t, err)
	require.NotEmpty(t, diseases)
	assert.Equal(t, Count{Label: "acne", Total: 2}, diseases[0])

	drugs, err := s.TopDrugs(ctx, nil, 10)
	require.NoError(t, err)
	for _, d := range drugs {
		assert.NotEqual(t, NoDrug, d.Label)
	}
	assert.Equal(t, Count{Label: "adapalene", Total: 2}, drugs[0])

	mine, err := s.TopDiseases(ctx, &alice.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, []Count{{Label: "acne", Total: 2}}, mine)

	roles, err := s.RoleCounts(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Count{{Label: "admin", Total: 1}, {Label: "user", Total: 1}}, roles)

	totals, err := s.Totals(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, Totals{Users: 2, Predictions: 4, Activities: 1, Feedback: 1}, totals)

	texts, err := s.FeedbackTexts(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"great"}, texts)
}

func TestAggregatesTolerateMissingTables(t *testing.T) {
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	ctx := context.Background()

	diseases, err := s.TopDiseases(ctx, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, diseases)

	sentiments, err := s.SentimentCounts(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, sentiments)

	totals, err := s.Totals(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, Totals{}, totals)
}

func TestListsAreNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, action := range []string{"first", "second", "third"} {
		require.NoError(t, s.CreateActivity(ctx, &models.ActivityLog{UserID: 1, ActionType: action}))
	}
	require.NoError(t, s.CreateActivity(ctx, &models.ActivityLog{UserID: 2, ActionType: "other"}))

	rows, err := s.ListActivity(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "third", rows[0].ActionType)
	assert.Equal(t, "second", rows[1].ActionType)
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestPoolConfigAppliesOptions(t *testing.T) {
	url := "postgres://u:p@localhost:5432/db?sslmode=disable"

	cfg, err := poolConfig(url, Options{MaxConns: 7, MinConns: 2, ConnectTimeout: 3 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, int32(7), cfg.MaxConns)
	assert.Equal(t, int32(2), cfg.MinConns)
	assert.Equal(t, 3*time.Second, cfg.ConnConfig.ConnectTimeout)

	cfg, err = poolConfig(url, Options{})
	require.NoError(t, err)
	assert.Equal(t, defaultConnectTimeout, cfg.ConnConfig.ConnectTimeout)
	assert.Equal(t, int32(0), cfg.MinConns)

	_, err = poolConfig("postgres://%zz", Options{})
	assert.Error(t, err)
}
