package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/healthrec/internal/analytics"
	"github.com/Skufu/healthrec/internal/api"
	"github.com/Skufu/healthrec/internal/heart"
	"github.com/Skufu/healthrec/internal/knn"
	"github.com/Skufu/healthrec/internal/logging"
	"github.com/Skufu/healthrec/internal/store"
)

// fakeAPI stands in for the prediction service.
type fakeAPI struct {
	activity       atomic.Int32
	activityErr    bool
	activityStatus int
	lastAuth    atomic.Value
	lastReqID   atomic.Value
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret123" {
			writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: api.CodeInvalidCredentials, Message: "Invalid username or password"})
			return
		}
		writeJSON(w, http.StatusOK, api.TokenResponse{AccessToken: "tok-" + req.Username, TokenType: "bearer", ExpiresIn: 1800})
	})
	mux.HandleFunc("POST /predict_heart", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth.Store(r.Header.Get("Authorization"))
		f.lastReqID.Store(r.Header.Get(logging.RequestIDHeader))
		var body map[string]float64
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body) != len(heart.FeatureNames) {
			writeJSON(w, http.StatusUnprocessableEntity, api.ErrorResponse{Error: api.CodeValidationFailed, Message: "thal is required"})
			return
		}
		id := uint(7)
		writeJSON(w, http.StatusOK, api.HeartResponse{Prediction: 1, Probabilities: [2]float64{0.2, 0.8}, Label: "YES", PredictionID: &id})
	})
	mux.HandleFunc("GET /recommend_knn/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") != "flu" {
			writeJSON(w, http.StatusNotFound, api.NotFoundResponse{
				Status:        "not_found",
				ErrorResponse: api.ErrorResponse{Error: api.CodeNotFound, Message: "No matching disease found for \"" + r.PathValue("name") + "\""},
			})
			return
		}
		recs := []knn.Recommendation{
			{Disease: "pneumonia", Drug: "Amoxicillin"},
			{Disease: "common cold", Drug: "Rest", Distance: 2},
		}
		if n, err := strconv.Atoi(r.URL.Query().Get("num_recs")); err == nil && n < len(recs) {
			recs = recs[:n]
		}
		writeJSON(w, http.StatusOK, api.RecommendResponse{Query: "flu", Matched: "flu", Recommendations: recs})
	})
	mux.HandleFunc("POST /feedback", func(w http.ResponseWriter, r *http.Request) {
		var req api.FeedbackRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusCreated, api.FeedbackResponse{ID: 1, Sentiment: "positive", Polarity: 0.6})
	})
	mux.HandleFunc("POST /activity", func(w http.ResponseWriter, r *http.Request) {
		f.activity.Add(1)
		if f.activityStatus != 0 {
			writeJSON(w, f.activityStatus, api.ErrorResponse{Error: "unauthorized", Message: "token expired"})
			return
		}
		if f.activityErr {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /analytics/global", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, analytics.GlobalReport{
			Totals:      store.Totals{Users: 3, Predictions: 9, Feedback: 2},
			TopDiseases: []store.Count{{Label: "flu", Total: 4}, {Label: "Heart Disease", Total: 3}},
			TopDrugs:    []store.Count{{Label: "Oseltamivir", Total: 4}},
			Sentiment:   []store.Count{{Label: "positive", Total: 2}},
			Roles:       []store.Count{{Label: "user", Total: 3}},
			Words:       []analytics.WordCount{{Word: "helpful", Count: 2}},
		})
	})
	return mux
}

func newTestDashboard(t *testing.T, o Options) (*gin.Engine, *fakeAPI) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	fake := &fakeAPI{}
	backend := httptest.NewServer(fake.handler())
	t.Cleanup(backend.Close)

	router, err := NewRouter(NewClient(backend.URL, time.Second), o)
	require.NoError(t, err)
	return router, fake
}

func postForm(router http.Handler, path string, form url.Values, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: tokenCookie, Value: cookie})
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func patientForm() url.Values {
	v := url.Values{}
	for _, f := range HeartFields {
		v.Set(f.Name, "1")
	}
	v.Set("age", "63")
	return v
}

func TestHeartFieldsFollowModelColumns(t *testing.T) {
	require.Len(t, HeartFields, len(heart.FeatureNames))
	for i, f := range HeartFields {
		assert.Equal(t, heart.FeatureNames[i], f.Name)
		assert.Less(t, f.Min, f.Max, f.Name)
	}
}

func TestIndexRendersForms(t *testing.T) {
	router, _ := newTestDashboard(t, Options{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `action="/login"`)
	assert.Contains(t, body, `name="max_heart_rate"`)
	assert.Contains(t, body, `action="/recommend"`)
	assert.Contains(t, body, "Log in to leave feedback.")
}

func TestLoginSetsCookie(t *testing.T) {
	router, fake := newTestDashboard(t, Options{SecureCookie: true})

	w := postForm(router, "/login", url.Values{"username": {"ann"}, "password": {"secret123"}}, "")
	assert.Equal(t, http.StatusSeeOther, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, tokenCookie, cookies[0].Name)
	assert.Equal(t, "tok-ann", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, 1800, cookies[0].MaxAge)
	assert.EqualValues(t, 1, fake.activity.Load())

	w = postForm(router, "/login", url.Values{"username": {"ann"}, "password": {"nope"}}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")
	assert.Empty(t, w.Result().Cookies())
}

func TestPredictForwardsToken(t *testing.T) {
	router, fake := newTestDashboard(t, Options{})

	w := postForm(router, "/predict", patientForm(), "tok-ann")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Contains(t, body, "<strong>YES</strong>")
	assert.Contains(t, body, "80.0%")
	assert.Contains(t, body, `name="prediction_id" value="7"`)
	assert.Equal(t, "Bearer tok-ann", fake.lastAuth.Load())
	assert.NotEmpty(t, fake.lastReqID.Load())
}

func TestPredictRejectsBlankFields(t *testing.T) {
	router, _ := newTestDashboard(t, Options{})
	form := patientForm()
	form.Set("thal", "")

	w := postForm(router, "/predict", form, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Thalassemia")
}

func TestRecommend(t *testing.T) {
	router, _ := newTestDashboard(t, Options{})

	w := postForm(router, "/recommend", url.Values{"disease": {"flu"}, "num_recs": {"1"}}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Amoxicillin")
	assert.NotContains(t, w.Body.String(), "common cold")

	w = postForm(router, "/recommend", url.Values{"disease": {"scurvy"}}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "No matching disease found")
}

func TestFeedbackNeedsLogin(t *testing.T) {
	router, _ := newTestDashboard(t, Options{})

	w := postForm(router, "/feedback", url.Values{"text": {"great"}}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postForm(router, "/feedback", url.Values{"text": {"great"}, "prediction_id": {"7"}}, "tok-ann")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<strong>positive</strong>")
}

func TestAnalyticsRendersCharts(t *testing.T) {
	router, _ := newTestDashboard(t, Options{EmbedURL: "https://bi.example.com/board"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analytics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	for _, id := range []string{"top_diseases", "top_drugs", "sentiment", "roles", "words"} {
		assert.Contains(t, body, `id="`+id+`"`)
	}
	assert.Contains(t, body, "echarts.min.js")
	assert.Contains(t, body, "echarts-wordcloud.min.js")
	assert.Contains(t, body, "https://bi.example.com/board")
	assert.Contains(t, body, "3 users")
}

func TestAnalyticsBackendDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	backend := httptest.NewServer(http.NotFoundHandler())
	backend.Close()

	router, err := NewRouter(NewClient(backend.URL, 200*time.Millisecond), Options{})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analytics", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "unavailable")
}

func TestBuildChartsSkipsEmptySections(t *testing.T) {
	snippets := buildCharts(&analytics.GlobalReport{
		TopDiseases: []store.Count{{Label: "flu", Total: 1}},
	})
	require.Len(t, snippets, 1)
	assert.Equal(t, "top_diseases", snippets[0].ID)
	assert.Contains(t, string(snippets[0].Script), "goecharts_top_diseases")

	assert.Empty(t, buildCharts(&analytics.GlobalReport{}))
}

func TestBuildChartsEscapesLabels(t *testing.T) {
	hostile := "</script><svg onload=alert(1)>"
	snippets := buildCharts(&analytics.GlobalReport{
		TopDiseases: []store.Count{{Label: hostile, Total: 2}},
		Roles:       []store.Count{{Label: hostile, Total: 1}},
		Words:       []analytics.WordCount{{Word: hostile, Count: 3}},
	})
	require.Len(t, snippets, 3)
	for _, s := range snippets {
		script := string(s.Script)
		assert.NotContains(t, script, "<svg", s.ID)
		assert.Equal(t, 1, strings.Count(script, "</script>"), s.ID)
		assert.Contains(t, script, "onload=alert(1)", s.ID)
	}
}

func TestClientAPIError(t *testing.T) {
	fake := &fakeAPI{}
	backend := httptest.NewServer(fake.handler())
	defer backend.Close()
	client := NewClient(backend.URL+"/", time.Second)

	_, err := client.Login(context.Background(), "ann", "bad")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, api.CodeInvalidCredentials, apiErr.Code)

	res, err := client.Recommend(context.Background(), "", "flu", 2)
	require.NoError(t, err)
	assert.Len(t, res.Recommendations, 2)
}

func TestLogActivitySwallowsFailures(t *testing.T) {
	fake := &fakeAPI{activityErr: true}
	backend := httptest.NewServer(fake.handler())
	defer backend.Close()
	client := NewClient(backend.URL, time.Second)

	for range 8 {
		client.LogActivity(context.Background(), "tok", "click", "")
	}
	// the breaker opens after five consecutive failures
	assert.EqualValues(t, 5, fake.activity.Load())

	client.LogActivity(context.Background(), "", "click", "")
	assert.EqualValues(t, 5, fake.activity.Load())
}

func TestLogActivityExpiredTokensKeepBreakerClosed(t *testing.T) {
	fake := &fakeAPI{activityStatus: http.StatusUnauthorized}
	backend := httptest.NewServer(fake.handler())
	defer backend.Close()
	client := NewClient(backend.URL, time.Second)

	for range 8 {
		client.LogActivity(context.Background(), "stale", "click", "")
	}
	assert.EqualValues(t, 8, fake.activity.Load())
	assert.Equal(t, gobreaker.StateClosed, client.activity.State())
}
