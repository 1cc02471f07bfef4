// Package dashboard is the server-rendered presentation layer. It talks to the
// API over HTTP and never touches the database or the models directly.
package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Skufu/healthrec/internal/analytics"
	"github.com/Skufu/healthrec/internal/api"
	"github.com/Skufu/healthrec/internal/logging"
)

// DefaultTimeout bounds every outbound call to the API.
const DefaultTimeout = 2 * time.Second

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Status)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Status, e.Message)
}

// Client calls the prediction API on behalf of dashboard users.
type Client struct {
	baseURL    string
	httpClient *http.Client
	activity   *gobreaker.CircuitBreaker[struct{}]
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		activity:   newActivityBreaker(),
	}
}

// newActivityBreaker opens after five straight failures and tries again
// after thirty seconds. Client errors such as an expired token belong to one
// session, so they never count against the shared breaker.
func newActivityBreaker() *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "activity-log",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status >= 400 && apiErr.Status < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
}

func (c *Client) Login(ctx context.Context, username, password string) (*api.TokenResponse, error) {
	var out api.TokenResponse
	body := api.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/login", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PredictHeart forwards the raw form values; the API owns validation.
func (c *Client) PredictHeart(ctx context.Context, token string, features map[string]float64) (*api.HeartResponse, error) {
	var out api.HeartResponse
	if err := c.do(ctx, http.MethodPost, "/predict_heart", token, features, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Recommend(ctx context.Context, token, disease string, n int) (*api.RecommendResponse, error) {
	path := "/recommend_knn/" + url.PathEscape(disease)
	if n > 0 {
		path += "?num_recs=" + strconv.Itoa(n)
	}
	var out api.RecommendResponse
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitFeedback(ctx context.Context, token string, req api.FeedbackRequest) (*api.FeedbackResponse, error) {
	var out api.FeedbackResponse
	if err := c.do(ctx, http.MethodPost, "/feedback", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GlobalAnalytics(ctx context.Context) (*analytics.GlobalReport, error) {
	var out analytics.GlobalReport
	if err := c.do(ctx, http.MethodGet, "/analytics/global", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LogActivity records a dashboard action. It never fails the caller: errors
// and open-breaker rejections are only logged.
func (c *Client) LogActivity(ctx context.Context, token, action, details string) {
	if token == "" {
		return
	}
	_, err := c.activity.Execute(func() (struct{}, error) {
		body := api.ActivityRequest{ActionType: action, Details: details}
		return struct{}{}, c.do(ctx, http.MethodPost, "/activity", token, body, nil)
	})
	if err != nil {
		ev := logging.Ctx(ctx).Warn().Err(err).Str("action", action)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			ev.Msg("activity log skipped, breaker open")
			return
		}
		ev.Msg("activity log failed")
	}
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := logging.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(logging.RequestIDHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope api.ErrorResponse
		if raw, rerr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); rerr == nil && json.Unmarshal(raw, &envelope) == nil {
			apiErr.Code, apiErr.Message = envelope.Error, envelope.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
