package dashboard

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/healthrec/internal/analytics"
	"github.com/Skufu/healthrec/internal/api"
	"github.com/Skufu/healthrec/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	tokenCookie       = "healthrec_token"
	defaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"
)

// Field is one numeric input of the heart form.
type Field struct {
	Name  string
	Label string
	Min   float64
	Max   float64
	Step  float64
}

// HeartFields mirrors the ranges the API enforces, in model column order.
var HeartFields = []Field{
	{"age", "Age", 20, 100, 1},
	{"sex", "Sex (0 female, 1 male)", 0, 1, 1},
	{"chest_pain", "Chest pain type", 0, 3, 1},
	{"blood_pressure", "Resting blood pressure", 80, 200, 1},
	{"cholestrol", "Cholesterol", 100, 600, 1},
	{"fbs", "Fasting blood sugar > 120", 0, 1, 1},
	{"restecg", "Resting ECG", 0, 2, 1},
	{"max_heart_rate", "Max heart rate", 60, 220, 1},
	{"exang", "Exercise induced angina", 0, 1, 1},
	{"oldpeak", "ST depression (oldpeak)", -2, 7, 0.1},
	{"slope", "ST slope", 0, 2, 1},
	{"major_vessels", "Major vessels", 0, 3, 1},
	{"thal", "Thalassemia", 0, 3, 1},
}

type Options struct {
	EmbedURL     string
	SecureCookie bool
	AssetsHost   string
}

// page is the data behind every template.
type page struct {
	Title    string
	LoggedIn bool
	Error    string
	Notice   string

	Fields       []Field
	Values       map[string]string
	Heart        *api.HeartResponse
	Recs         *api.RecommendResponse
	Feedback     *api.FeedbackResponse
	PredictionID string

	Report     *analytics.GlobalReport
	Charts     []Snippet
	EmbedURL   string
	AssetsHost string
}

type server struct {
	client *Client
	opts   Options
}

func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"percent": func(p float64) float64 { return p * 100 },
	}
	return template.New("dashboard").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// NewRouter builds the dashboard's gin engine.
func NewRouter(client *Client, o Options) (*gin.Engine, error) {
	if client == nil {
		return nil, errors.New("dashboard: nil client")
	}
	if o.AssetsHost == "" {
		o.AssetsHost = defaultAssetsHost
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &server{client: client, opts: o}
	router := gin.New()
	router.Use(logging.GinMiddleware(), gin.Recovery())
	router.SetHTMLTemplate(tmpl)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/", s.index)
	router.POST("/login", s.login)
	router.POST("/logout", s.logout)
	router.POST("/predict", s.predict)
	router.POST("/recommend", s.recommend)
	router.POST("/feedback", s.feedback)
	router.GET("/analytics", s.analytics)

	return router, nil
}

func (s *server) newPage(c *gin.Context, title string) *page {
	return &page{
		Title:      title,
		LoggedIn:   token(c) != "",
		Fields:     HeartFields,
		Values:     map[string]string{},
		AssetsHost: s.opts.AssetsHost,
	}
}

func token(c *gin.Context) string {
	v, err := c.Cookie(tokenCookie)
	if err != nil {
		return ""
	}
	return v
}

func (s *server) render(c *gin.Context, status int, name string, p *page) {
	c.HTML(status, name, p)
}

// fail renders the page with err shown. API answers keep their status;
// transport failures become 502.
func (s *server) fail(c *gin.Context, name string, p *page, err error) {
	status := http.StatusBadGateway
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		status = apiErr.Status
		p.Error = apiErr.Message
		if apiErr.Status == http.StatusUnauthorized && p.LoggedIn {
			s.clearToken(c)
			p.LoggedIn = false
		}
	}
	if p.Error == "" {
		p.Error = "The prediction service is unavailable. Try again shortly."
	}
	logging.Ctx(c.Request.Context()).Warn().Err(err).Int("status", status).Msg("dashboard call failed")
	s.render(c, status, name, p)
}

func (s *server) index(c *gin.Context) {
	s.render(c, http.StatusOK, "index.html", s.newPage(c, "Predict"))
}

func (s *server) login(c *gin.Context) {
	p := s.newPage(c, "Predict")
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	if username == "" || password == "" {
		p.Error = "Username and password are required."
		s.render(c, http.StatusBadRequest, "index.html", p)
		return
	}

	tok, err := s.client.Login(c.Request.Context(), username, password)
	if err != nil {
		s.fail(c, "index.html", p, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, tok.AccessToken, int(tok.ExpiresIn), "/", "", s.opts.SecureCookie, true)
	s.client.LogActivity(c.Request.Context(), tok.AccessToken, "dashboard_login", "")
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *server) logout(c *gin.Context) {
	s.clearToken(c)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *server) clearToken(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, "", -1, "/", "", s.opts.SecureCookie, true)
}

func (s *server) predict(c *gin.Context) {
	p := s.newPage(c, "Predict")
	features := make(map[string]float64, len(HeartFields))
	var missing []string
	for _, f := range HeartFields {
		raw := strings.TrimSpace(c.PostForm(f.Name))
		p.Values[f.Name] = raw
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			missing = append(missing, f.Label)
			continue
		}
		features[f.Name] = v
	}
	if len(missing) > 0 {
		p.Error = "Enter a number for: " + strings.Join(missing, ", ")
		s.render(c, http.StatusBadRequest, "index.html", p)
		return
	}

	tok := token(c)
	res, err := s.client.PredictHeart(c.Request.Context(), tok, features)
	if err != nil {
		s.fail(c, "index.html", p, err)
		return
	}
	p.Heart = res
	if res.PredictionID != nil {
		p.PredictionID = strconv.FormatUint(uint64(*res.PredictionID), 10)
	}
	s.client.LogActivity(c.Request.Context(), tok, "heart_prediction", res.Label)
	s.render(c, http.StatusOK, "index.html", p)
}

func (s *server) recommend(c *gin.Context) {
	p := s.newPage(c, "Predict")
	disease := strings.TrimSpace(c.PostForm("disease"))
	p.Values["disease"] = disease
	p.Values["num_recs"] = c.PostForm("num_recs")
	if disease == "" {
		p.Error = "Enter a disease name."
		s.render(c, http.StatusBadRequest, "index.html", p)
		return
	}

	n := 0
	if raw := strings.TrimSpace(c.PostForm("num_recs")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			p.Error = "Recommendations must be a whole number."
			s.render(c, http.StatusBadRequest, "index.html", p)
			return
		}
		n = v
	}

	tok := token(c)
	res, err := s.client.Recommend(c.Request.Context(), tok, disease, n)
	if err != nil {
		s.fail(c, "index.html", p, err)
		return
	}
	p.Recs = res
	s.client.LogActivity(c.Request.Context(), tok, "drug_recommendation", res.Matched)
	s.render(c, http.StatusOK, "index.html", p)
}

func (s *server) feedback(c *gin.Context) {
	p := s.newPage(c, "Predict")
	tok := token(c)
	if tok == "" {
		p.Error = "Log in to leave feedback."
		s.render(c, http.StatusUnauthorized, "index.html", p)
		return
	}

	text := strings.TrimSpace(c.PostForm("text"))
	if text == "" {
		p.Error = "Feedback must not be empty."
		s.render(c, http.StatusBadRequest, "index.html", p)
		return
	}

	req := api.FeedbackRequest{Text: text}
	if raw := c.PostForm("prediction_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			pid := uint(id)
			req.PredictionID = &pid
		}
	}

	res, err := s.client.SubmitFeedback(c.Request.Context(), tok, req)
	if err != nil {
		s.fail(c, "index.html", p, err)
		return
	}
	p.Feedback = res
	s.render(c, http.StatusOK, "index.html", p)
}

func (s *server) analytics(c *gin.Context) {
	p := s.newPage(c, "Analytics")
	p.EmbedURL = s.opts.EmbedURL

	report, err := s.client.GlobalAnalytics(c.Request.Context())
	if err != nil {
		s.fail(c, "analytics.html", p, err)
		return
	}
	p.Report = report
	p.Charts = buildCharts(report)
	s.client.LogActivity(c.Request.Context(), token(c), "view_analytics", "")
	s.render(c, http.StatusOK, "analytics.html", p)
}
