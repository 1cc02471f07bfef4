// Package config loads runtime settings for the API server and the dashboard.
//
// Values are layered: struct defaults, then an optional YAML file, then
// environment variables (a local .env file is read first when present).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Security  SecurityConfig  `koanf:"security"`
	Models    ModelConfig     `koanf:"models"`
	Logging   LoggingConfig   `koanf:"logging"`
	Dashboard DashboardConfig `koanf:"dashboard"`
}

type ServerConfig struct {
	Port         string   `koanf:"port"`
	GinMode      string   `koanf:"gin_mode"`
	CORSOrigins  []string `koanf:"cors_origins"`
	MaxBodyBytes int64    `koanf:"max_body_bytes"`
}

// DatabaseConfig.URL is either a postgres:// connection string or a path to
// a SQLite database file. The pool settings only apply to postgres.
type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	MaxConns       int32         `koanf:"max_conns"`
	MinConns       int32         `koanf:"min_conns"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// SecurityConfig.LoginRateLimit is the number of login and signup attempts
// allowed per client IP per minute; 0 disables limiting.
type SecurityConfig struct {
	JWTSecret      string        `koanf:"jwt_secret"`
	TokenTTL       time.Duration `koanf:"token_ttl"`
	DebugAdminKey  string        `koanf:"debug_admin_key"`
	BcryptCost     int           `koanf:"bcrypt_cost"`
	LoginRateLimit int           `koanf:"login_rate_limit"`
}

type ModelConfig struct {
	Dir            string `koanf:"dir"`
	HeartModelPath string `koanf:"heart_model_path"`
	KNNDataPath    string `koanf:"knn_data_path"`
	KNNScalerPath  string `koanf:"knn_scaler_path"`
	DefaultRecs    int    `koanf:"default_recs"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type DashboardConfig struct {
	Port           string        `koanf:"port"`
	APIURL         string        `koanf:"api_url"`
	EmbedURL       string        `koanf:"embed_url"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	SecureCookie   bool          `koanf:"secure_cookie"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			GinMode:      "release",
			CORSOrigins:  []string{"*"},
			MaxBodyBytes: 1 << 20,
		},
		Database: DatabaseConfig{
			URL:            "app.db",
			MaxConns:       10,
			ConnectTimeout: 5 * time.Second,
		},
		Security: SecurityConfig{
			TokenTTL:       30 * time.Minute,
			BcryptCost:     12,
			LoginRateLimit: 20,
		},
		Models: ModelConfig{
			DefaultRecs: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Dashboard: DashboardConfig{
			Port:           "8501",
			APIURL:         "http://localhost:8080",
			RequestTimeout: 2 * time.Second,
		},
	}
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if c.Database.MaxConns < 1 || c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS out of range: %d/%d", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Database.ConnectTimeout <= 0 {
		return fmt.Errorf("DB_CONNECT_TIMEOUT must be positive, got %s", c.Database.ConnectTimeout)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.Security.TokenTTL)
	}
	if c.Security.LoginRateLimit < 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT must not be negative, got %d", c.Security.LoginRateLimit)
	}
	if c.Models.DefaultRecs < 1 {
		return fmt.Errorf("DEFAULT_RECS must be at least 1, got %d", c.Models.DefaultRecs)
	}
	return nil
}

func (c *Config) ValidateDashboard() error {
	if c.Dashboard.Port == "" {
		return fmt.Errorf("DASHBOARD_PORT must not be empty")
	}
	if c.Dashboard.APIURL == "" {
		return fmt.Errorf("API_URL must not be empty")
	}
	if c.Dashboard.RequestTimeout <= 0 {
		return fmt.Errorf("DASHBOARD_TIMEOUT must be positive, got %s", c.Dashboard.RequestTimeout)
	}
	return nil
}

// resolveModelPaths fills artifact paths that were not set explicitly from
// the model directory, detecting a data/ directory near the working directory
// when none is configured.
func (m *ModelConfig) resolveModelPaths() {
	if m.Dir == "" {
		m.Dir = detectDataDir()
	}
	if m.HeartModelPath == "" {
		m.HeartModelPath = filepath.Join(m.Dir, "heart_model.json")
	}
	if m.KNNDataPath == "" {
		m.KNNDataPath = filepath.Join(m.Dir, "disease_drug_mapping.csv")
	}
}

func detectDataDir() string {
	startDir, err := os.Getwd()
	if err != nil {
		return "data"
	}

	candidates := []string{
		startDir,
		filepath.Dir(startDir),
		filepath.Dir(filepath.Dir(startDir)),
	}

	for _, dir := range candidates {
		dataDir := filepath.Join(dir, "data")
		if fileExists(filepath.Join(dataDir, "heart_model.json")) {
			return dataDir
		}
	}

	return filepath.Join(startDir, "data")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func splitList(value string) []string {
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
