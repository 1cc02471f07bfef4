package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

var envKeys = map[string]string{
	"PORT":                "server.port",
	"GIN_MODE":            "server.gin_mode",
	"CORS_ORIGINS":        "server.cors_origins",
	"MAX_BODY_BYTES":      "server.max_body_bytes",
	"DATABASE_URL":        "database.url",
	"DB_MAX_CONNS":        "database.max_conns",
	"DB_MIN_CONNS":        "database.min_conns",
	"DB_CONNECT_TIMEOUT":  "database.connect_timeout",
	"JWT_SECRET":          "security.jwt_secret",
	"TOKEN_TTL":           "security.token_ttl",
	"DEBUG_ADMIN_KEY":     "security.debug_admin_key",
	"BCRYPT_COST":         "security.bcrypt_cost",
	"LOGIN_RATE_LIMIT":    "security.login_rate_limit",
	"MODEL_DIR":           "models.dir",
	"HEART_MODEL_PATH":    "models.heart_model_path",
	"KNN_DATA_PATH":       "models.knn_data_path",
	"KNN_SCALER_PATH":     "models.knn_scaler_path",
	"DEFAULT_RECS":        "models.default_recs",
	"LOG_LEVEL":           "logging.level",
	"LOG_FORMAT":          "logging.format",
	"DASHBOARD_PORT":      "dashboard.port",
	"API_URL":             "dashboard.api_url",
	"DASHBOARD_EMBED_URL": "dashboard.embed_url",
	"DASHBOARD_TIMEOUT":   "dashboard.request_timeout",
	"SECURE_COOKIE":       "dashboard.secure_cookie",
}

// Load reads .env (if present), applies defaults, an optional YAML file and
// the environment, and validates the API server settings.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDashboard is Load for the dashboard binary, which needs no secrets.
func LoadDashboard() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateDashboard(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Models.resolveModelPaths()
	return cfg, nil
}

// envTransform maps known environment variables to config keys. Unknown and
// empty variables are skipped so they never clobber defaults.
func envTransform(key, value string) (string, interface{}) {
	mapped, ok := envKeys[key]
	if !ok || strings.TrimSpace(value) == "" {
		return "", nil
	}
	if mapped == "server.cors_origins" {
		return mapped, splitList(value)
	}
	return mapped, value
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if fileExists(path) {
			return path
		}
	}
	return ""
}
