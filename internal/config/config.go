package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration of the service.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	OAuth   OAuthConfig   `yaml:"oauth"`
	Storage StorageConfig `yaml:"storage"`
	Charts  ChartsConfig  `yaml:"charts"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr"`
	Origin   string `yaml:"origin"`
	BasePath string `yaml:"base_path"`
}

type BackendConfig struct {
	BaseURL      string        `yaml:"base_url"`
	AIBaseURL    string        `yaml:"ai_base_url"`
	APIKey       string        `yaml:"api_key"`
	Timeout      time.Duration `yaml:"timeout"`
	RateLimit    float64       `yaml:"rate_limit"`
	Burst        int           `yaml:"burst"`
	DemoFallback bool          `yaml:"demo_fallback"`
}

type OAuthConfig struct {
	StateSecret    string         `yaml:"state_secret"`
	PollInterval   time.Duration  `yaml:"poll_interval"`
	Timeout        time.Duration  `yaml:"timeout"`
	FocusHeuristic bool           `yaml:"focus_heuristic"`
	Facebook       FacebookConfig `yaml:"facebook"`
}

type FacebookConfig struct {
	AppID       string   `yaml:"app_id"`
	AppSecret   string   `yaml:"app_secret"`
	RedirectURI string   `yaml:"redirect_uri"`
	GraphURL    string   `yaml:"graph_url"`
	DialogURL   string   `yaml:"dialog_url"`
	Scopes      []string `yaml:"scopes"`
}

type StorageConfig struct {
	Driver          string `yaml:"driver"`
	SQLitePath      string `yaml:"sqlite_path"`
	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`
	LayoutKey       string `yaml:"layout_key"`
}

type ChartsConfig struct {
	Theme      string        `yaml:"theme"`
	AssetsHost string        `yaml:"assets_host"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Production bool   `yaml:"production"`
}

// Default returns the configuration used when no file or environment is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:     ":8080",
			Origin:   "http://localhost:5173",
			BasePath: "/api",
		},
		Backend: BackendConfig{
			BaseURL:   "http://localhost:8000",
			AIBaseURL: "http://localhost:8000",
			Timeout:   10 * time.Second,
			RateLimit: 10,
			Burst:     5,
		},
		OAuth: OAuthConfig{
			PollInterval:   time.Second,
			Timeout:        2 * time.Minute,
			FocusHeuristic: true,
			Facebook: FacebookConfig{
				GraphURL:  "https://graph.facebook.com/v18.0",
				DialogURL: "https://www.facebook.com/v18.0/dialog/oauth",
				Scopes:    []string{"ads_read", "ads_management"},
			},
		},
		Storage: StorageConfig{
			Driver:     "memory",
			SQLitePath: "data/dashboardai.db",
			LayoutKey:  "dashboardai.layouts",
		},
		Charts: ChartsConfig{
			Theme:    "westeros",
			CacheTTL: 5 * time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads an optional YAML file, then .env, then the process environment.
// Later sources override earlier ones.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that cannot start the service.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.Origin == "" {
		errs = append(errs, errors.New("server.origin is required"))
	}
	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	}
	if c.OAuth.PollInterval <= 0 {
		errs = append(errs, errors.New("oauth.poll_interval must be positive"))
	}
	if c.OAuth.Timeout <= 0 {
		errs = append(errs, errors.New("oauth.timeout must be positive"))
	}
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for sqlite"))
		}
	case "mongo":
		if c.Storage.MongoURI == "" {
			errs = append(errs, errors.New("storage.mongo_uri is required for mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver))
	}
	if c.Charts.CacheTTL <= 0 {
		errs = append(errs, errors.New("charts.cache_ttl must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}

	str("DASHBOARDAI_ADDR", &cfg.Server.Addr)
	str("DASHBOARDAI_ORIGIN", &cfg.Server.Origin)
	str("DASHBOARDAI_BASE_PATH", &cfg.Server.BasePath)

	str("DASHBOARDAI_BACKEND_URL", &cfg.Backend.BaseURL)
	str("DASHBOARDAI_AI_URL", &cfg.Backend.AIBaseURL)
	str("DASHBOARDAI_BACKEND_API_KEY", &cfg.Backend.APIKey)
	dur("DASHBOARDAI_BACKEND_TIMEOUT", &cfg.Backend.Timeout)
	float("DASHBOARDAI_BACKEND_RATE_LIMIT", &cfg.Backend.RateLimit)
	boolean("DASHBOARDAI_DEMO_FALLBACK", &cfg.Backend.DemoFallback)

	str("DASHBOARDAI_STATE_SECRET", &cfg.OAuth.StateSecret)
	dur("DASHBOARDAI_OAUTH_POLL_INTERVAL", &cfg.OAuth.PollInterval)
	dur("DASHBOARDAI_OAUTH_TIMEOUT", &cfg.OAuth.Timeout)
	boolean("DASHBOARDAI_FOCUS_HEURISTIC", &cfg.OAuth.FocusHeuristic)
	str("FACEBOOK_APP_ID", &cfg.OAuth.Facebook.AppID)
	str("FACEBOOK_APP_SECRET", &cfg.OAuth.Facebook.AppSecret)
	str("FACEBOOK_REDIRECT_URI", &cfg.OAuth.Facebook.RedirectURI)
	if v, ok := lookup("FACEBOOK_SCOPES"); ok {
		cfg.OAuth.Facebook.Scopes = splitList(v)
	}

	str("DASHBOARDAI_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("DASHBOARDAI_SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("MONGO_URI", &cfg.Storage.MongoURI)
	str("DASHBOARDAI_MONGO_DATABASE", &cfg.Storage.MongoDatabase)

	str("DASHBOARDAI_CHART_THEME", &cfg.Charts.Theme)
	str("DASHBOARDAI_CHART_ASSETS_HOST", &cfg.Charts.AssetsHost)
	dur("DASHBOARDAI_CHART_CACHE_TTL", &cfg.Charts.CacheTTL)

	str("DASHBOARDAI_LOG_LEVEL", &cfg.Log.Level)
	boolean("DASHBOARDAI_LOG_PRODUCTION", &cfg.Log.Production)

	if len(errs) > 0 {
		return fmt.Errorf("config: environment: %w", errors.Join(errs...))
	}
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
