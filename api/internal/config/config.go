package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type TrOCRConfig struct {
	Python  string `yaml:"python"`
	Script  string `yaml:"script"`
	Model   string `yaml:"model"`
	Device  string `yaml:"device"`
	Command string `yaml:"command"`
}

type HuggingFaceConfig struct {
	Token   string `yaml:"token"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type YandexConfig struct {
	OAuthToken string   `yaml:"oauth_token"`
	FolderID   string   `yaml:"folder_id"`
	Languages  []string `yaml:"languages"`
}

type TesseractConfig struct {
	Languages []string `yaml:"languages"`
}

type TelegramConfig struct {
	Token      string `yaml:"token"`
	WebhookURL string `yaml:"webhook_url"`
}

type Config struct {
	Addr     string `yaml:"addr"`
	PageAddr string `yaml:"page_addr"`

	LogFormat string `yaml:"log_format"`
	LogLevel  string `yaml:"log_level"`

	DefaultEngine      string        `yaml:"default_engine"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	MaxMultipartMemory int64         `yaml:"max_multipart_memory"`
	MaxSide            int           `yaml:"max_side"`

	TrOCR       TrOCRConfig       `yaml:"trocr"`
	HuggingFace HuggingFaceConfig `yaml:"huggingface"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Yandex      YandexConfig      `yaml:"yandex"`
	Tesseract   TesseractConfig   `yaml:"tesseract"`

	DatabaseURL string        `yaml:"database_url"`
	CacheMaxAge time.Duration `yaml:"cache_max_age"`

	Telegram TelegramConfig `yaml:"telegram"`
}

func defaults() *Config {
	return &Config{
		Addr:               ":5001",
		PageAddr:           ":8501",
		LogFormat:          "json",
		LogLevel:           "info",
		DefaultEngine:      "trocr",
		MaxMultipartMemory: 32 << 20,
	}
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE
// (default config.yaml, optional), then applies environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	path := getEnv("CONFIG_FILE", "config.yaml")
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && os.Getenv("CONFIG_FILE") == "":
	default:
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	// Prefer platform PORT env var
	if p := getEnv("PORT", ""); p != "" {
		cfg.Addr = ":" + p
	}
	cfg.Addr = getEnv("ADDR", cfg.Addr)
	cfg.PageAddr = getEnv("PAGE_ADDR", cfg.PageAddr)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultEngine = getEnv("DEFAULT_ENGINE", cfg.DefaultEngine)

	var err error
	if cfg.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return err
	}
	if cfg.CacheMaxAge, err = envDuration("CACHE_MAX_AGE", cfg.CacheMaxAge); err != nil {
		return err
	}
	if v := getEnv("MAX_MULTIPART_MEMORY", ""); v != "" {
		if cfg.MaxMultipartMemory, err = strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("MAX_MULTIPART_MEMORY: %w", err)
		}
	}
	if v := getEnv("MAX_SIDE", ""); v != "" {
		if cfg.MaxSide, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("MAX_SIDE: %w", err)
		}
	}

	cfg.TrOCR.Python = getEnv("TROCR_PYTHON", cfg.TrOCR.Python)
	cfg.TrOCR.Script = getEnv("TROCR_SCRIPT", cfg.TrOCR.Script)
	cfg.TrOCR.Model = getEnv("TROCR_MODEL", cfg.TrOCR.Model)
	cfg.TrOCR.Device = getEnv("TROCR_DEVICE", cfg.TrOCR.Device)
	cfg.TrOCR.Command = getEnv("TROCR_COMMAND", cfg.TrOCR.Command)

	cfg.HuggingFace.Token = getEnv("HF_TOKEN", cfg.HuggingFace.Token)
	cfg.HuggingFace.Model = getEnv("HF_MODEL", cfg.HuggingFace.Model)
	cfg.HuggingFace.BaseURL = getEnv("HF_BASE_URL", cfg.HuggingFace.BaseURL)

	cfg.Gemini.APIKey = getEnv("GEMINI_API_KEY", cfg.Gemini.APIKey)
	cfg.Gemini.Model = getEnv("GEMINI_MODEL", cfg.Gemini.Model)

	cfg.OpenAI.APIKey = getEnv("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.Model = getEnv("OPENAI_MODEL", cfg.OpenAI.Model)
	cfg.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)

	cfg.Yandex.OAuthToken = getEnv("YC_OAUTH_TOKEN", cfg.Yandex.OAuthToken)
	cfg.Yandex.FolderID = getEnv("YC_FOLDER_ID", cfg.Yandex.FolderID)
	if v := getEnv("YC_LANGUAGES", ""); v != "" {
		cfg.Yandex.Languages = splitList(v)
	}
	if v := getEnv("TESSERACT_LANGUAGES", ""); v != "" {
		cfg.Tesseract.Languages = splitList(v)
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = dsnFromPostgresEnv()
	}

	cfg.Telegram.Token = getEnv("TELEGRAM_BOT_TOKEN", cfg.Telegram.Token)
	cfg.Telegram.WebhookURL = getEnv("TELEGRAM_WEBHOOK_URL", cfg.Telegram.WebhookURL)
	return nil
}

// dsnFromPostgresEnv builds a DSN from POSTGRES_* / PG* vars. It returns ""
// unless POSTGRES_DB or PGHOST is set, which keeps the store disabled by
// default.
func dsnFromPostgresEnv() string {
	name := getEnv("POSTGRES_DB", "")
	host := getEnv("PGHOST", "")
	if name == "" && host == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "ocr"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     net.JoinHostPort(getEnv("PGHOST", "db"), getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "ocr"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	// голое число — секунды
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
