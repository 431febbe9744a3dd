package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the LabInsight server.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Upload     UploadConfig
	Pipeline   PipelineConfig
	Chat       ChatConfig
	LLM        LLMConfig
	Recaptcha  RecaptchaConfig
	RateLimit  RateLimitConfig
	Cleanup    CleanupConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type StorageConfig struct {
	// Path is the root for uploads/ and outputs/<job_id>/.
	Path string
	// Retention is how long a job and its files are kept before the sweeper
	// hard-deletes them.
	Retention time.Duration
}

type UploadConfig struct {
	MaxFileSize int64
	MaxPages    int
}

type PipelineConfig struct {
	// Workers bounds how many jobs run concurrently. A single job's stages
	// always run sequentially.
	Workers int
	// QueueSize is the buffered job queue capacity.
	QueueSize int
	// ConfidenceThreshold is the minimum classification confidence for a
	// document to be treated as a lab report.
	ConfidenceThreshold float64
	ExtractionTimeout   time.Duration
	ClassifyTimeout     time.Duration
	AnalysisTimeout     time.Duration
	TranslationTimeout  time.Duration
	RenderTimeout       time.Duration
}

type ChatConfig struct {
	Enabled bool
	// MessageLimit is the per-job ceiling on chat turns.
	MessageLimit     int
	MaxMessageLength int
	Timeout          time.Duration
}

type LLMConfig struct {
	Provider         string
	APIKey           string
	BaseURL          string
	AnalysisModel    string
	ValidationModel  string
	TranslationModel string
	ChatModel        string
}

type RecaptchaConfig struct {
	SecretKey string
	MinScore  float64
}

type RateLimitConfig struct {
	// SubmitPerHour is the per-IP ceiling on report submissions.
	SubmitPerHour int
}

type CleanupConfig struct {
	Interval time.Duration
}

var validProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"ollama":    true,
	"groq":      true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("LABINSIGHT_PORT", 8080),
			Env:  envString("LABINSIGHT_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Storage: StorageConfig{
			Path:      envString("STORAGE_PATH", "./storage"),
			Retention: envDuration("RETENTION_PERIOD", 48*time.Hour),
		},
		Upload: UploadConfig{
			MaxFileSize: envInt64("MAX_FILE_SIZE", 20*1024*1024),
			MaxPages:    envInt("MAX_PAGES", 30),
		},
		Pipeline: PipelineConfig{
			Workers:             envInt("PIPELINE_WORKERS", 4),
			QueueSize:           envInt("PIPELINE_QUEUE_SIZE", 64),
			ConfidenceThreshold: envFloat("VALIDATION_THRESHOLD", 0.8),
			ExtractionTimeout:   envDurationSecs("EXTRACTION_TIMEOUT_SECS", 120*time.Second),
			ClassifyTimeout:     envDurationSecs("CLASSIFY_TIMEOUT_SECS", 30*time.Second),
			AnalysisTimeout:     envDurationSecs("ANALYSIS_TIMEOUT_SECS", 120*time.Second),
			TranslationTimeout:  envDurationSecs("TRANSLATION_TIMEOUT_SECS", 90*time.Second),
			RenderTimeout:       envDurationSecs("RENDER_TIMEOUT_SECS", 60*time.Second),
		},
		Chat: ChatConfig{
			Enabled:          envBool("CHAT_ENABLED", true),
			MessageLimit:     envInt("CHAT_MESSAGE_LIMIT", 20),
			MaxMessageLength: envInt("CHAT_MAX_MESSAGE_LENGTH", 500),
			Timeout:          envDurationSecs("CHAT_TIMEOUT_SECS", 60*time.Second),
		},
		LLM: LLMConfig{
			Provider:         envString("LLM_PROVIDER", "openai"),
			APIKey:           os.Getenv("LLM_API_KEY"),
			BaseURL:          os.Getenv("LLM_BASE_URL"),
			AnalysisModel:    envString("LLM_ANALYSIS_MODEL", "gpt-4o"),
			ValidationModel:  envString("LLM_VALIDATION_MODEL", "gpt-4o-mini"),
			TranslationModel: envString("LLM_TRANSLATION_MODEL", "gpt-4o-mini"),
			ChatModel:        envString("LLM_CHAT_MODEL", "gpt-4o-mini"),
		},
		Recaptcha: RecaptchaConfig{
			SecretKey: os.Getenv("RECAPTCHA_SECRET_KEY"),
			MinScore:  envFloat("RECAPTCHA_MIN_SCORE", 0.5),
		},
		RateLimit: RateLimitConfig{
			SubmitPerHour: envInt("RATE_LIMIT_PER_IP", 10),
		},
		Cleanup: CleanupConfig{
			Interval: envDuration("CLEANUP_INTERVAL", time.Hour),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("LLM_PROVIDER must be one of openai, anthropic, ollama, groq; got %q", c.LLM.Provider)
	}
	if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required when LLM_PROVIDER is %s", c.LLM.Provider)
	}

	if c.Pipeline.ConfidenceThreshold < 0 || c.Pipeline.ConfidenceThreshold > 1 {
		return fmt.Errorf("VALIDATION_THRESHOLD must be between 0 and 1, got %v", c.Pipeline.ConfidenceThreshold)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be at least 1, got %d", c.Pipeline.Workers)
	}

	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", c.Upload.MaxFileSize)
	}
	if c.Upload.MaxPages <= 0 {
		return fmt.Errorf("MAX_PAGES must be positive, got %d", c.Upload.MaxPages)
	}

	if c.Chat.MessageLimit <= 0 {
		return fmt.Errorf("CHAT_MESSAGE_LIMIT must be positive, got %d", c.Chat.MessageLimit)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
