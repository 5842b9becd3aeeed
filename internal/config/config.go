package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MaxAttachments is the number of files a single turn may carry.
const MaxAttachments = 5

// Config holds application configuration values loaded from the environment.
type Config struct {
	Env           string
	Port          string
	DatabaseURL   string
	RunMigrations bool
	CORSOrigins   string

	JWTSecret     string
	JWTExpiration time.Duration

	LLMProvider    string
	LLMModel       string
	LLMAPIKey      string
	LLMBaseURL     string
	LLMMaxTokens   int
	LLMTemperature float64

	// Vertex AI location of the anthropic-vertex provider
	VertexProject  string
	VertexLocation string

	OpenAIAPIKey string
	TTSProvider  string
	TTSVoiceEN   string
	TTSVoiceRU   string

	GCSBucket      string
	GCPCredentials string // base64 encoded service account JSON

	HistoryLimit int
	TurnTimeout  time.Duration
}

// Load reads a .env file when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:            v.GetString("ENV"),
		Port:           v.GetString("PORT"),
		DatabaseURL:    v.GetString("DB_URL"),
		RunMigrations:  v.GetBool("RUN_MIGRATIONS"),
		CORSOrigins:    v.GetString("CORS_ORIGINS"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTExpiration:  v.GetDuration("JWT_EXPIRATION"),
		LLMProvider:    v.GetString("LLM_PROVIDER"),
		LLMModel:       v.GetString("LLM_MODEL"),
		LLMAPIKey:      v.GetString("LLM_API_KEY"),
		LLMBaseURL:     v.GetString("LLM_BASE_URL"),
		LLMMaxTokens:   v.GetInt("LLM_MAX_TOKENS"),
		LLMTemperature: v.GetFloat64("LLM_TEMPERATURE"),
		VertexProject:  v.GetString("GOOGLE_CLOUD_PROJECT_ID"),
		VertexLocation: v.GetString("GOOGLE_CLOUD_VERTEXAI_LOCATION"),
		OpenAIAPIKey:   v.GetString("OPENAI_API_KEY"),
		TTSProvider:    v.GetString("TTS_PROVIDER"),
		TTSVoiceEN:     v.GetString("TTS_VOICE_EN"),
		TTSVoiceRU:     v.GetString("TTS_VOICE_RU"),
		GCSBucket:      v.GetString("GCS_BUCKET"),
		GCPCredentials: v.GetString("GCP_SERVICE_ACCOUNT_CREDENTIALS"),
		HistoryLimit:   v.GetInt("HISTORY_LIMIT"),
		TurnTimeout:    v.GetDuration("TURN_TIMEOUT"),
	}

	// the LLM key falls back to the OpenAI key so a single key runs the default setup
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = cfg.OpenAIAPIKey
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "3000")
	v.SetDefault("RUN_MIGRATIONS", false)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("JWT_EXPIRATION", "30m")
	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_MAX_TOKENS", 1024)
	v.SetDefault("LLM_TEMPERATURE", 0.7)
	v.SetDefault("GOOGLE_CLOUD_VERTEXAI_LOCATION", "us-east5")
	v.SetDefault("TTS_PROVIDER", "openai")
	v.SetDefault("HISTORY_LIMIT", 50)
	v.SetDefault("TURN_TIMEOUT", "2m")
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DB_URL is not set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if c.TurnTimeout <= 0 {
		return fmt.Errorf("TURN_TIMEOUT must be positive, got %s", c.TurnTimeout)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("HISTORY_LIMIT must not be negative, got %d", c.HistoryLimit)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
