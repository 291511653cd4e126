package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP
	Port       string `env:"PORT" envDefault:"8080"`
	GinMode    string `env:"GIN_MODE"`
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"http://localhost:5173"`

	// Database
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	DBLogLevel  string `env:"DB_LOG_LEVEL" envDefault:"error"`

	// Auth
	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	// Language completion (OpenAI-compatible)
	LLMBaseURL     string        `env:"LLM_BASE_URL"`
	LLMAPIKey      string        `env:"LLM_API_KEY"`
	LLMModel       string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	LLMTemperature float32       `env:"LLM_TEMPERATURE" envDefault:"0.2"`

	// Embeddings
	EmbeddingBaseURL string        `env:"EMBEDDING_BASE_URL" envDefault:"http://localhost:11434/v1"`
	EmbeddingAPIKey  string        `env:"EMBEDDING_API_KEY" envDefault:"none"`
	EmbeddingModel   string        `env:"EMBEDDING_MODEL" envDefault:"all-minilm"`
	EmbeddingTimeout time.Duration `env:"EMBEDDING_TIMEOUT" envDefault:"30s"`

	// Ingestion
	IngestWorkers int `env:"INGEST_WORKERS" envDefault:"4"`
	IngestQueue   int `env:"INGEST_QUEUE" envDefault:"256"`

	// Session memory
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"1800s"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"60s"`

	// Retrieval
	RetrievalTopK int `env:"RETRIEVAL_TOP_K" envDefault:"5"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFile  string `env:"LOG_FILE" envDefault:"logs/plogger.log"`
}

// Load reads .env (if present) and parses the environment into a Config.
// The returned flag reports whether a .env file was found.
func Load() (*Config, bool, error) {
	dotenv := godotenv.Load() == nil

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, dotenv, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, dotenv, err
	}
	return cfg, dotenv, nil
}

// Validate rejects values that would make the services misbehave at runtime.
func (c *Config) Validate() error {
	if c.IngestWorkers < 1 {
		return fmt.Errorf("INGEST_WORKERS must be at least 1, got %d", c.IngestWorkers)
	}
	if c.RetrievalTopK < 1 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be at least 1, got %d", c.RetrievalTopK)
	}
	if c.SessionTTL <= 0 || c.SessionSweepInterval <= 0 {
		return fmt.Errorf("SESSION_TTL and SESSION_SWEEP_INTERVAL must be positive")
	}
	return nil
}
