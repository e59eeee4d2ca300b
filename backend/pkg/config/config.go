package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Port      string
	Env       string
	AuthToken string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	// Qdrant
	QdrantHost string
	QdrantPort int

	// OpenAI-compatible LLM
	OpenAIBaseURL  string
	OpenAIAPIKey   string
	ModelID        string
	EmbeddingModel string
	EmbeddingDims  int

	// Pipeline
	TopKTemplates int
	MaxTextLength int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		AuthToken:      getEnv("AUTH_TOKEN", ""),
		Neo4jURI:       getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:      getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:  getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:  getEnv("NEO4J_DB", ""),
		QdrantHost:     getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:     getEnvInt("QDRANT_PORT", 6334),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		ModelID:        getEnv("MODEL_ID", "gpt-4o-mini"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDims:  getEnvInt("EMBEDDING_DIMS", 1536),
		TopKTemplates:  getEnvInt("TOP_K_TEMPLATES", 3),
		MaxTextLength:  getEnvInt("MAX_TEXT_LENGTH", 1000),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.Neo4jUser == "" {
		return fmt.Errorf("NEO4J_USER is required")
	}
	if c.Neo4jPassword == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required")
	}
	if c.QdrantHost == "" {
		return fmt.Errorf("QDRANT_HOST is required")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.AuthToken == "" {
		return fmt.Errorf("AUTH_TOKEN is required")
	}
	if c.TopKTemplates < 1 {
		return fmt.Errorf("TOP_K_TEMPLATES must be >= 1")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
