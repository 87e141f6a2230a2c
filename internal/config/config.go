package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	LogLevel string
	APIToken string

	Backend string

	AzureAPIKey     string
	AzureEndpoint   string
	AzureDeployment string
	AzureAPIVersion string

	GeminiAPIKey string
	GeminiModel  string

	Retries           int
	ChunkWorkers      int
	ConcurrentModules bool
	CacheSize         int

	DatabaseURL     string
	NatsURL         string
	NatsToken       string
	SlackWebhookURL string
	GitBin          string

	Artifact ArtifactConfig
}

type ArtifactConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Enabled reports whether an object store is configured at all.
func (a ArtifactConfig) Enabled() bool { return a.Endpoint != "" }

func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:     envInt("PORT", 8080),
		LogLevel: envStr("LOG_LEVEL", "info"),
		APIToken: envStr("API_TOKEN", ""),

		Backend: envStr("MODEL_BACKEND", "azure"),

		AzureAPIKey:     envStr("AZURE_OPENAI_API_KEY", ""),
		AzureEndpoint:   envStr("AZURE_OPENAI_ENDPOINT", ""),
		AzureDeployment: envStr("AZURE_OPENAI_DEPLOYMENT_NAME", ""),
		AzureAPIVersion: envStr("AZURE_OPENAI_API_VERSION", "2024-08-01-preview"),

		GeminiAPIKey: envStr("GEMINI_API_KEY", ""),
		GeminiModel:  envStr("GEMINI_MODEL", "gemini-2.0-flash"),

		Retries:           envInt("CONVERT_RETRIES", 3),
		ChunkWorkers:      envInt("CONVERT_CHUNK_WORKERS", 4),
		ConcurrentModules: envBool("CONVERT_CONCURRENT_MODULES", false),
		CacheSize:         envInt("CONVERT_CACHE_SIZE", 1024),

		DatabaseURL:     envStr("DATABASE_URL", ""),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		SlackWebhookURL: envStr("SLACK_WEBHOOK_URL", ""),
		GitBin:          envStr("GIT_BIN", "git"),

		Artifact: ArtifactConfig{
			Endpoint:  envStr("ARTIFACT_ENDPOINT", ""),
			AccessKey: envStr("ARTIFACT_ACCESS_KEY", ""),
			SecretKey: envStr("ARTIFACT_SECRET_KEY", ""),
			Bucket:    envStr("ARTIFACT_BUCKET", "vb6-conversions"),
			Region:    envStr("ARTIFACT_REGION", "us-east-1"),
			UseSSL:    envBool("ARTIFACT_USE_SSL", false),
		},
	}
}

// Validate fails fast when the selected model backend is missing its
// credentials. Optional integrations are allowed to stay unconfigured.
func (c Config) Validate() error {
	switch c.Backend {
	case "azure":
		if c.AzureAPIKey == "" || c.AzureEndpoint == "" || c.AzureDeployment == "" {
			return fmt.Errorf("azure backend requires AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_DEPLOYMENT_NAME")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("gemini backend requires GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown MODEL_BACKEND %q", c.Backend)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
