// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	AWS         AWSConfig
	Chain       ChainConfig
	IPFS        IPFSConfig
	Classifier  ClassifierConfig
	Dedup       DedupConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	ReadTimeout    int
	WriteTimeout   int
	IdleTimeout    int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	CloudFrontURL   string
}

type ChainConfig struct {
	Network         string
	RPCURL          string
	ContractAddress string
	DemoMode        bool
	RPCTimeout      int // in seconds
}

type IPFSConfig struct {
	PinataAPIKey       string
	PinataSecretAPIKey string
	NFTStorageAPIKey   string
	Web3StorageAPIKey  string
}

type ClassifierConfig struct {
	GeminiAPIKey string
	OpenAIAPIKey string
	GroqAPIKey   string
	Enabled      bool
}

type DedupConfig struct {
	PerceptualThreshold int     // max Hamming distance still considered a duplicate
	EmbeddingThreshold  float64 // min cosine similarity still considered a duplicate
	EmbeddingURL        string  // HTTP feature extractor; empty = local extractor
	MaxUploadBytes      int64
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Host:           getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:    getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:   getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:    getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "art_drm"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "art-drm-uploads"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
		},
		Chain: ChainConfig{
			Network:         getEnv("CHAIN_NETWORK", "sepolia"),
			RPCURL:          getEnv("CHAIN_RPC_URL", ""),
			ContractAddress: getEnv("CHAIN_CONTRACT_ADDRESS", ""),
			DemoMode:        getEnvAsBool("CHAIN_DEMO_MODE", false),
			RPCTimeout:      getEnvAsInt("CHAIN_RPC_TIMEOUT", 60),
		},
		IPFS: IPFSConfig{
			PinataAPIKey:       getEnv("PINATA_API_KEY", ""),
			PinataSecretAPIKey: getEnv("PINATA_SECRET_API_KEY", ""),
			NFTStorageAPIKey:   getEnv("NFT_STORAGE_API_KEY", ""),
			Web3StorageAPIKey:  getEnv("WEB3_STORAGE_API_KEY", ""),
		},
		Classifier: ClassifierConfig{
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
			GroqAPIKey:   getEnv("GROQ_API_KEY", ""),
			Enabled:      getEnvAsBool("AI_DETECTION_ENABLED", true),
		},
		Dedup: DedupConfig{
			PerceptualThreshold: getEnvAsInt("DEDUP_PHASH_THRESHOLD", 5),
			EmbeddingThreshold:  getEnvAsFloat("DEDUP_EMBEDDING_THRESHOLD", 0.9),
			EmbeddingURL:        getEnv("EMBEDDING_SERVICE_URL", ""),
			MaxUploadBytes:      int64(getEnvAsInt("MAX_UPLOAD_MB", 10)) * 1024 * 1024,
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if !c.Chain.DemoMode && c.Chain.RPCURL == "" {
		return fmt.Errorf("CHAIN_RPC_URL is required unless CHAIN_DEMO_MODE is enabled")
	}

	if !c.Chain.DemoMode && c.Chain.ContractAddress == "" {
		return fmt.Errorf("CHAIN_CONTRACT_ADDRESS is required unless CHAIN_DEMO_MODE is enabled")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}
