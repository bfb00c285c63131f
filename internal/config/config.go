package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Storage   StorageConfig
	Vision    VisionConfig
	RateLimit RateLimitConfig
	Bootstrap BootstrapConfig
}

type StorageConfig struct {
	Provider       string
	Bucket         string
	PublicBaseURL  string
	UploadExpiry   time.Duration
	MaxObjectBytes int64

	R2AccountID     string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Region          string

	GCSCredentialsJSON string
	GCSSignerEmail     string
	GCSSignerKey       string
}

type VisionConfig struct {
	Provider        string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PresignOrgRate   float64
	PresignOrgBurst  int
	PresignIPRate    float64
	PresignIPBurst   int
	AssessmentLockOn bool
}

type BootstrapConfig struct {
	DemoOrgSlug string
	DemoOrgName string
}

const (
	StorageProviderR2  = "r2"
	StorageProviderS3  = "s3"
	StorageProviderGCS = "gcs"

	VisionProviderAnthropic = "anthropic"
	VisionProviderOpenAI    = "openai"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "detailflow"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  environment,
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "detailflow"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		Storage: StorageConfig{
			Provider:           strings.ToLower(getenv("STORAGE_PROVIDER", StorageProviderR2)),
			Bucket:             strings.TrimSpace(getenv("STORAGE_BUCKET", getenv("R2_BUCKET_NAME", ""))),
			PublicBaseURL:      strings.TrimRight(strings.TrimSpace(getenv("STORAGE_PUBLIC_URL", getenv("R2_PUBLIC_URL", ""))), "/"),
			UploadExpiry:       time.Duration(getenvInt64("STORAGE_UPLOAD_EXPIRY_SECONDS", 600)) * time.Second,
			MaxObjectBytes:     getenvInt64("STORAGE_MAX_OBJECT_BYTES", 20<<20),
			R2AccountID:        strings.TrimSpace(getenv("R2_ACCOUNT_ID", "")),
			AccessKeyID:        strings.TrimSpace(getenv("R2_ACCESS_KEY_ID", getenv("S3_ACCESS_KEY_ID", ""))),
			SecretAccessKey:    strings.TrimSpace(getenv("R2_SECRET_ACCESS_KEY", getenv("S3_SECRET_ACCESS_KEY", ""))),
			Endpoint:           strings.TrimSpace(getenv("S3_ENDPOINT", "")),
			Region:             getenv("S3_REGION", "auto"),
			GCSCredentialsJSON: strings.TrimSpace(getenv("GCS_CREDENTIALS_JSON", "")),
			GCSSignerEmail:     strings.TrimSpace(getenv("GCS_SIGNER_EMAIL", "")),
			GCSSignerKey:       strings.ReplaceAll(strings.TrimSpace(getenv("GCS_SIGNER_PRIVATE_KEY", "")), "\\n", "\n"),
		},
		Vision: VisionConfig{
			Provider:        strings.ToLower(getenv("VISION_PROVIDER", VisionProviderAnthropic)),
			AnthropicAPIKey: strings.TrimSpace(getenv("ANTHROPIC_API_KEY", "")),
			OpenAIAPIKey:    strings.TrimSpace(getenv("OPENAI_API_KEY", "")),
			OpenAIBaseURL:   strings.TrimSpace(getenv("OPENAI_BASE_URL", "")),
		},
		RateLimit: RateLimitConfig{
			Enabled:          getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:        strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword:    strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			RedisDB:          getenvInt("REDIS_DB", 0),
			PresignOrgRate:   getenvFloat("PRESIGN_ORG_RATE", 2),
			PresignOrgBurst:  getenvInt("PRESIGN_ORG_BURST", 40),
			PresignIPRate:    getenvFloat("PRESIGN_IP_RATE", 0.5),
			PresignIPBurst:   getenvInt("PRESIGN_IP_BURST", 12),
			AssessmentLockOn: getenvBool("ASSESSMENT_LOCK_ENABLED", true),
		},
		Bootstrap: BootstrapConfig{
			DemoOrgSlug: strings.TrimSpace(getenv("BOOTSTRAP_ORG_SLUG", "")),
			DemoOrgName: strings.TrimSpace(getenv("BOOTSTRAP_ORG_NAME", "")),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	return int(getenvInt64(key, int64(def)))
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
