package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	DBType            string
	DBURL             string
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
	DBLogLevel        string
	DBAutoMigrate     bool

	Provider ProviderConfig

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	HTTPAddr   string
	AdminToken string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64

	Scheduler SchedulerConfig

	SnowflakeNode int64
	ReportDir     string
	RulesFile     string
}

// ProviderConfig configures the payment provider client. APIKey has no
// default and must come from the environment or a secret store.
type ProviderConfig struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	MinInterval      time.Duration
	CustomerCacheTTL time.Duration
	PageSize         int
}

type SchedulerConfig struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
	LockTTL     time.Duration
	EnabledJobs []string
}

const (
	ProviderProductionURL = "https://api.asaas.com/v3"
	ProviderSandboxURL    = "https://sandbox.asaas.com/api/v3"
)

// Load loads configuration from environment variables and an optional .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	providerURL := getenv("PROVIDER_BASE_URL", "")
	if providerURL == "" {
		providerURL = ProviderProductionURL
		if getenvBool("PROVIDER_SANDBOX", false) {
			providerURL = ProviderSandboxURL
		}
	}

	return Config{
		AppName:     getenv("APP_SERVICE", "backoffice"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,

		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "postgres")),
		DBURL:             strings.TrimSpace(getenv("DATABASE_URL", "")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "postgres"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        os.Getenv("DATABASE_PASSWORD"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 4),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBLogLevel:        getenv("DATABASE_LOG_LEVEL", "warn"),
		DBAutoMigrate:     getenvBool("DATABASE_AUTO_MIGRATE", false),

		Provider: ProviderConfig{
			BaseURL:          strings.TrimRight(providerURL, "/"),
			APIKey:           strings.TrimSpace(os.Getenv("PROVIDER_API_KEY")),
			Timeout:          getenvDuration("PROVIDER_TIMEOUT", 10*time.Second),
			MinInterval:      getenvDuration("PROVIDER_MIN_INTERVAL", 50*time.Millisecond),
			CustomerCacheTTL: getenvDuration("PROVIDER_CUSTOMER_CACHE_TTL", 10*time.Minute),
			PageSize:         getenvInt("PROVIDER_PAGE_SIZE", 100),
		},

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getenvInt("REDIS_DB", 0),

		HTTPAddr:   getenv("HTTP_ADDR", ":8080"),
		AdminToken: strings.TrimSpace(os.Getenv("ADMIN_TOKEN")),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getenv("LOG_FORMAT", "json")),

		OtelEnabled:          getenvBool("OTEL_ENABLED", false),
		OtelExporterEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OtelExporterProtocol: strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
		OtelSamplingRatio:    getenvFloat("OTEL_SAMPLING_RATIO", 1),

		Scheduler: SchedulerConfig{
			RunInterval: getenvDuration("SCHEDULER_RUN_INTERVAL", time.Hour),
			JobTimeout:  getenvDuration("SCHEDULER_JOB_TIMEOUT", 30*time.Minute),
			LockTTL:     getenvDuration("SCHEDULER_LOCK_TTL", time.Hour),
			EnabledJobs: splitList(getenv("SCHEDULER_ENABLED_JOBS", "")),
		},

		SnowflakeNode: getenvInt64("SNOWFLAKE_NODE", 1),
		ReportDir:     strings.TrimSpace(getenv("REPORT_DIR", "")),
		RulesFile:     strings.TrimSpace(getenv("RECONCILIATION_CONFIG", "")),
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
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

func getenvInt(key string, def int) int {
	return int(getenvInt64(key, int64(def)))
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

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
