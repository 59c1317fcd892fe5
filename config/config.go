package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	awspkg "storefront-service/pkg/aws"

	"github.com/joho/godotenv"
)

const oidcSecretName = "storefront/OIDC"

// Config holds all configuration for the storefront service.
type Config struct {
	Port   string
	AppEnv string

	// Backend REST endpoints
	APIBaseURL     string
	ProductsURL    string
	CategoryURL    string
	CountriesURL   string
	StatesURL      string
	OrdersURL      string
	RequestTimeout time.Duration

	DefaultPageSize   int
	DefaultCategoryID int64
	SessionTTL        time.Duration

	RedisURL          string
	CartSnapshotTTL   time.Duration
	IdempotencyTTL    time.Duration
	ReferenceCacheTTL time.Duration

	OIDCIssuer        string
	OIDCClientID      string
	OIDCRedirectURI   string
	OIDCScopes        []string
	OIDCSigningSecret string
	OIDCPublicKeyPEM  string

	AllowedOrigins []string

	OrderEventsTopicARN string
	KafkaBrokers        []string
	KafkaOrderTopic     string

	CloudWatchEnabled   bool
	CloudWatchLogGroup  string
	CloudWatchNamespace string
}

// secretSource is satisfied by *awspkg.SecretsClient.
type secretSource interface {
	SecretJSON(ctx context.Context, name string) (map[string]string, error)
}

// Load reads configuration from the environment (and .env when present),
// with an optional Secrets Manager override for the OIDC credentials.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	base := strings.TrimSuffix(getEnv("API_BASE_URL", "http://localhost:8080/api"), "/")
	cfg := &Config{
		Port:   getEnv("PORT", "8095"),
		AppEnv: getEnv("APP_ENV", "development"),

		APIBaseURL:     base,
		ProductsURL:    getEnv("PRODUCTS_URL", base+"/products"),
		CategoryURL:    getEnv("CATEGORY_URL", base+"/product-category"),
		CountriesURL:   getEnv("COUNTRIES_URL", base+"/countries"),
		StatesURL:      getEnv("STATES_URL", base+"/states"),
		OrdersURL:      getEnv("ORDERS_URL", base+"/checkout/purchase"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second),

		DefaultPageSize:   getInt("DEFAULT_PAGE_SIZE", 5),
		DefaultCategoryID: int64(getInt("DEFAULT_CATEGORY_ID", 1)),
		SessionTTL:        getDuration("SESSION_TTL", 30*time.Minute),

		RedisURL:          os.Getenv("REDIS_URL"),
		CartSnapshotTTL:   getDuration("CART_SNAPSHOT_TTL", 168*time.Hour),
		IdempotencyTTL:    getDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		ReferenceCacheTTL: getDuration("REFERENCE_CACHE_TTL", time.Hour),

		OIDCIssuer:        os.Getenv("OIDC_ISSUER"),
		OIDCClientID:      os.Getenv("OIDC_CLIENT_ID"),
		OIDCRedirectURI:   getEnv("OIDC_REDIRECT_URI", "http://localhost:8095/login/callback"),
		OIDCScopes:        getList("OIDC_SCOPES", " ", []string{"openid", "profile", "email"}),
		OIDCSigningSecret: os.Getenv("OIDC_SIGNING_SECRET"),
		OIDCPublicKeyPEM:  os.Getenv("OIDC_PUBLIC_KEY_PEM"),

		AllowedOrigins: getList("ALLOWED_ORIGINS", ",", []string{"http://localhost:4200"}),

		OrderEventsTopicARN: os.Getenv("ORDER_EVENTS_SNS_TOPIC_ARN"),
		KafkaBrokers:        getList("KAFKA_BROKERS", ",", nil),
		KafkaOrderTopic:     getEnv("KAFKA_ORDER_TOPIC", "storefront.orders"),

		CloudWatchEnabled:   os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchLogGroup:  getEnv("CLOUDWATCH_LOG_GROUP", "/storefront/services"),
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "Storefront"),
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		awsCfg, err := awspkg.LoadAWSConfig(context.Background())
		if err != nil {
			return nil, err
		}
		if err := cfg.applySecrets(context.Background(), awspkg.NewSecretsClient(awsCfg)); err != nil {
			log.Printf("OIDC secret override skipped: %v", err)
		}
	}

	if cfg.DefaultPageSize <= 0 {
		return nil, fmt.Errorf("DEFAULT_PAGE_SIZE must be positive")
	}
	return cfg, nil
}

// OIDCEnabled reports whether login is configured.
func (c *Config) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) applySecrets(ctx context.Context, src secretSource) error {
	m, err := src.SecretJSON(ctx, oidcSecretName)
	if err != nil {
		return err
	}
	if v := m["OIDC_CLIENT_ID"]; v != "" {
		c.OIDCClientID = v
	}
	if v := m["OIDC_SIGNING_SECRET"]; v != "" {
		c.OIDCSigningSecret = v
	}
	if v := m["OIDC_PUBLIC_KEY_PEM"]; v != "" {
		c.OIDCPublicKeyPEM = v
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getList(key, sep string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.TrimSuffix(p, "/"))
		}
	}
	return out
}
