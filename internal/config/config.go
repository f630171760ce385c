// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable the service reads.
const Prefix = "CONTENT_ARCHIVER_"

// Storage drivers.
const (
	DriverS3    = "s3"
	DriverMinio = "minio"
)

// Auth modes.
const (
	AuthStatic = "static"
	AuthJWT    = "jwt"
)

// Config holds all runtime configuration for the service. It is read once at
// startup and never mutated afterwards.
type Config struct {
	BucketName  string
	BearerToken string
	PublicURL   *url.URL
	Endpoint    *url.URL

	Port            string
	LogLevel        string
	AuthMode        string
	ShutdownTimeout time.Duration

	// Object storage (S3-compatible: Ceph, MinIO, AWS S3)
	StorageDriver string
	Region        string
	AccessKey     string
	SecretKey     string
	PathStyle     bool

	// Optional archive ledger; empty disables it.
	DatabaseURL string

	// OpenTelemetry; spans go to an OTLP/HTTP collector when an endpoint is set.
	TracingEnabled   bool
	OTLPEndpoint     string
	TraceSampleRatio float64
}

// Load reads configuration from a .env file (if present) and environment
// variables, and validates it.
func Load() (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(Prefix + key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	var missing []string
	required := func(key string) string {
		v := get(key, "")
		if v == "" {
			missing = append(missing, Prefix+key)
		}
		return v
	}

	bucket := required("BUCKET_NAME")
	token := required("BEARER_TOKEN")
	publicURL := required("PUBLIC_URL")
	endpoint := required("ENDPOINT")
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	cfg := &Config{
		BucketName:    bucket,
		BearerToken:   token,
		Port:          get("PORT", "8080"),
		LogLevel:      get("LOG_LEVEL", "info"),
		AuthMode:      strings.ToLower(get("AUTH_MODE", AuthStatic)),
		StorageDriver: strings.ToLower(get("STORAGE_DRIVER", DriverS3)),
		Region:        get("REGION", "us-east-1"),
		AccessKey:     get("ACCESS_KEY", ""),
		SecretKey:     get("SECRET_KEY", ""),
		PathStyle:     get("PATH_STYLE", "true") == "true",
		DatabaseURL:   get("DATABASE_URL", ""),

		TracingEnabled: get("TRACING_ENABLED", "false") == "true",
		OTLPEndpoint:   get("OTLP_ENDPOINT", ""),
	}

	var err error
	if cfg.PublicURL, err = parseBaseURL("PUBLIC_URL", publicURL); err != nil {
		return nil, err
	}
	if cfg.Endpoint, err = parseBaseURL("ENDPOINT", endpoint); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(get("SHUTDOWN_TIMEOUT", "30s")); err != nil {
		return nil, fmt.Errorf("%sSHUTDOWN_TIMEOUT: %w", Prefix, err)
	}
	if cfg.TraceSampleRatio, err = strconv.ParseFloat(get("TRACE_SAMPLE_RATIO", "1"), 64); err != nil {
		return nil, fmt.Errorf("%sTRACE_SAMPLE_RATIO: %w", Prefix, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverS3, DriverMinio:
	default:
		return fmt.Errorf("%sSTORAGE_DRIVER: unknown driver %q", Prefix, c.StorageDriver)
	}
	switch c.AuthMode {
	case AuthStatic, AuthJWT:
	default:
		return fmt.Errorf("%sAUTH_MODE: unknown mode %q", Prefix, c.AuthMode)
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("%sTRACE_SAMPLE_RATIO: %v is outside [0, 1]", Prefix, c.TraceSampleRatio)
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return errors.New(Prefix + "ACCESS_KEY and " + Prefix + "SECRET_KEY must be set together")
	}
	return nil
}

func parseBaseURL(key, raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s%s: %w", Prefix, key, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s%s: %q is not an absolute URL", Prefix, key, raw)
	}
	return u, nil
}
