package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Issuer string // Issuer label in TOTP provisioning URIs

	DatabaseFile string // Path to SQLite database file (default: ./identity.db)
	PepperFile   string // Path to file containing pepper for password hashing (default: ./pepper)

	AccessTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 168h)

	CookieDomain string // Optional: Domain attribute on session cookies
	CookieSecure bool   // Secure attribute on session cookies (default: true)

	// Federated login. All three must be set to enable the OAuth endpoints;
	// otherwise ID-token exchange is disabled.
	OAuthIssuer        string
	OAuthAudience      []string
	OAuthPublicKeyFile string // PEM-encoded PKIX public key of the identity provider

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-session sweep interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:       getEnvOrDefault("IDENTITY_ISSUER", "ExpoHall"),
		DatabaseFile: getEnvOrDefault("IDENTITY_DATABASE_FILE", "identity.db"),
		PepperFile:   getEnvOrDefault("IDENTITY_PEPPER_FILE", "pepper"),

		AccessTTL:  getEnvDurationOrDefault("IDENTITY_ACCESS_TTL", 15*time.Minute),
		RefreshTTL: getEnvDurationOrDefault("IDENTITY_REFRESH_TTL", 7*24*time.Hour),

		CookieDomain: os.Getenv("IDENTITY_COOKIE_DOMAIN"),
		CookieSecure: getEnvBoolOrDefault("IDENTITY_COOKIE_SECURE", true),

		OAuthIssuer:        os.Getenv("IDENTITY_OAUTH_ISSUER"),
		OAuthPublicKeyFile: os.Getenv("IDENTITY_OAUTH_PUBLIC_KEY_FILE"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if audiences := os.Getenv("IDENTITY_OAUTH_AUDIENCE"); audiences != "" {
		for _, aud := range strings.Split(audiences, ",") {
			if aud = strings.TrimSpace(aud); aud != "" {
				cfg.OAuthAudience = append(cfg.OAuthAudience, aud)
			}
		}
	}

	return cfg
}

// OAuthEnabled reports whether federated ID-token login is configured.
func (c Config) OAuthEnabled() bool {
	return c.OAuthIssuer != "" && c.OAuthPublicKeyFile != "" && len(c.OAuthAudience) > 0
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Integer values are read as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
