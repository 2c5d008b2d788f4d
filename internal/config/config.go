// Package config loads site-server configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr   = ":3000"
	defaultStoreURL     = "redis://localhost:6379/0"
	defaultContentDir   = "content"
	defaultPublicDir    = "public"
	defaultBaseURL      = "http://localhost:3000"
	defaultSessionTTL   = 24 * time.Hour
	defaultPDFHosts     = "res.cloudinary.com,drive.google.com,docs.google.com"
	defaultProbeTimeout = 10 * time.Second

	// maxNamedAdmins is how many ADMIN_EMAIL_<n> variables are consulted.
	maxNamedAdmins = 3
)

// Config holds all configuration values for the site server.
// Every field is loaded from environment variables with sensible defaults.
type Config struct {
	// ListenAddr is the address the HTTP server binds to.
	// Env: TCC_LISTEN_ADDR
	ListenAddr string

	// StoreURL selects and addresses the key-value store. The scheme picks
	// the driver: redis, rediss, postgres, sqlite or memory.
	// Env: TCC_STORE_URL, falling back to REDIS_URL.
	StoreURL string

	// LogLevel controls zerolog verbosity.
	// Env: TCC_LOG_LEVEL
	LogLevel string

	// DevMode enables console log output and bypasses the admin gate.
	// Env: TCC_DEV_MODE
	DevMode bool

	// ContentDir is the root of the markdown fallback directories.
	// Env: TCC_CONTENT_DIR
	ContentDir string

	// PublicDir is the root of publicly served files; uploads land in
	// PublicDir/uploads.
	// Env: TCC_PUBLIC_DIR
	PublicDir string

	// WatchContent invalidates cached markdown when files change.
	// Env: TCC_WATCH_CONTENT
	WatchContent bool

	// BaseURL is the externally visible origin, used for the OAuth redirect.
	// Env: TCC_BASE_URL
	BaseURL string

	// OAuthClientID and OAuthClientSecret are the Google OAuth credentials.
	// Env: GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET
	OAuthClientID     string
	OAuthClientSecret string

	// SessionSecret seeds the session cookie keys. Empty means a random
	// key per process, so sessions do not survive a restart.
	// Env: TCC_SESSION_SECRET
	SessionSecret string

	// SessionTTL bounds how long an admin session stays valid.
	// Env: TCC_SESSION_TTL
	SessionTTL time.Duration

	// AdminEmails is the static admin allow-list, lowercased.
	// Env: ADMIN_EMAILS (comma-separated) plus ADMIN_EMAIL_1..ADMIN_EMAIL_3
	AdminEmails []string

	// PDFAllowedHosts limits which hosts the PDF probe may contact.
	// Env: TCC_PDF_ALLOWED_HOSTS
	PDFAllowedHosts []string

	// ProbeTimeout bounds a single PDF probe request.
	// Env: TCC_PROBE_TIMEOUT
	ProbeTimeout time.Duration

	// NATSURL enables content-change events when set.
	// Env: TCC_NATS_URL
	NATSURL string
}

// Load reads configuration from environment variables, applying defaults
// where values are not set. It returns an error if a value is invalid.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:        envOrDefault("TCC_LISTEN_ADDR", defaultListenAddr),
		StoreURL:          envFirst(defaultStoreURL, "TCC_STORE_URL", "REDIS_URL"),
		LogLevel:          strings.ToLower(strings.TrimSpace(envOrDefault("TCC_LOG_LEVEL", "info"))),
		DevMode:           envBool("TCC_DEV_MODE", false),
		ContentDir:        envOrDefault("TCC_CONTENT_DIR", defaultContentDir),
		PublicDir:         envOrDefault("TCC_PUBLIC_DIR", defaultPublicDir),
		WatchContent:      envBool("TCC_WATCH_CONTENT", true),
		BaseURL:           strings.TrimRight(envOrDefault("TCC_BASE_URL", defaultBaseURL), "/"),
		OAuthClientID:     strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		OAuthClientSecret: strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
		SessionSecret:     os.Getenv("TCC_SESSION_SECRET"),
		SessionTTL:        envPositiveDuration("TCC_SESSION_TTL", defaultSessionTTL),
		AdminEmails:       adminEmailsFromEnv(),
		PDFAllowedHosts:   splitList(envOrDefault("TCC_PDF_ALLOWED_HOSTS", defaultPDFHosts)),
		ProbeTimeout:      envPositiveDuration("TCC_PROBE_TIMEOUT", defaultProbeTimeout),
		NATSURL:           strings.TrimSpace(os.Getenv("TCC_NATS_URL")),
	}

	if strings.TrimSpace(cfg.StoreURL) == "" {
		return Config{}, fmt.Errorf("TCC_STORE_URL is required")
	}
	if strings.TrimSpace(cfg.ContentDir) == "" {
		return Config{}, fmt.Errorf("TCC_CONTENT_DIR must not be blank")
	}
	if (cfg.OAuthClientID == "") != (cfg.OAuthClientSecret == "") {
		return Config{}, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}

	return cfg, nil
}

// OAuthEnabled reports whether Google sign-in is configured.
func (c Config) OAuthEnabled() bool {
	return c.OAuthClientID != "" && c.OAuthClientSecret != ""
}

// adminEmailsFromEnv merges ADMIN_EMAILS with the individually named
// ADMIN_EMAIL_<n> variables, lowercased and de-duplicated in order.
func adminEmailsFromEnv() []string {
	raw := splitList(os.Getenv("ADMIN_EMAILS"))
	for i := 1; i <= maxNamedAdmins; i++ {
		if v := strings.TrimSpace(os.Getenv(fmt.Sprintf("ADMIN_EMAIL_%d", i))); v != "" {
			raw = append(raw, v)
		}
	}

	seen := make(map[string]struct{}, len(raw))
	emails := make([]string, 0, len(raw))
	for _, email := range raw {
		normalized := strings.ToLower(strings.TrimSpace(email))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		emails = append(emails, normalized)
	}
	return emails
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envFirst returns the first non-empty variable among keys.
func envFirst(defaultVal string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		switch strings.ToLower(v) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		default:
			return defaultVal
		}
	}
	return b
}

func envPositiveDuration(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return defaultVal
	}
	return parsed
}
