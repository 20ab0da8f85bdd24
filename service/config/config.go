package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port           int
	AdminSecret    string
	VerboseLogging bool
	RateLimit      int

	SiteDir     string
	OfflinePage string

	CacheVersion  string
	PrecachePaths []string
	BypassPaths   []string

	CurriculumPath string
	PublicURL      string
	FrontendOrigin string

	VAPIDSubscriber string
	TrackEndpoint   string

	StoragePath string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnvInt("PORT", 8080),
		AdminSecret:    os.Getenv("ADMIN_TOKEN_SECRET"),
		VerboseLogging: getEnvBool("VERBOSE_LOGGING", false),
		RateLimit:      getEnvInt("RATE_LIMIT", 100),

		SiteDir:     getEnvString("SITE_DIR", "./public"),
		OfflinePage: getEnvString("OFFLINE_PAGE", "/offline.html"),

		CacheVersion:  getEnvString("CACHE_VERSION", "v1"),
		PrecachePaths: getEnvList("PRECACHE_PATHS", []string{"/", "/curriculum.html", "/announcements.html", "/calendar.html", "/offline.html"}),
		BypassPaths:   getEnvList("BYPASS_PATHS", []string{"/api/", "/admin", "/track-open", "/healthz"}),

		CurriculumPath: getEnvString("CURRICULUM_PATH", "./data/curriculum.json"),
		PublicURL:      getEnvString("PUBLIC_URL", "http://localhost:8080"),
		FrontendOrigin: getEnvString("FRONTEND_ORIGIN", "*"),

		VAPIDSubscriber: getEnvString("VAPID_SUBSCRIBER", "mailto:webmaster@localhost"),
		TrackEndpoint:   getEnvString("TRACK_ENDPOINT", "/track-open"),

		StoragePath: getEnvString("STORAGE_PATH", "./data/herald.db"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.AdminSecret == "" {
		return fmt.Errorf("ADMIN_TOKEN_SECRET environment variable is required")
	}
	if c.CacheVersion == "" {
		return fmt.Errorf("CACHE_VERSION must not be empty")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
