package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress      string
	MongoURI           string
	MongoDB            string
	DataDir            string
	JWTSecret          string
	JWTExpiration      time.Duration
	GitHubAPIURL       string
	GitHubToken        string
	SearchRadiusMeters float64
	ResendAPIKey       string
	MailFrom           string
	LogLevel           string
	LogFormat          string
	AllowedOrigins     []string
}

// Load reads the environment. A .env file in the working directory is applied first
// if present; variables already set in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddress:      getEnv("SERVER_ADDRESS", ":3333"),
		MongoURI:           getEnv("MONGO_URI", ""),
		MongoDB:            getEnv("MONGO_DB", "devradar"),
		DataDir:            getEnv("DATA_DIR", ""),
		JWTSecret:          getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiration:      getDuration("JWT_EXPIRATION", 30*24*time.Hour),
		GitHubAPIURL:       getEnv("GITHUB_API_URL", "https://api.github.com"),
		GitHubToken:        getEnv("GITHUB_TOKEN", ""),
		SearchRadiusMeters: getFloat("SEARCH_RADIUS_METERS", 10000),
		ResendAPIKey:       getEnv("RESEND_API_KEY", ""),
		MailFrom:           getEnv("MAIL_FROM", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		AllowedOrigins:     splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil && f > 0 {
		return f
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
