package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port             string
	MongoURI         string
	MongoDB          string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	JWTSecret        string
	TokenTTL         time.Duration
	GeminiAPIKey     string
	GeminiModel      string
	FoodDBBaseURL    string
	IntervalsBaseURL string
	AllowedOrigins   []string
	LogLevel         string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file, using process environment")
	}

	cfg := &Config{
		Port:             getenv("PORT", "10000"),
		MongoURI:         os.Getenv("MONGODB_URI"),
		MongoDB:          getenv("MONGODB_DB", "mahlzeit"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getenvInt("REDIS_DB", 0),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		TokenTTL:         time.Duration(getenvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getenv("GEMINI_MODEL", "gemini-2.0-flash"),
		FoodDBBaseURL:    getenv("FOODDB_BASE_URL", "https://world.openfoodfacts.org"),
		IntervalsBaseURL: getenv("INTERVALS_BASE_URL", "https://intervals.icu"),
		AllowedOrigins:   splitCSV(getenv("ALLOWED_ORIGINS", "*")),
		LogLevel:         getenv("LOG_LEVEL", "info"),
	}

	if cfg.MongoURI == "" {
		return nil, errors.New("MONGODB_URI environment variable is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is not set")
	}
	return cfg, nil
}

// SetupLogging configures the global zerolog logger.
func SetupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "mahlzeit").Logger()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
