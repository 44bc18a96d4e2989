package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv         string `mapstructure:"APP_ENV"`
	Port           string `mapstructure:"PORT"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	MeiliSearchHost string `mapstructure:"MEILISEARCH_HOST"`
	MeiliMasterKey  string `mapstructure:"MEILI_MASTER_KEY"`

	CloudinaryCloudName    string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey       string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret    string `mapstructure:"CLOUDINARY_API_SECRET"`
	CloudinaryUploadFolder string `mapstructure:"CLOUDINARY_UPLOAD_FOLDER"`

	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string `mapstructure:"GEMINI_MODEL"`

	RateLimitTutor          time.Duration `mapstructure:"RATE_LIMIT_TUTOR"`
	RecommendationThreshold float64       `mapstructure:"RECOMMENDATION_THRESHOLD"`
	ReminderSchedule        string        `mapstructure:"REMINDER_SCHEDULE"`
	RecommendationSchedule  string        `mapstructure:"RECOMMENDATION_SCHEDULE"`
	AgentTimeout            time.Duration `mapstructure:"AGENT_TIMEOUT"`

	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
}

var defaults = map[string]any{
	"APP_ENV":                  "development",
	"PORT":                     "8080",
	"ALLOWED_ORIGINS":          "http://localhost:3000",
	"DB_HOST":                  "localhost",
	"DB_PORT":                  "5432",
	"DB_USER":                  "postgres",
	"DB_PASSWORD":              "",
	"DB_NAME":                  "mathter",
	"DB_SSLMODE":               "disable",
	"REDIS_URL":                "",
	"JWT_SECRET":               "",
	"JWT_TTL":                  "24h",
	"MEILISEARCH_HOST":         "",
	"MEILI_MASTER_KEY":         "",
	"CLOUDINARY_CLOUD_NAME":    "",
	"CLOUDINARY_API_KEY":       "",
	"CLOUDINARY_API_SECRET":    "",
	"CLOUDINARY_UPLOAD_FOLDER": "mathter",
	"GEMINI_API_KEY":           "",
	"GEMINI_MODEL":             "",
	"RATE_LIMIT_TUTOR":         "10s",
	"RECOMMENDATION_THRESHOLD": 0.5,
	"REMINDER_SCHEDULE":        "0 * * * *",
	"RECOMMENDATION_SCHEDULE":  "0 6 * * *",
	"AGENT_TIMEOUT":            "10m",
	"ADMIN_USERNAME":           "",
	"ADMIN_EMAIL":              "",
	"ADMIN_PASSWORD":           "",
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
		// BindEnv lets Unmarshal see variables that have no config file entry
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.RecommendationThreshold < 0 || cfg.RecommendationThreshold > 1 {
		return nil, fmt.Errorf("invalid RECOMMENDATION_THRESHOLD: %v is outside 0..1", cfg.RecommendationThreshold)
	}
	if cfg.IsProduction() && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}
	if cfg.JWTTTL <= 0 {
		return nil, fmt.Errorf("invalid JWT_TTL: must be positive")
	}

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c *Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
