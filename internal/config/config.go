package config

import (
	"errors"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the server needs at boot. Values come from, in order of precedence:
// environment variables, an optional config.yaml in the working directory, and the defaults below.
type Config struct {
	Port    string
	GinMode string

	DBDriver        string // postgres | sqlite
	DatabaseURL     string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	SessionSecret   string
	SessionSecure   bool
	AllowedOrigins  []string
	RateLimitPerMin int

	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	CommentMaxLength int
	PageDefaultLimit int
	PageMaxLimit     int

	// cron spec, empty disables the in-process reconciliation job
	ReconcileSchedule string
}

const insecureSessionSecret = "secret_key_change_me"

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=hnlite port=5432 sslmode=disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("SESSION_SECRET", insecureSessionSecret)
	v.SetDefault("SESSION_SECURE", false)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PATH", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 3)
	v.SetDefault("LOG_MAX_AGE_DAYS", 7)
	v.SetDefault("COMMENT_MAX_LENGTH", 10000)
	v.SetDefault("PAGE_DEFAULT_LIMIT", 10)
	v.SetDefault("PAGE_MAX_LIMIT", 100)
	v.SetDefault("RECONCILE_SCHEDULE", "")
}

// Load reads .env (if any), then config.yaml (if any), then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:              v.GetString("PORT"),
		GinMode:           strings.ToLower(v.GetString("GIN_MODE")),
		DBDriver:          strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		DBMaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		SessionSecret:     v.GetString("SESSION_SECRET"),
		SessionSecure:     v.GetBool("SESSION_SECURE"),
		AllowedOrigins:    splitList(v.GetString("ALLOWED_ORIGINS")),
		RateLimitPerMin:   v.GetInt("RATE_LIMIT_PER_MINUTE"),
		LogLevel:          strings.ToLower(v.GetString("LOG_LEVEL")),
		LogPath:           v.GetString("LOG_PATH"),
		LogMaxSizeMB:      v.GetInt("LOG_MAX_SIZE_MB"),
		LogMaxBackups:     v.GetInt("LOG_MAX_BACKUPS"),
		LogMaxAgeDays:     v.GetInt("LOG_MAX_AGE_DAYS"),
		CommentMaxLength:  v.GetInt("COMMENT_MAX_LENGTH"),
		PageDefaultLimit:  v.GetInt("PAGE_DEFAULT_LIMIT"),
		PageMaxLimit:      v.GetInt("PAGE_MAX_LIMIT"),
		ReconcileSchedule: strings.TrimSpace(v.GetString("RECONCILE_SCHEDULE")),
	}
	return cfg, cfg.Validate()
}

// Validate rejects combinations the server cannot run with.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return errors.New("DB_DRIVER must be postgres or sqlite")
	}
	if c.CommentMaxLength < 1 {
		return errors.New("COMMENT_MAX_LENGTH must be positive")
	}
	if c.PageMaxLimit < 1 || c.PageDefaultLimit < 1 || c.PageDefaultLimit > c.PageMaxLimit {
		return errors.New("PAGE_DEFAULT_LIMIT must be between 1 and PAGE_MAX_LIMIT")
	}
	if c.GinMode == "release" && c.SessionSecret == insecureSessionSecret {
		log.Println("SESSION_SECRET is not set, falling back to an insecure default")
	}
	return nil
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
