package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Video    VideoConfig
	Meeting  MeetingConfig
	Email    EmailConfig
	Internal InternalConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/peerlink?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// VideoConfig selects and configures the session credential provider.
// Provider is "twilio" (default) or "zego".
type VideoConfig struct {
	Provider        string
	TokenTTLMinutes int
	Twilio          TwilioConfig
	Zego            ZegoConfig
}

// TwilioConfig holds Twilio Video API credentials.
type TwilioConfig struct {
	AccountSID string
	APIKey     string
	APISecret  string
}

// ZegoConfig holds ZEGOCLOUD token04 credentials.
type ZegoConfig struct {
	AppID        uint32
	ServerSecret string // must be 32 characters
}

// MeetingConfig holds matchmaking settings.
type MeetingConfig struct {
	PendingTimeout time.Duration // how long a pending meeting waits for a helper
	SweepInterval  time.Duration // worker sweep period
}

// EmailConfig for SMTP delivery of password reset codes.
type EmailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
}

// InternalConfig holds the shared token for system/cron endpoints.
type InternalConfig struct {
	APIToken string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "24"))
	zegoAppID, _ := strconv.ParseUint(getEnv("ZEGO_APP_ID", "0"), 10, 32)

	pendingTimeout, err := time.ParseDuration(getEnv("MEETING_PENDING_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid MEETING_PENDING_TIMEOUT: %w", err)
	}
	sweepInterval, err := time.ParseDuration(getEnv("MEETING_SWEEP_INTERVAL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid MEETING_SWEEP_INTERVAL: %w", err)
	}

	provider := strings.ToLower(getEnv("VIDEO_PROVIDER", "twilio"))
	if provider != "twilio" && provider != "zego" {
		return nil, fmt.Errorf("invalid VIDEO_PROVIDER: %q (want twilio or zego)", provider)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/peerlink?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "peerlink"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: jwtExpire,
		},
		Video: VideoConfig{
			Provider:        provider,
			TokenTTLMinutes: getEnvInt("VIDEO_TOKEN_TTL_MINUTES", 60),
			Twilio: TwilioConfig{
				AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
				APIKey:     getEnv("TWILIO_API_KEY", ""),
				APISecret:  getEnv("TWILIO_API_SECRET", ""),
			},
			Zego: ZegoConfig{
				AppID:        uint32(zegoAppID),
				ServerSecret: getEnv("ZEGO_SERVER_SECRET", ""),
			},
		},
		Meeting: MeetingConfig{
			PendingTimeout: pendingTimeout,
			SweepInterval:  sweepInterval,
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "PeerLink Support"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
		},
		Internal: InternalConfig{
			APIToken: getEnv("INTERNAL_API_TOKEN", ""),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
