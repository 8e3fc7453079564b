package lib

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config contains runtime configuration of the directory server.
type Config struct {
	DatabaseURL   string `env:"DATABASE_URL"`
	DBMaxConns    int    `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns    int    `env:"DB_MIN_CONNS" envDefault:"2"`
	DBConnectSecs int    `env:"DB_CONNECT_TIMEOUT_SECONDS" envDefault:"5"`
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"INFO"`
	JWTSecret     string `env:"JWT_SECRET"`
	JWTTTLMinutes int    `env:"JWT_TTL_MINUTES" envDefault:"60"`
	PublicOrigin  string `env:"PUBLIC_ORIGIN" envDefault:"http://localhost:3000"`

	// RateLimitBurst of 0 disables per-user mutation limits.
	RateLimitBurst     int `env:"RATE_LIMIT_BURST" envDefault:"10"`
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`

	// Image uploads go to Cloudinary when CLOUDINARY_URL is set, else to UploadDir.
	CloudinaryURL    string `env:"CLOUDINARY_URL"`
	CloudinaryFolder string `env:"CLOUDINARY_FOLDER" envDefault:"community"`
	UploadDir        string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	UploadBaseURL    string `env:"UPLOAD_BASE_URL" envDefault:"http://localhost:8080/uploads"`
}

// ClientConfig contains runtime configuration of the invite CLI.
type ClientConfig struct {
	DirectoryURL   string `env:"DIRECTORY_URL"`
	SessionToken   string `env:"SESSION_TOKEN"`
	SessionUserID  string `env:"SESSION_USER_ID"`
	PublicOrigin   string `env:"PUBLIC_ORIGIN" envDefault:"http://localhost:3000"`
	PollIntervalMS int    `env:"POLL_INTERVAL_MS" envDefault:"1000"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"INFO"`
}

// JWTTTL is the lifetime of credentials minted by the directory server.
func (c Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

// DBConnectTimeout bounds the startup database ping.
func (c Config) DBConnectTimeout() time.Duration {
	return time.Duration(c.DBConnectSecs) * time.Second
}

// PollInterval is the membership resolver tick.
func (c ClientConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func LoadConfig() (Config, error) {
	loadDotEnv()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.PublicOrigin = strings.TrimRight(strings.TrimSpace(cfg.PublicOrigin), "/")
	cfg.CloudinaryURL = strings.TrimSpace(cfg.CloudinaryURL)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.JWTTTLMinutes <= 0 {
		return Config{}, fmt.Errorf("JWT_TTL_MINUTES must be > 0")
	}
	if cfg.DBMaxConns <= 0 || cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be > 0 and DB_MIN_CONNS >= 0")
	}
	if cfg.DBConnectSecs <= 0 {
		return Config{}, fmt.Errorf("DB_CONNECT_TIMEOUT_SECONDS must be > 0")
	}
	if cfg.RateLimitBurst < 0 || cfg.RateLimitPerMinute < 0 {
		return Config{}, fmt.Errorf("rate limits must be >= 0")
	}

	return cfg, nil
}

func LoadClientConfig() (ClientConfig, error) {
	loadDotEnv()

	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DirectoryURL = strings.TrimSpace(cfg.DirectoryURL)
	cfg.SessionToken = strings.TrimSpace(cfg.SessionToken)
	cfg.SessionUserID = strings.TrimSpace(cfg.SessionUserID)
	cfg.PublicOrigin = strings.TrimRight(strings.TrimSpace(cfg.PublicOrigin), "/")

	if cfg.DirectoryURL == "" {
		return ClientConfig{}, fmt.Errorf("DIRECTORY_URL is required")
	}
	if cfg.SessionToken != "" && cfg.SessionUserID == "" {
		return ClientConfig{}, fmt.Errorf("SESSION_USER_ID is required when SESSION_TOKEN is set")
	}
	if cfg.PollIntervalMS <= 0 {
		return ClientConfig{}, fmt.Errorf("POLL_INTERVAL_MS must be > 0")
	}

	return cfg, nil
}

// loadDotEnv reads .env when present; real environment variables win.
func loadDotEnv() {
	_ = godotenv.Load()
}
