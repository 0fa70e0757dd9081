package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server configuration
type Config struct {
	Port           int
	BackendURL     string // serverless backend exposing /create_room and /start
	BackendToken   string // bearer token for the backend
	PostgresURL    string // product store DSN
	ProductChannel string // NOTIFY channel carrying product inserts
	RedisURL       string
	RedisPassword  string
	MaxSessions    int
	SessionTimeout time.Duration
	AllowedOrigins []string
	RequestTimeout time.Duration // room lifecycle HTTP calls

	// Turn-taking timings. The grace window force-mutes the mic at session
	// start; the re-enable delay keeps residual agent audio out of the mic
	// after a user-turn cue.
	MicGraceWindow   time.Duration
	MicReenableDelay time.Duration
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := &Config{
		Port:             8080,
		ProductChannel:   "product_inserts",
		RedisURL:         "localhost:6379",
		RedisPassword:    "",
		MaxSessions:      100,
		SessionTimeout:   30 * time.Minute,
		AllowedOrigins:   []string{"*"},
		RequestTimeout:   30 * time.Second,
		MicGraceWindow:   2 * time.Second,
		MicReenableDelay: 500 * time.Millisecond,
	}

	// Required: CEREBRIUM_URL
	config.BackendURL = strings.TrimRight(os.Getenv("CEREBRIUM_URL"), "/")
	if config.BackendURL == "" {
		return nil, fmt.Errorf("CEREBRIUM_URL environment variable is required")
	}

	// Required: CEREBRIUM_AUTH_TOKEN
	config.BackendToken = os.Getenv("CEREBRIUM_AUTH_TOKEN")
	if config.BackendToken == "" {
		return nil, fmt.Errorf("CEREBRIUM_AUTH_TOKEN environment variable is required")
	}

	// Required: DATABASE_URL
	config.PostgresURL = os.Getenv("DATABASE_URL")
	if config.PostgresURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	// Optional: PORT
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		config.Port = p
	}

	// Optional: PRODUCT_CHANNEL
	if channel := os.Getenv("PRODUCT_CHANNEL"); channel != "" {
		config.ProductChannel = channel
	}

	// Optional: REDIS_URL
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.RedisURL = redisURL
	}

	// Optional: REDIS_PASSWORD
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.RedisPassword = redisPassword
	}

	// Optional: MAX_SESSIONS
	if maxSessions := os.Getenv("MAX_SESSIONS"); maxSessions != "" {
		m, err := strconv.Atoi(maxSessions)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_SESSIONS: %w", err)
		}
		config.MaxSessions = m
	}

	// Optional: SESSION_TIMEOUT (in minutes)
	if timeout := os.Getenv("SESSION_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TIMEOUT: %w", err)
		}
		config.SessionTimeout = time.Duration(t) * time.Minute
	}

	// Optional: ALLOWED_ORIGINS (comma-separated)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	// Optional: REQUEST_TIMEOUT (in seconds)
	if timeout := os.Getenv("REQUEST_TIMEOUT"); timeout != "" {
		s, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
		}
		config.RequestTimeout = time.Duration(s) * time.Second
	}

	// Optional: MIC_GRACE_WINDOW (in milliseconds)
	if window := os.Getenv("MIC_GRACE_WINDOW"); window != "" {
		ms, err := strconv.Atoi(window)
		if err != nil {
			return nil, fmt.Errorf("invalid MIC_GRACE_WINDOW: %w", err)
		}
		config.MicGraceWindow = time.Duration(ms) * time.Millisecond
	}

	// Optional: MIC_REENABLE_DELAY (in milliseconds)
	if delay := os.Getenv("MIC_REENABLE_DELAY"); delay != "" {
		ms, err := strconv.Atoi(delay)
		if err != nil {
			return nil, fmt.Errorf("invalid MIC_REENABLE_DELAY: %w", err)
		}
		config.MicReenableDelay = time.Duration(ms) * time.Millisecond
	}

	return config, nil
}
