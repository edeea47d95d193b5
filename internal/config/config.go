package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"
)

// Storage backends accepted in STORE_BACKEND.
const (
	BackendFirestore = "firestore"
	BackendRedis     = "redis"
	BackendFile      = "file"
	BackendMemory    = "memory"
)

// Config holds environment-based settings
type Config struct {
	Port string

	StoreBackend             string
	ProjectID                string
	FirestoreCredentialsFile string
	FirestoreCollection      string
	RedisAddress             string
	RedisPassword            string
	RedisDB                  int
	DataDir                  string
	DataFormat               string
	KeyPrefix                string

	LineChannelToken  string
	LineChannelSecret string

	LogLevel string
	Location *time.Location
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                     getenv("PORT", "8080"),
		StoreBackend:             getenv("STORE_BACKEND", BackendFirestore),
		ProjectID:                os.Getenv("GOOGLE_CLOUD_PROJECT"),
		FirestoreCredentialsFile: os.Getenv("FIRESTORE_CREDENTIALS_FILE"),
		FirestoreCollection:      getenv("FIRESTORE_COLLECTION", "trackers"),
		RedisAddress:             getenv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		DataDir:                  getenv("DATA_DIR", "./data"),
		DataFormat:               getenv("DATA_FORMAT", "json"),
		KeyPrefix:                getenv("STATE_KEY_PREFIX", "zikr:"),
		LineChannelToken:         os.Getenv("LINE_CHANNEL_TOKEN"),
		LineChannelSecret:        os.Getenv("LINE_CHANNEL_SECRET"),
		LogLevel:                 getenv("LOG_LEVEL", "info"),
		Location:                 time.Local,
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB must be an integer: %w", err)
		}
		cfg.RedisDB = db
	}

	if tz := os.Getenv("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
		}
		cfg.Location = loc
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the chosen backend has what it needs.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFirestore:
		if c.ProjectID == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the firestore backend")
		}
	case BackendRedis:
		if c.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required for the redis backend")
		}
	case BackendFile:
		if c.DataFormat != "json" && c.DataFormat != "yaml" {
			return fmt.Errorf("DATA_FORMAT must be json or yaml, got %q", c.DataFormat)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if (c.LineChannelToken == "") != (c.LineChannelSecret == "") {
		return fmt.Errorf("LINE_CHANNEL_TOKEN and LINE_CHANNEL_SECRET must be set together")
	}
	return nil
}

// LineEnabled reports whether the LINE webhook should be served.
func (c *Config) LineEnabled() bool {
	return c.LineChannelToken != "" && c.LineChannelSecret != ""
}
