package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend names accepted by STORE_BACKEND, AUTH_BACKEND and BLOB_BACKEND
const (
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
	BackendFirebase  = "firebase"
	BackendLocal     = "local"
)

const defaultJWTSecret = "socialape-dev-secret-change-me"

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	MetricsPort string `mapstructure:"METRICS_PORT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	StoreBackend string `mapstructure:"STORE_BACKEND"`
	AuthBackend  string `mapstructure:"AUTH_BACKEND"`
	BlobBackend  string `mapstructure:"BLOB_BACKEND"`

	FirebaseCredentialsPath string `mapstructure:"FIREBASE_CREDENTIALS_PATH"`
	FirebaseAPIKey          string `mapstructure:"FIREBASE_API_KEY"`
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`
	StorageBucket           string `mapstructure:"STORAGE_BUCKET"`

	PostgresURL   string `mapstructure:"POSTGRES_URL"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	RedisURL      string `mapstructure:"REDIS_URL"`
	NATSURL       string `mapstructure:"NATS_URL"`

	JWTSecret     string `mapstructure:"JWT_SECRET"`
	UploadDir     string `mapstructure:"UPLOAD_DIR"`
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`
	// EventsToken guards POST /events/firestore, required for Firestore
	EventsToken string `mapstructure:"EVENTS_TOKEN"`
}

// Load reads .env, config.yml and the environment, in increasing priority
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, assuming environment variables are set")
	}

	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config.yml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.AuthBackend = strings.ToLower(strings.TrimSpace(cfg.AuthBackend))
	cfg.BlobBackend = strings.ToLower(strings.TrimSpace(cfg.BlobBackend))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("METRICS_PORT", "9090")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("AUTH_BACKEND", BackendLocal)
	v.SetDefault("BLOB_BACKEND", BackendLocal)
	v.SetDefault("FIREBASE_CREDENTIALS_PATH", "")
	v.SetDefault("FIREBASE_API_KEY", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("STORAGE_BUCKET", "")
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DATABASE", "socialape")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("NATS_URL", "")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("UPLOAD_DIR", "/tmp/socialape/uploads")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("EVENTS_TOKEN", "")
}

// Validate rejects unknown backends and settings a chosen backend cannot
// run without
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	switch c.StoreBackend {
	case BackendFirestore:
		if c.FirebaseProjectID == "" && c.FirebaseCredentialsPath == "" {
			return errors.New("STORE_BACKEND=firestore needs FIREBASE_PROJECT_ID or FIREBASE_CREDENTIALS_PATH")
		}
		if c.EventsToken == "" {
			return errors.New("STORE_BACKEND=firestore needs EVENTS_TOKEN")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return errors.New("STORE_BACKEND=mongo needs MONGO_URI")
		}
	case BackendPostgres:
		if c.PostgresURL == "" {
			return errors.New("STORE_BACKEND=postgres needs POSTGRES_URL")
		}
	case BackendMemory:
		// a worker process cannot reach another process's memory
		if c.NATSURL != "" {
			return errors.New("NATS_URL needs a shared store, STORE_BACKEND=memory is per process")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.AuthBackend {
	case BackendFirebase:
		if c.FirebaseAPIKey == "" {
			return errors.New("AUTH_BACKEND=firebase needs FIREBASE_API_KEY")
		}
	case BackendLocal:
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required")
		}
		if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
	default:
		return fmt.Errorf("unknown AUTH_BACKEND %q", c.AuthBackend)
	}

	switch c.BlobBackend {
	case BackendFirebase:
		if c.StorageBucket == "" {
			return errors.New("BLOB_BACKEND=firebase needs STORAGE_BUCKET")
		}
	case BackendLocal:
		if c.UploadDir == "" {
			return errors.New("BLOB_BACKEND=local needs UPLOAD_DIR")
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// UsesFirebase reports whether any backend needs the Firebase app
func (c *Config) UsesFirebase() bool {
	return c.StoreBackend == BackendFirestore || c.AuthBackend == BackendFirebase || c.BlobBackend == BackendFirebase
}
