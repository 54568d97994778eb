package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
	Store       StoreConfig
	Realtime    RealtimeConfig
	Storage     StorageConfig
	Firebase    FirebaseConfig
	LLM         LLMConfig
	Ledger      LedgerConfig
	Auth        AuthConfig
}

type HTTPConfig struct {
	Host          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	MaxConn       int
	EnablePprof   bool
	EnableMetrics bool
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL       string
	Password  string
	DB        int
	KeyPrefix string
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// StoreConfig selects the remote store implementation: "postgres" or "memory".
type StoreConfig struct {
	Driver string
}

// RealtimeConfig controls change notifications and live view streams.
type RealtimeConfig struct {
	NotifyChannel  string
	ChannelPrefix  string
	RefetchTimeout time.Duration
	Heartbeat      time.Duration
}

// StorageConfig selects the blob store: "gcs" or "memory".
type StorageConfig struct {
	Driver          string
	Bucket          string
	CredentialsFile string
	MaxUploadBytes  int
}

type FirebaseConfig struct {
	Enabled         bool
	CredentialsFile string
}

type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// LedgerConfig locates the local record of orphaned storage objects.
type LedgerConfig struct {
	Path      string
	Retention time.Duration
	Schedule  string
}

type AuthConfig struct {
	SessionTTL    time.Duration
	ResetTokenTTL time.Duration
	ResetURL      string
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	storeDriver := getString("STORE_DRIVER", "postgres")
	storageDriver := "gcs"
	if storeDriver == "memory" {
		storageDriver = "memory"
	}

	cfg := &Config{
		AppName:     getString("APP_NAME", "teamspace"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:          getString("SERVER_HOST", "0.0.0.0"),
			Port:          getString("SERVER_PORT", "8080"),
			ReadTimeout:   getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			// Zero leaves live event streams open; fasthttp applies it to the whole response.
			WriteTimeout:  getDuration("SERVER_WRITE_TIMEOUT", 0),
			IdleTimeout:   getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:       getInt("SERVER_MAX_CONN", 0),
			EnablePprof:   getBool("SERVER_ENABLE_PPROF", false),
			EnableMetrics: getBool("SERVER_ENABLE_METRICS", false),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "teamspace"),
			User:            getString("DB_USER", "teamspace"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:       getString("REDIS_URL", "redis://localhost:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        getInt("REDIS_DB", 0),
			KeyPrefix: getString("REDIS_KEY_PREFIX", "teamspace"),
		},
		JWT: JWTConfig{
			Secret:   os.Getenv("JWT_SECRET"),
			Issuer:   getString("JWT_ISSUER", "teamspace"),
			TokenTTL: getDuration("JWT_TOKEN_TTL", 24*time.Hour),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
		Store: StoreConfig{
			Driver: storeDriver,
		},
		Realtime: RealtimeConfig{
			NotifyChannel:  getString("REALTIME_NOTIFY_CHANNEL", "workspace_changes"),
			ChannelPrefix:  getString("REALTIME_CHANNEL_PREFIX", "teamspace:changes"),
			RefetchTimeout: getDuration("REALTIME_REFETCH_TIMEOUT", 10*time.Second),
			Heartbeat:      getDuration("REALTIME_HEARTBEAT", 25*time.Second),
		},
		Storage: StorageConfig{
			Driver:          getString("STORAGE_DRIVER", storageDriver),
			Bucket:          os.Getenv("STORAGE_BUCKET"),
			CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			MaxUploadBytes:  getInt("STORAGE_MAX_UPLOAD_BYTES", 50<<20),
		},
		Firebase: FirebaseConfig{
			Enabled:         getBool("FIREBASE_ENABLED", false),
			CredentialsFile: getString("FIREBASE_CREDENTIALS_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		},
		LLM: LLMConfig{
			APIKey:      os.Getenv("LLM_API_KEY"),
			BaseURL:     os.Getenv("LLM_BASE_URL"),
			Model:       getString("LLM_MODEL", "gpt-4o-mini"),
			Temperature: getFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:   getInt("LLM_MAX_TOKENS", 1024),
		},
		Ledger: LedgerConfig{
			Path:      getString("LEDGER_PATH", "./data/ledger.db"),
			Retention: getDuration("LEDGER_RETENTION", 30*24*time.Hour),
			Schedule:  getString("LEDGER_SWEEP_SCHEDULE", "@every 1h"),
		},
		Auth: AuthConfig{
			SessionTTL:    getDuration("SESSION_TTL", 24*time.Hour),
			ResetTokenTTL: getDuration("RESET_TOKEN_TTL", time.Hour),
			ResetURL:      getString("RESET_PASSWORD_URL", "http://localhost:3000/reset-password"),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}
	if cfg.Store.Driver != "postgres" && cfg.Store.Driver != "memory" {
		return nil, fmt.Errorf("config: unknown STORE_DRIVER %q", cfg.Store.Driver)
	}
	if cfg.Storage.Driver != "gcs" && cfg.Storage.Driver != "memory" {
		return nil, fmt.Errorf("config: unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
	if cfg.Storage.Driver == "gcs" && cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("config: STORAGE_BUCKET is required for the gcs driver")
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// UsesMemoryStore reports whether the service runs without Postgres and Redis.
func (c *Config) UsesMemoryStore() bool {
	return c.Store.Driver == "memory"
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
