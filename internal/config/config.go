package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

const (
	minAuthSecretLength    = 32
	minAgentPasswordLength = 8
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	LogLevel              string
	LogFormat             string
	StoreDriver           string
	SQLitePath            string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	StatsCacheTTLSeconds  int
	AuthSecret            string
	AccessTokenTTLMinutes int
	AgentUsername         string
	AgentPassword         string
	SyncURL               string
	SyncToken             string
	SyncTimeoutSeconds    int
	MaxImportBytes        int64
}

// Load reads the process environment, after applying a .env file when one
// exists in the working directory.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
		SQLitePath:            strings.TrimSpace(os.Getenv("SQLITE_PATH")),
		DatabaseURL:           strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisAddr:             strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		StatsCacheTTLSeconds:  getPositiveInt("STATS_CACHE_TTL_SECONDS", 30),
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: getPositiveInt("ACCESS_TOKEN_TTL_MINUTES", 480),
		AgentUsername:         getEnv("AGENT_USERNAME", "agent"),
		AgentPassword:         strings.TrimSpace(os.Getenv("AGENT_PASSWORD")),
		SyncURL:               strings.TrimSpace(os.Getenv("SYNC_URL")),
		SyncToken:             strings.TrimSpace(os.Getenv("SYNC_TOKEN")),
		SyncTimeoutSeconds:    getPositiveInt("SYNC_TIMEOUT_SECONDS", 15),
		MaxImportBytes:        int64(getPositiveInt("MAX_IMPORT_BYTES", 10<<20)),
	}
	cfg.StoreDriver = resolveDriver(strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER"))), cfg)

	return cfg
}

func resolveDriver(explicit string, cfg Config) string {
	if explicit != "" {
		return explicit
	}
	switch {
	case cfg.DatabaseURL != "":
		return DriverPostgres
	case cfg.SQLitePath != "":
		return DriverSQLite
	default:
		return DriverMemory
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) StatsCacheTTL() time.Duration {
	return time.Duration(c.StatsCacheTTLSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func (c Config) SyncTimeout() time.Duration {
	return time.Duration(c.SyncTimeoutSeconds) * time.Second
}

// Validate rejects configurations the server must not start with.
func (c Config) Validate() error {
	if len(c.AuthSecret) < minAuthSecretLength {
		return fmt.Errorf("AUTH_SECRET must be set and at least %d characters", minAuthSecretLength)
	}
	if strings.TrimSpace(c.AgentUsername) == "" {
		return errors.New("AGENT_USERNAME must not be empty")
	}
	if len(c.AgentPassword) < minAgentPasswordLength {
		return fmt.Errorf("AGENT_PASSWORD must be set and at least %d characters", minAgentPasswordLength)
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite store")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

func getEnv(key string, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}

func getPositiveInt(key string, fallback int) int {
	val, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || val < 1 {
		return fallback
	}
	return val
}
