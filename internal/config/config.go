package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"

	SequenceDatabase = "database"
	SequenceRedis    = "redis"
)

const (
	defaultDSN     = "host=localhost user=postgres password=postgres dbname=krishi port=5432 sslmode=disable"
	defaultOrigins = "http://localhost:5173"
	devSecret      = "krishi-development-secret-change-me-please"
)

type Config struct {
	HTTPPort       string
	Env            string
	DBDriver       string
	DatabaseDSN    string
	MongoURI       string
	MongoDatabase  string
	JWTSecret      string
	JWTTTL         time.Duration
	CORSOrigins    string
	SequenceSource string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	StatsCacheTTL  time.Duration
	RequestTimeout time.Duration
	LogLevel       string
}

func (c *Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_DSN", defaultDSN)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "krishi")
	v.SetDefault("JWT_TTL", "168h")
	v.SetDefault("CORS_ALLOWED_ORIGINS", defaultOrigins)
	v.SetDefault("SEQUENCE_BACKEND", SequenceDatabase)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("STATS_CACHE_TTL", "30s")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		HTTPPort:       v.GetString("HTTP_PORT"),
		Env:            strings.ToLower(v.GetString("APP_ENV")),
		DBDriver:       strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		MongoURI:       v.GetString("MONGO_URI"),
		MongoDatabase:  v.GetString("MONGO_DATABASE"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTTTL:         v.GetDuration("JWT_TTL"),
		CORSOrigins:    v.GetString("CORS_ALLOWED_ORIGINS"),
		SequenceSource: strings.ToLower(v.GetString("SEQUENCE_BACKEND")),
		RedisAddr:      v.GetString("REDIS_ADDR"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		RedisDB:        v.GetInt("REDIS_DB"),
		StatsCacheTTL:  v.GetDuration("STATS_CACHE_TTL"),
		RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		LogLevel:       strings.ToLower(v.GetString("LOG_LEVEL")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER must be one of postgres, mongo, memory; got %q", c.DBDriver)
	}
	switch c.SequenceSource {
	case SequenceDatabase:
	case SequenceRedis:
		if c.RedisAddr == "" {
			return errors.New("SEQUENCE_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("SEQUENCE_BACKEND must be database or redis; got %q", c.SequenceSource)
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}

	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("JWT_SECRET is required outside development")
		}
		log.Println("[WARN] JWT_SECRET not set, using the built-in development secret.")
		c.JWTSecret = devSecret
	}
	if len(c.JWTSecret) < 32 && !c.IsDevelopment() {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}

	if c.DBDriver == DriverPostgres && c.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN is using the default value, set your own Postgres connection for production.")
	}
	if c.DBDriver == DriverMemory {
		log.Println("[WARN] DB_DRIVER=memory, data is lost on restart.")
	}
	if c.CORSOrigins == defaultOrigins {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS is using the default value, set your own domain for production.")
	}
	return nil
}
