package config

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yukikurage/role-task-api/internal/models"
	"github.com/yukikurage/role-task-api/internal/utils"
)

type Config struct {
	AppPort    string
	GinMode    string
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string
	RedisAddr  string

	JWTSecret string
	JWTTTL    time.Duration

	RegistrationKeyManager    string
	RegistrationKeySuperAdmin string

	CORSOrigins        []string
	CORSOriginSuffixes []string

	RateLimitPerMinute int
	TrustedProxies     []string
	ShutdownTimeout    time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env file not found, using environment variables")
	}

	ttlHours, err := getEnvAsInt("JWT_TTL_HOURS", 24*7)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return nil, err
	}
	shutdown, err := getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 20)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppPort:    getEnv("APP_PORT", "8080"),
		GinMode:    getEnv("GIN_MODE", "debug"),
		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "taskuser"),
		DBPassword: getEnv("DB_PASSWORD", "taskpassword"),
		DBName:     getEnv("DB_NAME", "task_management"),
		DBPath:     getEnv("DB_PATH", "tasks.db"),
		RedisAddr:  getEnv("REDIS_ADDR", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    time.Duration(ttlHours) * time.Hour,

		RegistrationKeyManager:    getEnv("REGISTRATION_KEY_MANAGER", ""),
		RegistrationKeySuperAdmin: getEnv("REGISTRATION_KEY_SUPER_ADMIN", ""),

		CORSOrigins:        splitList(getEnv("CORS_ORIGIN", "")),
		CORSOriginSuffixes: splitList(getEnv("CORS_ORIGIN_SUFFIXES", ".vercel.app")),

		RateLimitPerMinute: rateLimit,
		TrustedProxies:     splitList(getEnv("TRUSTED_PROXIES", "")),
		ShutdownTimeout:    time.Duration(shutdown) * time.Second,
	}

	if cfg.JWTSecret == "" && cfg.GinMode != "release" {
		secret, err := utils.RandomSecret(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate development JWT secret: %w", err)
		}
		slog.Warn("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
		cfg.JWTSecret = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be one of mysql, postgres, sqlite (got %q)", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set in release mode")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL_HOURS must be greater than 0")
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be greater than 0")
	}
	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", proxy)
		}
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT_SECONDS must be greater than 0")
	}
	return nil
}

// RegistrationVerifier reports whether key unlocks self-registration with
// the given privileged role. Roles without a configured key can never be
// self-registered.
func (c *Config) RegistrationVerifier() func(role models.RoleTitle, key string) bool {
	keys := map[models.RoleTitle]string{
		models.RoleManager:    c.RegistrationKeyManager,
		models.RoleSuperAdmin: c.RegistrationKeySuperAdmin,
	}
	return func(role models.RoleTitle, key string) bool {
		expected := keys[role]
		if expected == "" || key == "" {
			return false
		}
		return subtle.ConstantTimeCompare([]byte(expected), []byte(key)) == 1
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %w", key, err)
	}
	return i, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
