package environments

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Lock      LockConfig
	Gateway   GatewayConfig
	Dispatch  DispatchConfig
	Scheduler SchedulerConfig
	Recovery  RecoveryConfig
	Ledger    LedgerConfig
	Alert     AlertConfig
	Auth      AuthConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// LockConfig controls the cross-instance sweep lock.
type LockConfig struct {
	Enabled bool
	Key     string
	TTL     time.Duration
}

type GatewayConfig struct {
	SigningSecret string
	TokenTTL      time.Duration
	Timeout       time.Duration
	RetryCount    int
}

type DispatchConfig struct {
	MaxPages    int
	Concurrency int
	ClaimLimit  int
}

type SchedulerConfig struct {
	Interval  time.Duration
	AutoStart bool
}

type RecoveryConfig struct {
	StaleAfter  time.Duration
	MaxAttempts int
}

type LedgerConfig struct {
	MaxCASRetries   int
	BalanceCacheTTL time.Duration
}

type AlertConfig struct {
	WebhookURL     string
	IterationCount int
}

type AuthConfig struct {
	MessagesAPIKey  string
	SchedulerAPIKey string
	AdminAPIKey     string
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load reads the configuration from the environment. A .env file in the
// working directory, when present, is loaded first without overriding
// variables that are already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "dispatch"),
			Password: GetEnv("DB_PASSWORD", "dispatch123"),
			DBName:   GetEnv("DB_NAME", "sms_dispatch"),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Lock: LockConfig{
			Enabled: GetEnvAsBool("SWEEP_LOCK_ENABLED", true),
			Key:     GetEnv("SWEEP_LOCK_KEY", "sms-dispatch:sweep-lock"),
			TTL:     GetEnvAsDuration("SWEEP_LOCK_TTL", 2*time.Minute),
		},
		Gateway: GatewayConfig{
			SigningSecret: GetEnv("GATEWAY_SIGNING_SECRET", ""),
			TokenTTL:      GetEnvAsDuration("GATEWAY_TOKEN_TTL", 5*time.Minute),
			Timeout:       time.Duration(GetEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 30)) * time.Second,
			RetryCount:    GetEnvAsInt("GATEWAY_RETRY_COUNT", 0),
		},
		Dispatch: DispatchConfig{
			MaxPages:    GetEnvAsInt("DISPATCH_MAX_PAGES", 5),
			Concurrency: GetEnvAsInt("DISPATCH_CONCURRENCY", 8),
			ClaimLimit:  GetEnvAsInt("DISPATCH_CLAIM_LIMIT", 500),
		},
		Scheduler: SchedulerConfig{
			Interval:  GetEnvAsDuration("SCHEDULER_INTERVAL", time.Minute),
			AutoStart: GetEnvAsBool("AUTO_START_SCHEDULER", true),
		},
		Recovery: RecoveryConfig{
			StaleAfter:  GetEnvAsDuration("RECOVERY_STALE_AFTER", 10*time.Minute),
			MaxAttempts: GetEnvAsInt("RECOVERY_MAX_ATTEMPTS", 3),
		},
		Ledger: LedgerConfig{
			MaxCASRetries:   GetEnvAsInt("LEDGER_MAX_CAS_RETRIES", 5),
			BalanceCacheTTL: GetEnvAsDuration("BALANCE_CACHE_TTL", 30*time.Second),
		},
		Alert: AlertConfig{
			WebhookURL:     GetEnv("ALERT_WEBHOOK_URL", ""),
			IterationCount: GetEnvAsInt("ALERT_ITERATION_COUNT", 0),
		},
		Auth: AuthConfig{
			MessagesAPIKey:  GetEnv("MESSAGES_API_KEY", ""),
			SchedulerAPIKey: GetEnv("SCHEDULER_API_KEY", ""),
			AdminAPIKey:     GetEnv("ADMIN_API_KEY", ""),
		},
		Log: LogConfig{
			Level:      GetEnv("LOG_LEVEL", "info"),
			Format:     GetEnv("LOG_FORMAT", "text"),
			File:       GetEnv("LOG_FILE", ""),
			MaxSizeMB:  GetEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: GetEnvAsInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: GetEnvAsInt("LOG_MAX_AGE_DAYS", 28),
		},
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Dispatch.MaxPages < 1 {
		errs = append(errs, fmt.Errorf("DISPATCH_MAX_PAGES must be at least 1"))
	}
	if c.Dispatch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("DISPATCH_CONCURRENCY must be at least 1"))
	}
	if c.Dispatch.ClaimLimit < 1 {
		errs = append(errs, fmt.Errorf("DISPATCH_CLAIM_LIMIT must be at least 1"))
	}
	if c.Scheduler.Interval <= 0 {
		errs = append(errs, fmt.Errorf("SCHEDULER_INTERVAL must be positive"))
	}
	if c.Recovery.StaleAfter <= 0 {
		errs = append(errs, fmt.Errorf("RECOVERY_STALE_AFTER must be positive"))
	}
	if c.Recovery.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("RECOVERY_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Lock.Enabled && c.Lock.TTL <= 0 {
		errs = append(errs, fmt.Errorf("SWEEP_LOCK_TTL must be positive"))
	}

	return errors.Join(errs...)
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
