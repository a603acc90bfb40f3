package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP      HTTPConfig
	Storage   StorageConfig
	Graph     GraphConfig
	Auth      AuthConfig
	Telegram  TelegramConfig
	Notify    NotifyConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	Location  *time.Location
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	AllowedOriginsCSV string
}

// StorageConfig selects and configures the ledger store.
type StorageConfig struct {
	Driver         string // postgres|memory
	DatabaseURL    string
	MaxConns       int
	MigrateOnStart bool
}

// GraphConfig describes connectivity to the graph database. An empty URI
// disables the debt projection.
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// Enabled reports whether a graph URI is configured.
func (g GraphConfig) Enabled() bool {
	return g.URI != ""
}

// AuthConfig holds the bearer token settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// TelegramConfig enables notification delivery through a Telegram bot.
type TelegramConfig struct {
	BotToken string
}

// NotifyConfig sizes the asynchronous delivery queue.
type NotifyConfig struct {
	QueueSize int
	Workers   int
}

// SchedulerConfig controls the daily maintenance passes.
type SchedulerConfig struct {
	Enabled        bool
	RunHour        int
	Workers        int
	ReminderDays   []int
	ReminderDedupe time.Duration
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// ErrMissingSecret is returned when AUTH_JWT_SECRET is not set.
var ErrMissingSecret = errors.New("AUTH_JWT_SECRET is required")

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 15 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultGraphMaxSessions = 10
	defaultDBMaxConns       = 10
	defaultTokenTTL         = 24 * time.Hour
	defaultQueueSize        = 256
	defaultNotifyWorkers    = 2
	defaultSchedulerHour    = 9
	defaultSchedulerWorkers = 4
	defaultReminderDays     = "3,1,0"
	defaultReminderDedupe   = 20 * time.Hour
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:              valueOrDefault("SERVER_HOST", defaultHost),
			AllowedOriginsCSV: os.Getenv("SERVER_ALLOWED_ORIGINS"),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(valueOrDefault("STORAGE_DRIVER", StorageDriverPostgres)),
			DatabaseURL:    os.Getenv("DATABASE_URL"),
			MaxConns:       parseIntWithDefault("DATABASE_MAX_CONNS", defaultDBMaxConns),
			MigrateOnStart: parseBoolWithDefault("DATABASE_MIGRATE_ON_START", false),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       valueOrDefault("GRAPH_DATABASE", ""),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
		},
		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
		Notify: NotifyConfig{
			QueueSize: parseIntWithDefault("NOTIFY_QUEUE_SIZE", defaultQueueSize),
			Workers:   parseIntWithDefault("NOTIFY_WORKERS", defaultNotifyWorkers),
		},
		Scheduler: SchedulerConfig{
			Enabled: parseBoolWithDefault("SCHEDULER_ENABLED", true),
			Workers: parseIntWithDefault("SCHEDULER_WORKERS", defaultSchedulerWorkers),
		},
	}

	switch cfg.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_DRIVER %q", cfg.Storage.Driver)
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", defaultReadTimeout, &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", defaultWriteTimeout, &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", defaultIdleTimeout, &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout, &cfg.HTTP.ShutdownTimeout},
		{"AUTH_TOKEN_TTL", defaultTokenTTL, &cfg.Auth.TokenTTL},
		{"REMINDER_DEDUPE_WINDOW", defaultReminderDedupe, &cfg.Scheduler.ReminderDedupe},
	}
	for _, d := range durations {
		v, err := parseDuration(d.key, d.fallback)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	hour := parseIntWithDefault("SCHEDULER_RUN_HOUR", defaultSchedulerHour)
	if hour < 0 || hour > 23 {
		return Config{}, fmt.Errorf("SCHEDULER_RUN_HOUR %d is out of range", hour)
	}
	cfg.Scheduler.RunHour = hour

	days, err := parseDays(valueOrDefault("REMINDER_DAYS_BEFORE", defaultReminderDays))
	if err != nil {
		return Config{}, err
	}
	cfg.Scheduler.ReminderDays = days

	loc, err := time.LoadLocation(valueOrDefault("APP_TIMEZONE", "UTC"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.Auth.JWTSecret == "" {
		return Config{}, ErrMissingSecret
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}

// parseDays reads a comma separated list of non-negative day offsets,
// dropping duplicates and returning them in descending order.
func parseDays(csv string) ([]int, error) {
	seen := map[int]bool{}
	var out []int
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid REMINDER_DAYS_BEFORE entry %q", part)
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out, nil
}
