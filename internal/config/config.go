package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"thegrid/internal/model"
)

// Store backends.
const (
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
	BackendDatastore = "datastore"
)

type Config struct {
	ServerPort string

	StoreBackend    string
	DBHost          string
	DBPort          string
	DBUser          string
	DBPassword      string
	DBName          string
	SQLitePath      string
	GCPProjectID    string
	TasksCollection string
	PollInterval    time.Duration
	StoreTimeout    time.Duration

	CalendarEnabled         bool
	CalendarCredentialsFile string
	CalendarTokenFile       string
	CalendarID              string
	CalendarTimeZone        string
	CalendarRedirectURL     string
	CalendarTimeout         time.Duration
	DurationGranularity     int

	JWTSecret      string
	JWTExpiryHours int

	LogLevel  string
	LogFormat string
}

var defaults = map[string]interface{}{
	"SERVER_PORT":               "8080",
	"STORE_BACKEND":             BackendSQLite,
	"DB_HOST":                   "localhost",
	"DB_PORT":                   "5432",
	"DB_USER":                   "grid_user",
	"DB_PASSWORD":               "grid_pass",
	"DB_NAME":                   "grid_db",
	"SQLITE_PATH":               "grid.db",
	"GCP_PROJECT_ID":            "",
	"TASKS_COLLECTION":          "tasks",
	"POLL_INTERVAL":             "2s",
	"STORE_TIMEOUT":             "10s",
	"CALENDAR_ENABLED":          true,
	"CALENDAR_CREDENTIALS_FILE": "credentials.json",
	"CALENDAR_TOKEN_FILE":       "token.json",
	"CALENDAR_ID":               "primary",
	"CALENDAR_TIME_ZONE":        "America/New_York",
	"CALENDAR_REDIRECT_URL":     "http://localhost:8080/calendar/callback",
	"CALENDAR_TIMEOUT":          "15s",
	"DURATION_GRANULARITY":      15,
	"JWT_SECRET":                "",
	"JWT_EXPIRY_HOURS":          24,
	"LOG_LEVEL":                 "info",
	"LOG_FORMAT":                "console",
}

// Load reads .env (if present), an optional grid.yaml from the working
// directory or configFile, and the environment. Environment wins.
func Load(configFile string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("grid")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		ServerPort:              v.GetString("SERVER_PORT"),
		StoreBackend:            strings.ToLower(v.GetString("STORE_BACKEND")),
		DBHost:                  v.GetString("DB_HOST"),
		DBPort:                  v.GetString("DB_PORT"),
		DBUser:                  v.GetString("DB_USER"),
		DBPassword:              v.GetString("DB_PASSWORD"),
		DBName:                  v.GetString("DB_NAME"),
		SQLitePath:              v.GetString("SQLITE_PATH"),
		GCPProjectID:            v.GetString("GCP_PROJECT_ID"),
		TasksCollection:         v.GetString("TASKS_COLLECTION"),
		PollInterval:            v.GetDuration("POLL_INTERVAL"),
		StoreTimeout:            v.GetDuration("STORE_TIMEOUT"),
		CalendarEnabled:         v.GetBool("CALENDAR_ENABLED"),
		CalendarCredentialsFile: v.GetString("CALENDAR_CREDENTIALS_FILE"),
		CalendarTokenFile:       v.GetString("CALENDAR_TOKEN_FILE"),
		CalendarID:              v.GetString("CALENDAR_ID"),
		CalendarTimeZone:        v.GetString("CALENDAR_TIME_ZONE"),
		CalendarRedirectURL:     v.GetString("CALENDAR_REDIRECT_URL"),
		CalendarTimeout:         v.GetDuration("CALENDAR_TIMEOUT"),
		DurationGranularity:     v.GetInt("DURATION_GRANULARITY"),
		JWTSecret:               v.GetString("JWT_SECRET"),
		JWTExpiryHours:          v.GetInt("JWT_EXPIRY_HOURS"),
		LogLevel:                v.GetString("LOG_LEVEL"),
		LogFormat:               v.GetString("LOG_FORMAT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQLite, BackendPostgres:
	case BackendFirestore, BackendDatastore:
		if c.GCPProjectID == "" {
			return fmt.Errorf("GCP_PROJECT_ID is required for the %s backend", c.StoreBackend)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.DurationGranularity <= 0 {
		return fmt.Errorf("DURATION_GRANULARITY must be positive, got %d", c.DurationGranularity)
	}
	if model.DefaultDuration%c.DurationGranularity != 0 {
		return fmt.Errorf("DURATION_GRANULARITY must divide the default duration of %d minutes, got %d",
			model.DefaultDuration, c.DurationGranularity)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if _, err := time.LoadLocation(c.CalendarTimeZone); err != nil {
		return fmt.Errorf("CALENDAR_TIME_ZONE: %w", err)
	}
	return nil
}

// PostgresDSN builds the connection string for the postgres backend.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}
