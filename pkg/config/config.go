package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	RecordStore   RecordStoreConfig
	Notifications NotificationConfig
	Scheduling    SchedulingConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RecordStoreConfig points at the external record store and names its tables.
type RecordStoreConfig struct {
	BaseURL        string
	BaseID         string
	APIKey         string
	Timeout        time.Duration
	LessonsTable   string
	StudentsTable  string
	TeachersTable  string
	GuardiansTable string
}

// NotificationConfig lists the automation endpoints receiving lesson payloads.
type NotificationConfig struct {
	SchedulingWebhookURL   string
	LessonReportWebhookURL string
	Timeout                time.Duration
}

// SchedulingConfig tunes the scheduling flow.
type SchedulingConfig struct {
	Timezone          string
	RunJournalEnabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.RecordStore = RecordStoreConfig{
		BaseURL:        strings.TrimRight(v.GetString("RECORD_STORE_URL"), "/"),
		BaseID:         v.GetString("RECORD_STORE_BASE_ID"),
		APIKey:         v.GetString("RECORD_STORE_API_KEY"),
		Timeout:        parseDuration(v.GetString("RECORD_STORE_TIMEOUT"), 15*time.Second),
		LessonsTable:   v.GetString("RECORD_STORE_LESSONS_TABLE"),
		StudentsTable:  v.GetString("RECORD_STORE_STUDENTS_TABLE"),
		TeachersTable:  v.GetString("RECORD_STORE_TEACHERS_TABLE"),
		GuardiansTable: v.GetString("RECORD_STORE_GUARDIANS_TABLE"),
	}

	cfg.Notifications = NotificationConfig{
		SchedulingWebhookURL:   strings.TrimSpace(v.GetString("SCHEDULING_WEBHOOK_URL")),
		LessonReportWebhookURL: strings.TrimSpace(v.GetString("LESSON_REPORT_WEBHOOK_URL")),
		Timeout:                parseDuration(v.GetString("NOTIFICATION_TIMEOUT"), 10*time.Second),
	}

	cfg.Scheduling = SchedulingConfig{
		Timezone:          v.GetString("BUSINESS_TIMEZONE"),
		RunJournalEnabled: v.GetBool("ENABLE_RUN_JOURNAL"),
	}

	return cfg, nil
}

// Validate fails fast on settings the service cannot run without.
func (c *Config) Validate() error {
	if c == nil {
		return appErrors.Clone(appErrors.ErrConfiguration, "configuration not loaded")
	}
	var missing []string
	if c.RecordStore.BaseURL == "" {
		missing = append(missing, "RECORD_STORE_URL")
	}
	if c.RecordStore.BaseID == "" {
		missing = append(missing, "RECORD_STORE_BASE_ID")
	}
	if c.RecordStore.APIKey == "" {
		missing = append(missing, "RECORD_STORE_API_KEY")
	}
	if c.Notifications.SchedulingWebhookURL == "" {
		missing = append(missing, "SCHEDULING_WEBHOOK_URL")
	}
	if c.Env == EnvProduction && (c.JWT.Secret == "" || c.JWT.Secret == "dev_secret") {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("missing required configuration: %s", strings.Join(missing, ", ")))
	}

	for key, raw := range map[string]string{
		"RECORD_STORE_URL":          c.RecordStore.BaseURL,
		"SCHEDULING_WEBHOOK_URL":    c.Notifications.SchedulingWebhookURL,
		"LESSON_REPORT_WEBHOOK_URL": c.Notifications.LessonReportWebhookURL,
	} {
		if raw == "" {
			continue
		}
		if err := validateURL(raw); err != nil {
			return appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, fmt.Sprintf("invalid %s", key))
		}
	}

	if _, err := c.Location(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "invalid BUSINESS_TIMEZONE")
	}
	return nil
}

// Location resolves the business timezone used to stamp "today".
func (c *Config) Location() (*time.Location, error) {
	if c == nil || c.Scheduling.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Scheduling.Timezone)
}

// HTTPClient builds the client shared by outbound record-store calls.
func (c RecordStoreConfig) HTTPClient() *http.Client {
	return &http.Client{Timeout: c.Timeout}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "lesson_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RECORD_STORE_URL", "https://api.airtable.com/v0")
	v.SetDefault("RECORD_STORE_BASE_ID", "")
	v.SetDefault("RECORD_STORE_API_KEY", "")
	v.SetDefault("RECORD_STORE_TIMEOUT", "15s")
	v.SetDefault("RECORD_STORE_LESSONS_TABLE", "Lessons")
	v.SetDefault("RECORD_STORE_STUDENTS_TABLE", "Students")
	v.SetDefault("RECORD_STORE_TEACHERS_TABLE", "Teachers")
	v.SetDefault("RECORD_STORE_GUARDIANS_TABLE", "Guardians")

	v.SetDefault("SCHEDULING_WEBHOOK_URL", "")
	v.SetDefault("LESSON_REPORT_WEBHOOK_URL", "")
	v.SetDefault("NOTIFICATION_TIMEOUT", "10s")

	v.SetDefault("BUSINESS_TIMEZONE", "UTC")
	v.SetDefault("ENABLE_RUN_JOURNAL", false)
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
