package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
)

type Config struct {
	App struct {
		Name      string `envconfig:"APP_NAME" default:"Receivables"`
		Port      int    `envconfig:"PORT" default:"8080"`
		LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
		LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
		// Store selects the unit repository: memory or postgres.
		Store string `envconfig:"STORE" default:"postgres" validate:"oneof=memory postgres"`
		// ReferenceDate pins the classification date (YYYY-MM-DD) for demos.
		ReferenceDate string   `envconfig:"REFERENCE_DATE"`
		CORSOrigins   []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`
	}

	DB struct {
		URL         string `envconfig:"DATABASE_URL"`
		SupabaseURL string `envconfig:"SUPABASE_DB_URL"`
		Host        string `envconfig:"DB_HOST" default:"localhost"`
		Port        int    `envconfig:"DB_PORT" default:"5432"`
		User        string `envconfig:"DB_USER" default:"postgres"`
		Password    string `envconfig:"DB_PASSWORD" default:""`
		Name        string `envconfig:"DB_NAME" default:"receivables"`
		Migrate     bool   `envconfig:"DB_MIGRATE" default:"true"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Auth struct {
		// JWTSecret signs access tokens. Required unless STORE=memory.
		JWTSecret string        `envconfig:"JWT_SECRET"`
		TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"12h"`
	}

	Classifier struct {
		CycleDays    int `envconfig:"CYCLE_DAYS" default:"30"`
		AtRiskDays   int `envconfig:"AT_RISK_DAYS" default:"45"`
		OverdueDays  int `envconfig:"OVERDUE_DAYS" default:"75"`
		CriticalDays int `envconfig:"CRITICAL_DAYS" default:"120"`
	}

	AMQP struct {
		URL        string `envconfig:"AMQP_URL"`
		Exchange   string `envconfig:"AMQP_EXCHANGE" default:"receivables.reminders"`
		RoutingKey string `envconfig:"AMQP_ROUTING_KEY" default:"reminder.created"`
	}

	Notify struct {
		SendGridAPIKey   string `envconfig:"SENDGRID_API_KEY"`
		FromEmail        string `envconfig:"NOTIFY_FROM_EMAIL"`
		FromName         string `envconfig:"NOTIFY_FROM_NAME" default:"Collections"`
		Sandbox          bool   `envconfig:"SENDGRID_SANDBOX" default:"false"`
		TwilioAccountSID string `envconfig:"TWILIO_ACCOUNT_SID"`
		TwilioAuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`
		FromPhone        string `envconfig:"TWILIO_FROM_PHONE"`
	}

	Reminder struct {
		// Schedule is a cron expression for unattended dispatch. Empty disables it.
		Schedule string `envconfig:"REMINDER_SCHEDULE"`
	}

	Seed struct {
		OrgName       string `envconfig:"SEED_ORG_NAME" default:"Sunrise Estates" validate:"required"`
		OrgSlug       string `envconfig:"SEED_ORG_SLUG" default:"sunrise-estates" validate:"required,lowercase"`
		AdminEmail    string `envconfig:"SEED_ADMIN_EMAIL" default:"admin@sunrise.test" validate:"required,email"`
		AdminPassword string `envconfig:"SEED_ADMIN_PASSWORD" default:"demo1234" validate:"required,min=8"`
		Units         int    `envconfig:"SEED_UNITS" default:"60" validate:"min=9,max=5000"`
		Seed          uint64 `envconfig:"SEED_RANDOM" default:"42"`
	}

	Backup struct {
		Dir    string   `envconfig:"BACKUP_DIR" default:"backups"`
		Tables []string `envconfig:"BACKUP_TABLES"`
	}
}

// ConnectionString prefers an explicit URL over the discrete DB settings.
func (c *Config) ConnectionString() string {
	if c.DB.SupabaseURL != "" {
		return c.DB.SupabaseURL
	}

	if c.DB.URL != "" {
		return c.DB.URL
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// Policy returns the validated aging thresholds.
func (c *Config) Policy() (lifecycle.Policy, error) {
	p := lifecycle.Policy{
		CycleDays:    c.Classifier.CycleDays,
		AtRiskDays:   c.Classifier.AtRiskDays,
		OverdueDays:  c.Classifier.OverdueDays,
		CriticalDays: c.Classifier.CriticalDays,
	}

	if err := p.Validate(); err != nil {
		return lifecycle.Policy{}, err
	}

	return p, nil
}

// Clock returns the reference date source: the pinned date when set, else time.Now.
func (c *Config) Clock() (func() time.Time, error) {
	if c.App.ReferenceDate == "" {
		return time.Now, nil
	}

	ref, err := time.Parse(time.DateOnly, c.App.ReferenceDate)
	if err != nil {
		return nil, fmt.Errorf("parsing REFERENCE_DATE: %w", err)
	}

	return func() time.Time { return ref }, nil
}

const minSecretLen = 32

var ErrWeakSecret = errors.New("JWT_SECRET must be set to at least 32 characters")

var validate = validator.New()

// Validate checks the field constraints of every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// TokenSecret returns the JWT signing secret. Only the memory store may run
// without one, in which case a random secret lives as long as the process.
func (c *Config) TokenSecret() (string, error) {
	if len(c.Auth.JWTSecret) >= minSecretLen {
		return c.Auth.JWTSecret, nil
	}

	if c.App.Store != "memory" || c.Auth.JWTSecret != "" {
		return "", ErrWeakSecret
	}

	slog.Warn("JWT_SECRET not set, using a per-process secret for the memory store")

	return rand.Text() + rand.Text(), nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
