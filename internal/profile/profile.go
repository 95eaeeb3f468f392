package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where studyhub stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the public url of the instance, used in feed links.
	InstanceURL string

	// Secret signs and verifies bearer tokens.
	Secret string

	// Redis backs the shared plan cache and the reminder channel. Empty RedisAddr disables both.
	RedisAddr     string // STUDYHUB_REDIS_ADDR
	RedisPassword string // STUDYHUB_REDIS_PASSWORD
	RedisDB       int    // STUDYHUB_REDIS_DB
	RedisChannel  string // STUDYHUB_REDIS_CHANNEL (default: studyhub:reminders)

	ReminderInterval time.Duration // STUDYHUB_REMINDER_INTERVAL (default: 1m)
	AnalyticsEnabled bool          // STUDYHUB_ANALYTICS_ENABLED (default: true)
	// Timezone anchors analytics periods.
	Timezone string // STUDYHUB_TIMEZONE (default: UTC)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Location returns the analytics time zone, falling back to UTC.
func (p *Profile) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		slog.Warn("invalid timezone, using UTC", slog.String("timezone", p.Timezone))
		return time.UTC
	}
	return loc
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads the optional integrations from STUDYHUB_* environment variables.
// Values already set on the profile win.
func (p *Profile) FromEnv() {
	if p.Secret == "" {
		p.Secret = os.Getenv("STUDYHUB_SECRET")
	}
	if p.RedisAddr == "" {
		p.RedisAddr = os.Getenv("STUDYHUB_REDIS_ADDR")
	}
	if p.RedisPassword == "" {
		p.RedisPassword = os.Getenv("STUDYHUB_REDIS_PASSWORD")
	}
	if v, err := strconv.Atoi(os.Getenv("STUDYHUB_REDIS_DB")); err == nil && p.RedisDB == 0 {
		p.RedisDB = v
	}
	if p.RedisChannel == "" {
		p.RedisChannel = getEnvOrDefault("STUDYHUB_REDIS_CHANNEL", "studyhub:reminders")
	}
	if p.ReminderInterval == 0 {
		p.ReminderInterval = time.Minute
		if v, err := time.ParseDuration(os.Getenv("STUDYHUB_REMINDER_INTERVAL")); err == nil && v > 0 {
			p.ReminderInterval = v
		}
	}
	p.AnalyticsEnabled = getEnvOrDefault("STUDYHUB_ANALYTICS_ENABLED", "true") == "true"
	if p.Timezone == "" {
		p.Timezone = getEnvOrDefault("STUDYHUB_TIMEZONE", "UTC")
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q", p.Driver)
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "studyhub")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/studyhub"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("studyhub_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for postgres")
	}
	if p.Mode == "prod" && p.Secret == "" {
		return errors.New("secret is required in prod mode")
	}
	if p.Secret == "" {
		p.Secret = "studyhub-dev-secret"
	}

	return nil
}
