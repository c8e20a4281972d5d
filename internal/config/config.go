// Package config holds the runtime configuration knobs of the service.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`

	DBDSN      string `envconfig:"DB_DSN"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName     string `envconfig:"DB_NAME" default:"petshop"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// SweepInterval is how often the expiration sweeper scans ready
	// orders; PickupWindow is the default expiry window applied on the
	// placed → ready transition. The window is also editable at runtime
	// through the settings table, which wins over this default.
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	PickupWindow   time.Duration `envconfig:"PICKUP_WINDOW" default:"72h"`
	NotifyInterval time.Duration `envconfig:"NOTIFY_INTERVAL" default:"30s"`

	// LowStockThreshold is the global alert floor; per-variant thresholds
	// and the settings table override it.
	LowStockThreshold int `envconfig:"LOW_STOCK_THRESHOLD" default:"5"`

	SessionKey         string `envconfig:"SESSION_KEY" default:"dev-insecure"`
	AdminAllowedEmails string `envconfig:"ADMIN_ALLOWED_EMAILS"`
	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	BaseURL            string `envconfig:"BASE_URL" default:"http://localhost:8080"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DSN assembles the postgres connection string unless DB_DSN overrides it.
func (c Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}
