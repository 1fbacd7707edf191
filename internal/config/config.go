// Package config resolves the runtime configuration from Viper, which in
// turn merges config file values, environment variables, and .env files
// loaded at startup. Keys map to environment variables by replacing dots
// with underscores: ftp.host <- FTP_HOST, ebay.dev_id <- EBAY_DEV_ID.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/bookbridge/shelfsync/internal/ebay"
	"github.com/bookbridge/shelfsync/internal/feeds"
	"github.com/bookbridge/shelfsync/pkg/discovery"
	"github.com/bookbridge/shelfsync/pkg/errors"
	"github.com/bookbridge/shelfsync/pkg/propagate"
)

// Recognized configuration keys.
const (
	KeyDatabaseURL  = "database.url"
	KeyFTPHost      = "ftp.host"
	KeyFTPUser      = "ftp.user"
	KeyFTPPass      = "ftp.pass"
	KeyFTPPath      = "ftp.path"
	KeyEBayDevID    = "ebay.dev_id"
	KeyEBayAppID    = "ebay.app_id"
	KeyEBayCertID   = "ebay.cert_id"
	KeyEBayToken    = "ebay.token"
	KeyEBayEndpoint = "ebay.endpoint"
	KeyMinStock     = "discovery.min_stock"
	KeyRunID        = "run.id"
	KeyInterval     = "propagate.interval"
)

// Config is the resolved runtime configuration.
type Config struct {
	DatabaseURL string
	FTP         feeds.FTPConfig
	EBay        ebay.Credentials
	EBayURL     string

	// MinStock is the discovery admission threshold. The only optional
	// knob with a documented default.
	MinStock int

	// RunID names the reconciliation run; it keys the audit rows. Empty
	// means the caller generates one.
	RunID string

	// Interval is the cool-down between marketplace calls.
	Interval time.Duration
}

// SetDefaults registers defaults on Viper. Call once at startup.
func SetDefaults() {
	viper.SetDefault(KeyFTPPath, "/")
	viper.SetDefault(KeyEBayEndpoint, ebay.DefaultEndpoint)
	viper.SetDefault(KeyMinStock, discovery.DefaultMinStock)
	viper.SetDefault(KeyInterval, propagate.DefaultInterval)
}

// Load reads the resolved configuration from Viper.
func Load() *Config {
	return &Config{
		DatabaseURL: viper.GetString(KeyDatabaseURL),
		FTP: feeds.FTPConfig{
			Host:     viper.GetString(KeyFTPHost),
			User:     viper.GetString(KeyFTPUser),
			Password: viper.GetString(KeyFTPPass),
			Path:     viper.GetString(KeyFTPPath),
		},
		EBay: ebay.Credentials{
			DevID:  viper.GetString(KeyEBayDevID),
			AppID:  viper.GetString(KeyEBayAppID),
			CertID: viper.GetString(KeyEBayCertID),
			Token:  viper.GetString(KeyEBayToken),
		},
		EBayURL:  viper.GetString(KeyEBayEndpoint),
		MinStock: viper.GetInt(KeyMinStock),
		RunID:    viper.GetString(KeyRunID),
		Interval: viper.GetDuration(KeyInterval),
	}
}

// ValidateRefresh checks the keys a refresh run requires. Missing values
// are fatal-setup: the run aborts before any mutation.
func (c *Config) ValidateRefresh() error {
	if c.DatabaseURL == "" {
		return errors.NewConfigError(KeyDatabaseURL, "inventory database connection is required")
	}
	if c.FTP.Host == "" || c.FTP.User == "" || c.FTP.Password == "" {
		return errors.NewConfigError("ftp.*", "feed server host, user, and pass are required")
	}
	return nil
}

// ValidatePropagate checks the keys a propagation run requires.
func (c *Config) ValidatePropagate() error {
	if c.DatabaseURL == "" {
		return errors.NewConfigError(KeyDatabaseURL, "inventory database connection is required")
	}
	if c.EBay.DevID == "" || c.EBay.AppID == "" || c.EBay.CertID == "" || c.EBay.Token == "" {
		return errors.NewConfigError("ebay.*", "marketplace dev_id, app_id, cert_id, and token are required")
	}
	if c.RunID == "" {
		return errors.NewConfigError(KeyRunID, "run identifier of the refresh to propagate is required")
	}
	return nil
}

// GenerateRunID builds the default run identifier from the start time.
func GenerateRunID(now time.Time) string {
	return "refresh_" + now.UTC().Format("20060102_150405")
}
