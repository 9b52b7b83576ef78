// Package config holds the option groups shared by the resupply binaries.
// Every key is read from the RP_* environment and is mandatory: a missing
// key fails the parse before the process does any work.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Database configures the PostGIS connection.
type Database struct {
	User     string `long:"db-user" env:"RP_DB_USER" required:"true" description:"Database user"`
	Password string `long:"db-password" env:"RP_DB_PASSWORD" required:"true" description:"Database password"`
	Host     string `long:"db-host" env:"RP_DB_HOST" required:"true" description:"Database host"`
	Port     string `long:"db-port" env:"RP_DB_PORT" required:"true" description:"Database port"`
	Database string `long:"db-database" env:"RP_DB_DATABASE" required:"true" description:"Database name"`
}

// DSN builds a postgres:// URL for pgx.
func (d Database) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host, d.Port, d.Database)
}

// Relay configures the upstream EDDN subscription.
type Relay struct {
	URL       string `long:"eddn-relay" env:"RP_EDDN_RELAY" required:"true" description:"EDDN relay URL (tcp://host:port)"`
	TimeoutMS int    `long:"eddn-relay-timeout" env:"RP_EDDN_RELAY_TIMEOUT" required:"true" description:"Receive timeout in milliseconds"`
}

// Timeout returns the receive timeout as a duration.
func (r Relay) Timeout() time.Duration {
	return time.Duration(r.TimeoutMS) * time.Millisecond
}

// Logging configures log level and log-file retention.
type Logging struct {
	Level         string `long:"log-level" env:"RP_LOG_LEVEL" required:"true" description:"Log level (debug, info, warn, error)" choice:"debug" choice:"info" choice:"warn" choice:"error"`
	RetentionDays int    `long:"log-retention-days" env:"RP_LOG_RETENTION_DAYS" required:"true" description:"Days to keep rotated log files"`
}

// MustParse parses flags and environment into |cfg|, exiting on error.
// Positional arguments, if any, are returned to the caller.
func MustParse(cfg interface{}) []string {
	var parser = flags.NewParser(cfg, flags.Default)

	args, err := parser.Parse()
	if err != nil {
		// go-flags already printed --help output for ErrHelp.
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	return args
}
