package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getmockd/kbase/pkg/logging"
	"github.com/getmockd/kbase/pkg/persistence"
)

// Validate checks the configuration for values no component can use.
func (c *Config) Validate() error {
	var errs []error

	checkPort := func(name string, port int) {
		if port < 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s %d is out of range (0-65535)", name, port))
		}
	}
	checkPort("admin.port", c.Admin.Port)
	if c.GRPC.Enabled {
		checkPort("grpc.port", c.GRPC.Port)
	}
	if c.MQTT.Enabled {
		checkPort("mqtt.port", c.MQTT.Port)
		if c.MQTT.Topic == "" {
			errs = append(errs, errors.New("mqtt.topic must not be empty"))
		} else if strings.ContainsAny(c.MQTT.Topic, "#+") {
			errs = append(errs, fmt.Errorf("mqtt.topic %q must not contain wildcards", c.MQTT.Topic))
		}
	}
	if c.Admin.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("admin.maxBodyBytes %d must not be negative", c.Admin.MaxBodyBytes))
	}

	driver, err := persistence.ParseDriver(c.Snapshot.Driver)
	if err != nil {
		errs = append(errs, fmt.Errorf("snapshot.driver: %w", err))
	} else if driver == persistence.DriverPostgres && c.Snapshot.DSN == "" {
		errs = append(errs, errors.New("snapshot.dsn is required for the postgres driver"))
	}

	if !validLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", string(logging.FormatText), string(logging.FormatJSON):
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}

	return errors.Join(errs...)
}

func validLevel(s string) bool {
	switch strings.ToLower(s) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// LoggingConfig converts the log settings. The caller sets Output and Extra.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(c.Log.Level)
	cfg.Format = logging.ParseFormat(c.Log.Format)
	return cfg
}
