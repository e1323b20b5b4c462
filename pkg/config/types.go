package config

import (
	"github.com/getmockd/kbase/pkg/persistence"
)

// Config is the complete server configuration.
type Config struct {
	Admin    AdminConfig    `yaml:"admin" json:"admin" envPrefix:"ADMIN_"`
	GRPC     GRPCConfig     `yaml:"grpc" json:"grpc" envPrefix:"GRPC_"`
	MQTT     MQTTConfig     `yaml:"mqtt" json:"mqtt" envPrefix:"MQTT_"`
	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot" envPrefix:"SNAPSHOT_"`
	S3       S3Config       `yaml:"s3" json:"s3" envPrefix:"S3_"`
	Log      LogConfig      `yaml:"log" json:"log" envPrefix:"LOG_"`

	// Sources maps a setting key (the environment name without the KBASE_
	// prefix, for example ADMIN_PORT) to the layer that last set it.
	Sources map[string]string `yaml:"-" json:"-"`
	// Files lists the config files that were loaded, in order.
	Files []string `yaml:"-" json:"files,omitempty"`
}

// AdminConfig configures the HTTP API.
type AdminConfig struct {
	Host         string `yaml:"host" json:"host" env:"HOST"`
	Port         int    `yaml:"port" json:"port" env:"PORT"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes" json:"maxBodyBytes" env:"MAX_BODY_BYTES"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Host    string `yaml:"host" json:"host" env:"HOST"`
	Port    int    `yaml:"port" json:"port" env:"PORT"`
}

// MQTTConfig configures the embedded broker that carries state broadcasts.
type MQTTConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Host    string `yaml:"host" json:"host" env:"HOST"`
	Port    int    `yaml:"port" json:"port" env:"PORT"`
	Topic   string `yaml:"topic" json:"topic" env:"TOPIC"`
}

// SnapshotConfig selects the automatic snapshot backend.
type SnapshotConfig struct {
	Driver string `yaml:"driver" json:"driver" env:"DRIVER"`
	Path   string `yaml:"path" json:"path" env:"PATH"`
	DSN    string `yaml:"dsn,omitempty" json:"-" env:"DSN"`
}

// S3Config configures s3:// dump destinations. S3 is disabled unless
// Enabled is set.
type S3Config struct {
	Enabled   bool   `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Region    string `yaml:"region" json:"region" env:"REGION"`
	Endpoint  string `yaml:"endpoint,omitempty" json:"endpoint,omitempty" env:"ENDPOINT"`
	PathStyle bool   `yaml:"pathStyle,omitempty" json:"pathStyle,omitempty" env:"PATH_STYLE"`
	AccessKey string `yaml:"accessKey,omitempty" json:"-" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secretKey,omitempty" json:"-" env:"SECRET_KEY"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level" env:"LEVEL"`
	Format string `yaml:"format" json:"format" env:"FORMAT"`
	File   string `yaml:"file,omitempty" json:"file,omitempty" env:"FILE"`
}

// Setting sources.
const (
	SourceDefault = "default"
	SourceGlobal  = "global"
	SourceLocal   = "local"
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)

// BackendConfig converts the snapshot settings for persistence.Open.
func (c *Config) BackendConfig() (persistence.BackendConfig, error) {
	driver, err := persistence.ParseDriver(c.Snapshot.Driver)
	if err != nil {
		return persistence.BackendConfig{}, err
	}
	return persistence.BackendConfig{
		Driver: driver,
		Path:   c.Snapshot.Path,
		DSN:    c.Snapshot.DSN,
	}, nil
}

// S3ClientConfig converts the S3 settings for persistence.NewS3Client.
func (c *Config) S3ClientConfig() persistence.S3Config {
	return persistence.S3Config{
		Region:    c.S3.Region,
		Endpoint:  c.S3.Endpoint,
		PathStyle: c.S3.PathStyle,
		AccessKey: c.S3.AccessKey,
		SecretKey: c.S3.SecretKey,
	}
}
