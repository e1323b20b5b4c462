package config

import (
	"github.com/getmockd/kbase/pkg/admin"
	"github.com/getmockd/kbase/pkg/mqtt"
	"github.com/getmockd/kbase/pkg/persistence"
	"github.com/getmockd/kbase/pkg/rpc"
)

// DefaultS3Region is used when no region is configured.
const DefaultS3Region = "us-east-1"

// NewDefault returns the built-in defaults.
func NewDefault() *Config {
	return &Config{
		Admin: AdminConfig{
			Port:         admin.DefaultPort,
			MaxBodyBytes: admin.DefaultMaxBodyBytes,
		},
		GRPC: GRPCConfig{
			Enabled: true,
			Port:    rpc.DefaultPort,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Port:    mqtt.DefaultPort,
			Topic:   mqtt.DefaultStateTopic,
		},
		Snapshot: SnapshotConfig{
			Driver: string(persistence.DriverFile),
			Path:   persistence.DefaultSnapshotPath,
		},
		S3: S3Config{
			Region: DefaultS3Region,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Sources: make(map[string]string),
	}
}
