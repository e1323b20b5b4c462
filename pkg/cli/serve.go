package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/getmockd/kbase/pkg/admin"
	"github.com/getmockd/kbase/pkg/api/types"
	"github.com/getmockd/kbase/pkg/broadcast"
	"github.com/getmockd/kbase/pkg/cli/internal/output"
	"github.com/getmockd/kbase/pkg/config"
	"github.com/getmockd/kbase/pkg/logging"
	"github.com/getmockd/kbase/pkg/metrics"
	"github.com/getmockd/kbase/pkg/mqtt"
	"github.com/getmockd/kbase/pkg/persistence"
	"github.com/getmockd/kbase/pkg/rpc"
	"github.com/getmockd/kbase/pkg/service"
	"github.com/getmockd/kbase/pkg/store"
	"github.com/getmockd/kbase/pkg/websocket"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 10 * time.Second

// serveFlags holds the flag values for serve.
type serveFlags struct {
	file       string
	resume     bool
	configFile string

	host     string
	port     int
	grpcPort int
	mqttPort int
	noGRPC   bool
	noMQTT   bool

	snapshotDriver string
	snapshotPath   string
	snapshotDSN    string

	logLevel  string
	logFormat string
	logFile   string

	s3         bool
	s3Endpoint string
}

// serveFlagVals is the package-level instance bound to cobra flags.
var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the knowledge base server (foreground)",
	Long: `Run the knowledge base server.

The store starts empty, from the document given with --file, or from the last
automatic snapshot with --resume. A missing --file is fatal (exit status 2);
a missing snapshot with --resume only logs a warning.

After every save or delete the full state is written to the snapshot backend
and broadcast over MQTT and the WebSocket stream.`,
	Example: `  # Start empty
  kbase serve

  # Load a document
  kbase serve -f house.yaml

  # Pick up where the last run left off
  kbase serve --resume

  # Keep snapshots in SQLite, HTTP only
  kbase serve --snapshot-driver sqlite --snapshot-path /var/lib/kbase/kb.db --no-grpc --no-mqtt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, &serveFlagVals, cmd.Flags().Changed)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := &serveFlagVals
	serveCmd.Flags().StringVarP(&f.file, "file", "f", "", "Load the knowledge base from this document (must exist)")
	serveCmd.Flags().BoolVar(&f.resume, "resume", false, "Load the last automatic snapshot if there is one")
	serveCmd.MarkFlagsMutuallyExclusive("file", "resume")
	serveCmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to a config file")

	serveCmd.Flags().StringVar(&f.host, "host", "", "Listen host for all transports")
	serveCmd.Flags().IntVarP(&f.port, "port", "p", admin.DefaultPort, "HTTP API port")
	serveCmd.Flags().IntVar(&f.grpcPort, "grpc-port", rpc.DefaultPort, "gRPC port")
	serveCmd.Flags().IntVar(&f.mqttPort, "mqtt-port", mqtt.DefaultPort, "MQTT broker port")
	serveCmd.Flags().BoolVar(&f.noGRPC, "no-grpc", false, "Disable the gRPC transport")
	serveCmd.Flags().BoolVar(&f.noMQTT, "no-mqtt", false, "Disable the MQTT broker")

	serveCmd.Flags().StringVar(&f.snapshotDriver, "snapshot-driver", string(persistence.DriverFile), "Snapshot backend (file, sqlite, postgres)")
	serveCmd.Flags().StringVar(&f.snapshotPath, "snapshot-path", persistence.DefaultSnapshotPath, "Snapshot file or SQLite database")
	serveCmd.Flags().StringVar(&f.snapshotDSN, "snapshot-dsn", "", "PostgreSQL connection string for the postgres driver")

	serveCmd.Flags().StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&f.logFormat, "log-format", "text", "Log format (text, json)")
	serveCmd.Flags().StringVar(&f.logFile, "log-file", "", "Also write JSON logs to this file")

	serveCmd.Flags().BoolVar(&f.s3, "s3", false, "Allow s3:// dump destinations")
	serveCmd.Flags().StringVar(&f.s3Endpoint, "s3-endpoint", "", "Custom S3 endpoint (MinIO, LocalStack)")
}

// loadServeConfig layers changed flags over the loaded configuration.
func loadServeConfig(f *serveFlags, changed func(string) bool) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{Path: f.configFile})
	if err != nil {
		return nil, err
	}

	set := func(flag, key string, apply func()) {
		if changed(flag) {
			apply()
			cfg.MarkFlag(key)
		}
	}
	set("host", "ADMIN_HOST", func() {
		cfg.Admin.Host = f.host
		cfg.GRPC.Host = f.host
		cfg.MQTT.Host = f.host
	})
	set("port", "ADMIN_PORT", func() { cfg.Admin.Port = f.port })
	set("grpc-port", "GRPC_PORT", func() { cfg.GRPC.Port = f.grpcPort })
	set("mqtt-port", "MQTT_PORT", func() { cfg.MQTT.Port = f.mqttPort })
	set("no-grpc", "GRPC_ENABLED", func() { cfg.GRPC.Enabled = !f.noGRPC })
	set("no-mqtt", "MQTT_ENABLED", func() { cfg.MQTT.Enabled = !f.noMQTT })
	set("snapshot-driver", "SNAPSHOT_DRIVER", func() { cfg.Snapshot.Driver = f.snapshotDriver })
	set("snapshot-path", "SNAPSHOT_PATH", func() { cfg.Snapshot.Path = f.snapshotPath })
	set("snapshot-dsn", "SNAPSHOT_DSN", func() { cfg.Snapshot.DSN = f.snapshotDSN })
	set("log-level", "LOG_LEVEL", func() { cfg.Log.Level = f.logLevel })
	set("log-format", "LOG_FORMAT", func() { cfg.Log.Format = f.logFormat })
	set("log-file", "LOG_FILE", func() { cfg.Log.File = f.logFile })
	set("s3", "S3_ENABLED", func() { cfg.S3.Enabled = f.s3 })
	set("s3-endpoint", "S3_ENDPOINT", func() { cfg.S3.Endpoint = f.s3Endpoint })

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// startupError gives a failed initial load the exit status of its cause.
func startupError(err error) error {
	return &ExitError{Code: types.StatusFromError(err).ExitCode(), Err: err}
}

// runServe runs the server until ctx is cancelled.
//
//nolint:funlen // wiring every component in order is inherently long
func runServe(ctx context.Context, f *serveFlags, changed func(string) bool) error {
	cfg, err := loadServeConfig(f, changed)
	if err != nil {
		return err
	}

	logCfg := cfg.LoggingConfig()
	logCfg.Output = output.Stderr
	if cfg.Log.File != "" {
		logFile, err := logging.OpenFile(cfg.Log.File)
		if err != nil {
			return err
		}
		defer logFile.Close()
		logCfg.Extra = logFile
	}
	log := logging.New(logCfg)

	backendCfg, err := cfg.BackendConfig()
	if err != nil {
		return err
	}
	backend, err := persistence.Open(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("open snapshot backend: %w", err)
	}
	defer backend.Close()

	// Nothing listens yet: a failed load exits before any endpoint exists.
	initial, err := persistence.Bootstrap(ctx, persistence.StartupOptions{
		LoadPath: f.file,
		Resume:   f.resume,
	}, backend, log)
	if err != nil {
		log.Error("failed to load initial knowledge base", "error", err)
		return startupError(err)
	}

	st := store.New()
	st.LoadFrom(initial.Collections)

	hub := websocket.NewHub()
	hub.SetLogger(log.With("component", "websocket"))
	defer hub.Close()
	publishers := broadcast.Multi{hub}

	var broker *mqtt.Broker
	if cfg.MQTT.Enabled {
		broker, err = mqtt.NewBroker(&mqtt.Config{
			Host:       cfg.MQTT.Host,
			Port:       cfg.MQTT.Port,
			StateTopic: cfg.MQTT.Topic,
		})
		if err != nil {
			return fmt.Errorf("create MQTT broker: %w", err)
		}
		broker.SetLogger(log.With("component", "mqtt"))
		if err := broker.Start(ctx); err != nil {
			return fmt.Errorf("start MQTT broker: %w", err)
		}
		publishers = append(publishers, mqtt.NewStatePublisher(broker))
	}

	dumperOpts := []persistence.DumperOption{}
	if cfg.S3.Enabled {
		client, err := persistence.NewS3Client(ctx, cfg.S3ClientConfig())
		if err != nil {
			stopAll(log, broker, nil, nil)
			return fmt.Errorf("create S3 client: %w", err)
		}
		dumperOpts = append(dumperOpts, persistence.WithS3(client))
	}

	reg := metrics.New()
	svc := service.New(st,
		service.WithBackend(backend),
		service.WithPublisher(publishers),
		service.WithDumper(persistence.NewDumper(dumperOpts...)),
		service.WithObserver(reg),
		service.WithLogger(log.With("component", "service")),
	)

	api := admin.NewAPI(svc,
		admin.WithHost(cfg.Admin.Host),
		admin.WithPort(cfg.Admin.Port),
		admin.WithMaxBodyBytes(cfg.Admin.MaxBodyBytes),
		admin.WithStream(hub),
		admin.WithMetrics(reg),
		admin.WithLogger(log.With("component", "admin")),
	)
	if err := api.Start(); err != nil {
		stopAll(log, broker, nil, nil)
		return fmt.Errorf("start HTTP API: %w", err)
	}

	var grpcServer *rpc.Server
	if cfg.GRPC.Enabled {
		grpcServer = rpc.NewServer(svc, rpc.Config{Host: cfg.GRPC.Host, Port: cfg.GRPC.Port})
		grpcServer.SetLogger(log.With("component", "grpc"))
		if err := grpcServer.Start(ctx); err != nil {
			stopAll(log, broker, api, nil)
			return fmt.Errorf("start gRPC server: %w", err)
		}
	}

	svc.Announce(ctx)
	log.Info("knowledge base ready",
		"source", string(initial.Source),
		"origin", initial.Origin,
		"records", initial.Collections.State().Len(),
		"snapshot", backend.String(),
		"http", api.Addr(),
	)

	<-ctx.Done()
	log.Info("shutting down")
	return stopAll(log, broker, api, grpcServer)
}

// stopAll stops the running transports concurrently. Nil components are skipped.
func stopAll(log *slog.Logger, broker *mqtt.Broker, api *admin.API, grpcServer *rpc.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if api != nil {
		g.Go(func() error {
			if err := api.Stop(); err != nil {
				return fmt.Errorf("stop HTTP API: %w", err)
			}
			return nil
		})
	}
	if grpcServer != nil {
		g.Go(func() error {
			return grpcServer.Stop(gctx, shutdownTimeout)
		})
	}
	if broker != nil {
		g.Go(func() error {
			if err := broker.Stop(gctx, shutdownTimeout); err != nil {
				return fmt.Errorf("stop MQTT broker: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutdown error", "error", err)
		return err
	}
	return nil
}
