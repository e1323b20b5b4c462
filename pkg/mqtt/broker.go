package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/getmockd/kbase/pkg/logging"
	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// DefaultPort is the standard MQTT port.
const DefaultPort = 1883

// DefaultStateTopic is where the knowledge-base state is published.
const DefaultStateTopic = "kbase/state"

// Config configures the embedded broker.
type Config struct {
	Host       string `json:"host,omitempty" yaml:"host,omitempty"`
	Port       int    `json:"port" yaml:"port"`
	StateTopic string `json:"stateTopic,omitempty" yaml:"stateTopic,omitempty"`
}

// Broker is an embedded MQTT broker. Only the server itself may publish on
// the state topic; external clients can subscribe to it.
type Broker struct {
	config    *Config
	server    *mqtt.Server
	guard     *topicGuard
	mu        sync.RWMutex
	running   bool
	startedAt time.Time
	log       *slog.Logger
}

// NewBroker creates a new MQTT broker.
func NewBroker(config *Config) (*Broker, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if config.Port <= 0 {
		config.Port = DefaultPort
	}
	if config.StateTopic == "" {
		config.StateTopic = DefaultStateTopic
	}

	server := mqtt.New(&mqtt.Options{
		InlineClient: true,
	})

	broker := &Broker{
		config: config,
		server: server,
		guard:  newTopicGuard(config.StateTopic),
		log:    logging.Nop(),
	}

	// The guard must come first: mochi asks the first hook that provides
	// OnACLCheck and uses its answer.
	if err := server.AddHook(broker.guard, nil); err != nil {
		return nil, fmt.Errorf("failed to add topic guard: %w", err)
	}
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("failed to add allow hook: %w", err)
	}

	return broker, nil
}

// Start starts the MQTT broker.
func (b *Broker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return errors.New("broker is already running")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	listener := listeners.NewTCP(listeners.Config{
		ID:      "kbase-mqtt-" + strconv.Itoa(b.config.Port),
		Address: b.Address(),
	})
	if err := b.server.AddListener(listener); err != nil {
		return fmt.Errorf("failed to add listener: %w", err)
	}

	go func() {
		if err := b.server.Serve(); err != nil {
			b.log.Error("MQTT server error", "error", err)
		}
	}()

	b.running = true
	b.startedAt = time.Now()
	b.log.Info("MQTT broker listening", "address", b.Address(), "topic", b.config.StateTopic)
	return nil
}

// Stop gracefully shuts down the broker, forcing it after timeout.
func (b *Broker) Stop(ctx context.Context, timeout time.Duration) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// server.Close disconnects clients, which calls back into the hooks.
	// b.mu must not be held here.
	done := make(chan error, 1)
	go func() {
		done <- b.server.Close()
	}()

	var closeErr error
	select {
	case err := <-done:
		closeErr = err
	case <-shutdownCtx.Done():
		closeErr = fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
	}

	b.mu.Lock()
	b.running = false
	b.startedAt = time.Time{}
	b.mu.Unlock()

	if closeErr != nil {
		return fmt.Errorf("failed to close server: %w", closeErr)
	}
	return nil
}

// IsRunning returns true if the broker is running.
func (b *Broker) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// Publish publishes a message through the broker's inline client.
func (b *Broker) Publish(topic string, payload []byte, qos byte, retain bool) error {
	if !b.IsRunning() {
		return errors.New("broker is not running")
	}
	return b.server.Publish(topic, payload, retain, qos)
}

// SetLogger sets the operational logger for the broker.
func (b *Broker) SetLogger(log *slog.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if log != nil {
		b.log = log
	} else {
		b.log = logging.Nop()
	}
	b.server.Log = b.log.With("component", "mqtt")
}

// StateTopic returns the topic the state is published on.
func (b *Broker) StateTopic() string { return b.config.StateTopic }

// Port returns the configured port.
func (b *Broker) Port() int { return b.config.Port }

// Address returns the listen address.
func (b *Broker) Address() string {
	return net.JoinHostPort(b.config.Host, strconv.Itoa(b.config.Port))
}

// Stats describes the broker for health output.
type Stats struct {
	Running          bool      `json:"running"`
	Address          string    `json:"address"`
	StateTopic       string    `json:"stateTopic"`
	ConnectedClients int64     `json:"connectedClients"`
	RejectedWrites   int64     `json:"rejectedWrites"`
	StartedAt        time.Time `json:"startedAt,omitzero"`
}

// Stats returns broker statistics.
func (b *Broker) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		Running:          b.running,
		Address:          b.Address(),
		StateTopic:       b.config.StateTopic,
		ConnectedClients: b.guard.connected.Load(),
		RejectedWrites:   b.guard.rejected.Load(),
		StartedAt:        b.startedAt,
	}
}
