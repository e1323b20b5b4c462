package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqttclient "github.com/eclipse/paho.mqtt.golang"
	gws "github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/getmockd/kbase/internal/id"
	"github.com/getmockd/kbase/pkg/cli/internal/output"
	"github.com/getmockd/kbase/pkg/entity"
	"github.com/getmockd/kbase/pkg/mqtt"
)

// Sources accepted by watch --via.
const (
	WatchViaMQTT = "mqtt"
	WatchViaWS   = "ws"
)

var (
	watchVia    string
	watchBroker string
	watchTopic  string
	watchCount  int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow state broadcasts",
	Long: `Print every state the server broadcasts. The current state arrives first
(retained on MQTT, sent on connect over WebSocket), then one state per change.`,
	Example: `  kbase watch
  kbase watch --via ws --count 1
  kbase watch --broker tcp://kb.local:1883 --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		switch strings.ToLower(watchVia) {
		case WatchViaMQTT:
			return watchMQTT(ctx, watchBroker, watchTopic, watchCount, printBroadcast)
		case WatchViaWS, "websocket":
			streamURL, err := streamURLFromAdmin(adminURL)
			if err != nil {
				return err
			}
			return watchWebSocket(ctx, streamURL, watchCount, printBroadcast)
		default:
			return fmt.Errorf("unknown source %q (want mqtt or ws)", watchVia)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchVia, "via", WatchViaMQTT, "Broadcast source (mqtt, ws)")
	watchCmd.Flags().StringVar(&watchBroker, "broker", fmt.Sprintf("tcp://localhost:%d", mqtt.DefaultPort), "MQTT broker URL")
	watchCmd.Flags().StringVar(&watchTopic, "topic", mqtt.DefaultStateTopic, "MQTT state topic")
	watchCmd.Flags().IntVarP(&watchCount, "count", "n", 0, "Exit after this many states (0 = until interrupted)")
}

func printBroadcast(state entity.State) error {
	if jsonOutput {
		return output.JSON(state)
	}
	output.Printf("%s  locations=%d viewpoints=%d objects=%d persons=%d\n",
		time.Now().Format(time.RFC3339),
		len(state.Locations), len(state.Viewpoints), len(state.Objects), len(state.Persons))
	return nil
}

// streamURLFromAdmin derives the WebSocket stream URL from the HTTP API URL.
func streamURLFromAdmin(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid admin URL %q: %w", base, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid admin URL %q: unsupported scheme", base)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/state/stream"
	return u.String(), nil
}

// watchClientID returns a fresh MQTT client ID for one watch session.
func watchClientID() string {
	return id.Prefixed("kbase-watch")
}

// watchMQTT subscribes to topic and calls handle for every state until ctx
// ends or count states have been handled.
func watchMQTT(ctx context.Context, broker, topic string, count int, handle func(entity.State) error) error {
	opts := mqttclient.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(watchClientID())
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)

	client := mqttclient.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", broker, err)
	}
	defer client.Disconnect(250)

	states := make(chan entity.State, 16)
	token = client.Subscribe(topic, 1, func(_ mqttclient.Client, msg mqttclient.Message) {
		var state entity.State
		if err := json.Unmarshal(msg.Payload(), &state); err != nil {
			output.Warn("ignoring malformed state on %s: %v", msg.Topic(), err)
			return
		}
		select {
		case states <- state:
		case <-ctx.Done():
		}
	})
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("subscribe to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	return consume(ctx, states, count, handle)
}

// watchWebSocket reads states from the stream endpoint until ctx ends or
// count states have been handled.
func watchWebSocket(ctx context.Context, streamURL string, count int, handle func(entity.State) error) error {
	conn, resp, err := gws.DefaultDialer.DialContext(ctx, streamURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServerNotRunning, err)
	}
	defer conn.Close()

	states := make(chan entity.State, 16)
	readErr := make(chan error, 1)
	go func() {
		defer close(states)
		for {
			var state entity.State
			if err := conn.ReadJSON(&state); err != nil {
				readErr <- err
				return
			}
			select {
			case states <- state:
			case <-ctx.Done():
				return
			}
		}
	}()

	err = consume(ctx, states, count, handle)
	_ = conn.WriteControl(gws.CloseMessage,
		gws.FormatCloseMessage(gws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	if errors.Is(err, errStreamClosed) {
		select {
		case rerr := <-readErr:
			if gws.IsCloseError(rerr, gws.CloseNormalClosure, gws.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read state: %w", rerr)
		default:
			return nil
		}
	}
	return err
}

var errStreamClosed = errors.New("state stream closed")

// consume hands states to handle. It returns nil when ctx ends or after count
// states, and errStreamClosed when states is closed first.
func consume(ctx context.Context, states <-chan entity.State, count int, handle func(entity.State) error) error {
	seen := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case state, ok := <-states:
			if !ok {
				return errStreamClosed
			}
			if err := handle(state); err != nil {
				return err
			}
			seen++
			if count > 0 && seen >= count {
				return nil
			}
		}
	}
}
