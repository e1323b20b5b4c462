package mqtt

import (
	"bytes"
	"sync/atomic"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
)

// topicGuard keeps external clients from publishing on the state topic, so
// the retained message always comes from the server. It also counts
// connected clients.
type topicGuard struct {
	mqtt.HookBase
	topic     string
	connected atomic.Int64
	rejected  atomic.Int64
}

func newTopicGuard(topic string) *topicGuard {
	return &topicGuard{topic: topic}
}

// ID returns the hook identifier.
func (h *topicGuard) ID() string {
	return "kbase-topic-guard"
}

// Provides indicates which hook methods this hook provides.
func (h *topicGuard) Provides(b byte) bool {
	return bytes.Contains([]byte{
		mqtt.OnACLCheck,
		mqtt.OnConnect,
		mqtt.OnDisconnect,
	}, []byte{b})
}

// OnACLCheck allows everything except writes to the state topic by clients
// other than the inline server client.
func (h *topicGuard) OnACLCheck(cl *mqtt.Client, topic string, write bool) bool {
	if !write || topic != h.topic {
		return true
	}
	if cl != nil && cl.Net.Inline {
		return true
	}
	h.rejected.Add(1)
	return false
}

// OnConnect counts a connecting client.
func (h *topicGuard) OnConnect(cl *mqtt.Client, pk packets.Packet) error {
	if cl == nil || !cl.Net.Inline {
		h.connected.Add(1)
	}
	return nil
}

// OnDisconnect uncounts a client.
func (h *topicGuard) OnDisconnect(cl *mqtt.Client, err error, expire bool) {
	if cl == nil || !cl.Net.Inline {
		h.connected.Add(-1)
	}
}
