package realtime

import (
	"encoding/json"
	"sync"

	"sealchat/pkg/logger"
)

// Broker fans events out to live subscribers of a channel. An append that
// succeeds but whose publish fails leaves the log authoritative: the
// protocol's recovery path is the client's next full range read, so
// Publish errors are logged and not retried.
type Broker interface {
	Publish(channel string, p Payload) error
}

// Envelope is one published event as it travels to subscribers.
type Envelope struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// Subscription receives envelopes for one channel. Slow subscribers drop
// events rather than block the publisher; the dropped events are recovered
// by the next full log fetch.
type Subscription struct {
	C       chan Envelope
	channel string
	hub     *Hub
}

// Close detaches the subscription from its hub.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

// Hub is the in-process broker: a channel-keyed fan-out with non-blocking
// delivery, serving both websocket attachments and in-process clients.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe attaches to a channel with a buffered delivery queue.
func (h *Hub) Subscribe(channel string) *Subscription {
	s := &Subscription{C: make(chan Envelope, 64), channel: channel, hub: h}
	h.mu.Lock()
	if h.subs[channel] == nil {
		h.subs[channel] = map[*Subscription]struct{}{}
	}
	h.subs[channel][s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.channel]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.channel)
		}
	}
}

// Publish marshals the payload and delivers it to every live subscriber
// of the channel. Delivery is best-effort and non-blocking.
func (h *Hub) Publish(channel string, p Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	env := Envelope{Channel: channel, Event: p.EventName(), Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[channel] {
		select {
		case s.C <- env:
		default:
			logger.Warn("subscriber_queue_full", "channel", channel, "event", env.Event)
		}
	}
	return nil
}
