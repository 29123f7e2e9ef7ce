package realtime

import (
	"encoding/json"

	"sealchat/pkg/logger"
)

// Dispatcher routes envelopes to handlers through an explicit table keyed
// by wire event name. Unknown events are logged and dropped; a handler
// error stops neither the dispatcher nor later events.
type Dispatcher struct {
	handlers map[string]func(json.RawMessage) error
}

// NewDispatcher returns an empty handler table.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]func(json.RawMessage) error)}
}

// Bind installs the handler for one wire event name, replacing any
// previous binding.
func (d *Dispatcher) Bind(event string, fn func(json.RawMessage) error) {
	d.handlers[event] = fn
}

// Dispatch routes one envelope.
func (d *Dispatcher) Dispatch(env Envelope) {
	fn, ok := d.handlers[env.Event]
	if !ok {
		logger.Debug("event_unhandled", "event", env.Event, "channel", env.Channel)
		return
	}
	if err := fn(env.Data); err != nil {
		logger.Warn("event_handler_failed", "event", env.Event, "error", err)
	}
}
