package chat

import (
	"encoding/json"

	"sealchat/pkg/logger"
	"sealchat/pkg/models"
	"sealchat/pkg/realtime"
	"sealchat/pkg/store"
	"sealchat/pkg/telemetry"
	"sealchat/pkg/utils"
	"sealchat/pkg/validation"
)

// SendRequest carries one outbound message. Text arrives already
// encrypted (or plaintext on the legacy path); the server never decrypts.
type SendRequest struct {
	ChatID      string
	SenderID    string
	SenderName  string
	SenderImage string
	Text        string
	// MessageID and Timestamp are client-assigned when the client made an
	// optimistic insert; otherwise the server fills them in.
	MessageID string
	Timestamp int64
	ReplyTo   *models.ReplyRef
}

// Send appends the message to the conversation log with status "sent" and
// fans it out: the full record on the chat channel, and a sidebar event on
// the recipient's user channel. The append is authoritative; a failed
// publish is not rolled back or retried; the recipient recovers on its
// next full log fetch.
func (e *Engine) Send(req SendRequest) (models.Message, error) {
	friendID, err := Partner(req.ChatID, req.SenderID)
	if err != nil {
		return models.Message{}, err
	}

	m := models.Message{
		ID:        req.MessageID,
		SenderID:  req.SenderID,
		Text:      req.Text,
		Timestamp: req.Timestamp,
		Status:    models.StatusSent,
		ReplyTo:   req.ReplyTo,
	}
	if m.ID == "" {
		m.ID = utils.GenID()
	}
	if m.Timestamp == 0 {
		m.Timestamp = e.clock().UnixMilli()
	}
	if m.ReplyTo != nil {
		m.ReplyTo.Text = validation.TruncateReplyText(m.ReplyTo.Text)
	}
	if err := validation.ValidateMessage(m); err != nil {
		return models.Message{}, err
	}

	payload, err := json.Marshal(m)
	if err != nil {
		return models.Message{}, err
	}
	if err := store.AppendScored(messagesSet(req.ChatID), m.Timestamp, payload); err != nil {
		return models.Message{}, err
	}
	telemetry.MessagesSent.Inc()
	logger.Info("message_sent", "chat", req.ChatID, "id", m.ID, "score", m.Timestamp)

	e.publish(realtime.ChatChannel(req.ChatID), realtime.IncomingMessage{Message: m})
	e.publish(realtime.UserChannel(friendID), realtime.NewMessage{
		Message:     m,
		SenderName:  req.SenderName,
		SenderImage: req.SenderImage,
	})
	return m, nil
}

// publish fans out one event, logging instead of failing: the log is
// already authoritative by the time anything is published.
func (e *Engine) publish(channel string, p realtime.Payload) {
	if e.Broker == nil {
		return
	}
	telemetry.EventsPublished.WithLabelValues(p.EventName()).Inc()
	if err := e.Broker.Publish(channel, p); err != nil {
		logger.Warn("publish_failed", "channel", channel, "event", p.EventName(), "error", err)
	}
}
