package realtime

import (
	"strings"

	"sealchat/pkg/models"
)

// Wire event names. These are part of the client protocol and must not
// change.
const (
	EventIncomingMessage = "incoming-message"
	EventMessageUpdate   = "message-update"
	EventMessageStatus   = "message-status"
	EventTyping          = "typing-indicator"
	EventSilenceStatus   = "silence-status"
	EventSilenceCleared  = "silence-cleared"

	// Per-user channel events. The friend-request events are produced by
	// collaborators outside this core; only their names live here.
	EventNewMessage            = "new_message"
	EventIncomingFriendRequest = "incoming_friend_requests"
	EventNewFriend             = "new_friend"
)

// ChatChannel names the conversation channel for a chat id.
func ChatChannel(chatID string) string {
	return ChannelKey("chat:" + chatID)
}

// UserChannel names a user's sidebar channel.
func UserChannel(userID string) string {
	return ChannelKey("user:" + userID + ":chats")
}

// ChannelKey sanitizes a channel name for the wire. Colons are replaced
// the same way the original web clients expect.
func ChannelKey(s string) string {
	return strings.ReplaceAll(s, ":", "__")
}

// Payload is the closed set of event payloads carried on a channel. Each
// variant knows its wire event name; dispatch happens through an explicit
// handler table rather than by inspecting loose maps.
type Payload interface {
	EventName() string
}

// IncomingMessage announces a freshly appended message on the chat channel.
type IncomingMessage struct {
	models.Message
}

func (IncomingMessage) EventName() string { return EventIncomingMessage }

// MessageUpdate carries the full updated record after a log mutation
// (reaction toggles and similar).
type MessageUpdate struct {
	models.Message
}

func (MessageUpdate) EventName() string { return EventMessageUpdate }

// MessageStatus announces a delivery-status transition for one message.
type MessageStatus struct {
	MessageID string        `json:"messageId"`
	Status    models.Status `json:"status"`
}

func (MessageStatus) EventName() string { return EventMessageStatus }

// Typing is the stateless typing indicator. Nothing is persisted; the
// sender's own debounce is the only thing that turns it off.
type Typing struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
	IsTyping bool   `json:"isTyping"`
}

func (Typing) EventName() string { return EventTyping }

// SilenceStatus announces a silence annotation with its computed expiry.
type SilenceStatus struct {
	MessageID string               `json:"messageId"`
	UserID    string               `json:"userId"`
	UserName  string               `json:"userName,omitempty"`
	Status    models.SilenceStatus `json:"status"`
	ExpiresAt int64                `json:"expiresAt"`
}

func (SilenceStatus) EventName() string { return EventSilenceStatus }

// SilenceCleared announces an explicit clear. TTL expiry emits nothing.
type SilenceCleared struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

func (SilenceCleared) EventName() string { return EventSilenceCleared }

// NewMessage is the per-user sidebar event, the message plus enough sender
// profile for an unseen-count toast.
type NewMessage struct {
	models.Message
	SenderName  string `json:"senderName,omitempty"`
	SenderImage string `json:"senderImage,omitempty"`
}

func (NewMessage) EventName() string { return EventNewMessage }
