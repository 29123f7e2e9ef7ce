package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sealchat/pkg/realtime"
)

// ErrUnauthorized is returned when the acting user is not a participant of
// the conversation. It is always surfaced, never retried.
var ErrUnauthorized = errors.New("chat: caller is not a participant")

// ErrNotFound is returned when a log mutation cannot locate its target
// message. The message may have been removed concurrently; the mutation is
// reported as failed and not retried.
var ErrNotFound = errors.New("chat: message not found")

// ID derives the conversation id from the two participant ids: the ids are
// sorted lexicographically and joined, so both participants derive the
// same id no matter who initiates.
func ID(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + "--" + userB
}

// Participants splits a conversation id back into its two user ids.
func Participants(chatID string) (string, string, error) {
	parts := strings.Split(chatID, "--")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("chat: malformed chat id %q", chatID)
	}
	return parts[0], parts[1], nil
}

// Partner returns the other participant of the conversation, or
// ErrUnauthorized when userID is not a participant at all.
func Partner(chatID, userID string) (string, error) {
	a, b, err := Participants(chatID)
	if err != nil {
		return "", err
	}
	switch userID {
	case a:
		return b, nil
	case b:
		return a, nil
	}
	return "", ErrUnauthorized
}

// messagesSet names the scored set holding a conversation's log.
func messagesSet(chatID string) string {
	return "chat:" + chatID + ":messages"
}

// bookmarksSet names a user's bookmark set.
func bookmarksSet(userID string) string {
	return "user:" + userID + ":bookmarks"
}

// silenceKey names the TTL record for one (message, user) silence entry.
func silenceKey(messageID, userID string) string {
	return "silence:" + messageID + ":" + userID
}

// Engine implements the conversation operations over the scored log store
// and the real-time broker. It holds no per-request state: every request
// runs independently and all coordination happens through the store and
// the broker.
type Engine struct {
	Broker     realtime.Broker
	SilenceTTL time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine returns an engine publishing through b.
func NewEngine(b realtime.Broker, silenceTTL time.Duration) *Engine {
	if silenceTTL <= 0 {
		silenceTTL = 6 * time.Hour
	}
	return &Engine{Broker: b, SilenceTTL: silenceTTL, now: time.Now}
}

func (e *Engine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}
