package models

// SilenceStatus is the closed set of "why I haven't replied" reasons a
// recipient can leave on a message.
type SilenceStatus string

const (
	SilenceNoReplyNeeded  SilenceStatus = "no_reply_needed"
	SilenceWaitingForInfo SilenceStatus = "waiting_for_info"
	SilenceWillReplyLater SilenceStatus = "will_reply_later"
)

// ValidSilenceStatus reports whether s is a known silence reason.
func ValidSilenceStatus(s SilenceStatus) bool {
	switch s {
	case SilenceNoReplyNeeded, SilenceWaitingForInfo, SilenceWillReplyLater:
		return true
	}
	return false
}

// SilenceRecord is a soft, TTL-bound annotation keyed by
// (messageId, settingUserId). The store expires it without emitting any
// event; clients prune by comparing against ExpiresAt themselves.
type SilenceRecord struct {
	Status    SilenceStatus `json:"status"`
	ExpiresAt int64         `json:"expiresAt"` // unix millis
}

// Bookmark is a per-user annotation of a message. Bookmarks live in the
// user's own scored set, outside the conversation log, so toggling one
// never goes through the log mutation protocol.
type Bookmark struct {
	MessageID    string `json:"messageId"`
	ChatID       string `json:"chatId"`
	Text         string `json:"text"`
	Timestamp    int64  `json:"timestamp"`
	SenderID     string `json:"senderId"`
	BookmarkedAt int64  `json:"bookmarkedAt"`
}

// User is the minimal profile shape carried on sidebar events.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}
