package models

// Status is the delivery state of a message.
//
// StatusSending is client-local only and is never written to the log;
// StatusDelivered is reserved and currently never set.
type Status string

const (
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusSeen      Status = "seen"
)

// ValidStatus reports whether s is a known delivery status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusSending, StatusSent, StatusDelivered, StatusSeen:
		return true
	}
	return false
}

// ReplyRef is a denormalized snapshot of the message being replied to,
// captured at send time. It is a point-in-time copy: later edits to the
// original never propagate into it.
type ReplyRef struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	Text       string `json:"text"`
	SenderName string `json:"senderName,omitempty"`
}

// Message is the central mutable record of a conversation log. Its
// Timestamp doubles as the score under which the record is stored; every
// mutation must reinsert the record under that same score or point lookups
// by id stop working.
type Message struct {
	ID        string `json:"id"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	// Reactions maps a reacting user id to that user's set of emoji.
	// Entries with an empty set are dropped rather than kept as [].
	Reactions map[string][]string `json:"reactions,omitempty"`
	// Status is optional on the wire; absent means "sent".
	Status  Status    `json:"status,omitempty"`
	ReplyTo *ReplyRef `json:"replyTo,omitempty"`
}

// EffectiveStatus resolves the optional wire status: absent means sent.
func (m *Message) EffectiveStatus() Status {
	if m.Status == "" {
		return StatusSent
	}
	return m.Status
}

// HasReaction reports whether user has already placed emoji on the message.
func (m *Message) HasReaction(userID, emoji string) bool {
	for _, e := range m.Reactions[userID] {
		if e == emoji {
			return true
		}
	}
	return false
}
