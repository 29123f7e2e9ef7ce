package validation

import (
	"fmt"
	"unicode/utf8"

	"sealchat/pkg/models"
)

// MaxTextRunes bounds the (encrypted, base64) text field of a message.
const MaxTextRunes = 2000

// MaxReplySnapshotRunes bounds the quoted text embedded in a reply snapshot.
const MaxReplySnapshotRunes = 100

// ValidateMessage checks the structural invariants of an inbound message
// before it is appended to a conversation log.
func ValidateMessage(m models.Message) error {
	if m.ID == "" {
		return fmt.Errorf("message id required")
	}
	if m.SenderID == "" {
		return fmt.Errorf("sender id required")
	}
	if m.Timestamp <= 0 {
		return fmt.Errorf("timestamp required")
	}
	if m.Text == "" {
		return fmt.Errorf("text required")
	}
	if utf8.RuneCountInString(m.Text) > MaxTextRunes {
		return fmt.Errorf("text exceeds %d characters", MaxTextRunes)
	}
	if m.Status != "" && !models.ValidStatus(m.Status) {
		return fmt.Errorf("unknown status %q", m.Status)
	}
	if m.ReplyTo != nil {
		if m.ReplyTo.ID == "" || m.ReplyTo.SenderID == "" {
			return fmt.Errorf("reply snapshot missing id or sender")
		}
		if utf8.RuneCountInString(m.ReplyTo.Text) > MaxReplySnapshotRunes {
			return fmt.Errorf("reply snapshot exceeds %d characters", MaxReplySnapshotRunes)
		}
	}
	return nil
}

// TruncateReplyText clips quoted text to the snapshot limit.
func TruncateReplyText(s string) string {
	if utf8.RuneCountInString(s) <= MaxReplySnapshotRunes {
		return s
	}
	r := []rune(s)
	return string(r[:MaxReplySnapshotRunes])
}

// ValidateSilence checks a silence annotation request.
func ValidateSilence(status models.SilenceStatus) error {
	if !models.ValidSilenceStatus(status) {
		return fmt.Errorf("unknown silence status %q", status)
	}
	return nil
}
