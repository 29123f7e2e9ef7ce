package chat

import (
	"sealchat/pkg/logger"
)

// ForwardResult reports the outcome for one forwarding target.
type ForwardResult struct {
	FriendID string `json:"friendId"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// Forward sends the same text to several conversations, one per target
// friend. Each forwarded copy is a fresh message (new id, fresh
// timestamp) prefixed with a forwarding marker, delivered through the
// normal send path. Failures are reported per target and do not abort the
// rest of the batch.
func (e *Engine) Forward(senderID, senderName, senderImage, text string, targetIDs []string) []ForwardResult {
	results := make([]ForwardResult, 0, len(targetIDs))
	for _, friendID := range targetIDs {
		if friendID == "" || friendID == senderID {
			results = append(results, ForwardResult{FriendID: friendID, Error: "invalid target"})
			continue
		}
		_, err := e.Send(SendRequest{
			ChatID:      ID(senderID, friendID),
			SenderID:    senderID,
			SenderName:  senderName,
			SenderImage: senderImage,
			Text:        "↪️ " + text,
		})
		if err != nil {
			logger.Warn("forward_failed", "target", friendID, "error", err)
			results = append(results, ForwardResult{FriendID: friendID, Error: err.Error()})
			continue
		}
		results = append(results, ForwardResult{FriendID: friendID, Success: true})
	}
	return results
}
