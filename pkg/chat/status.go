package chat

import (
	"errors"

	"sealchat/pkg/logger"
	"sealchat/pkg/models"
	"sealchat/pkg/realtime"
	"sealchat/pkg/telemetry"
)

// MarkSeen processes a recipient's batch of seen submissions. For each id
// that names a message authored by the other participant and not yet seen,
// the log entry is rewritten with status "seen" and a message-status event
// is published for the original sender. Messages already seen are skipped
// silently: a duplicate submission is a no-op and fires no event. Ids that
// no longer exist in the log are skipped as well; the batch is
// best-effort, not transactional.
func (e *Engine) MarkSeen(chatID, viewerID string, messageIDs []string) error {
	senderID, err := Partner(chatID, viewerID)
	if err != nil {
		return err
	}

	for _, id := range messageIDs {
		updated, changed, err := MutateMessage(chatID, id, func(m *models.Message) bool {
			if m.SenderID != senderID {
				return false
			}
			if m.EffectiveStatus() == models.StatusSeen {
				return false
			}
			m.Status = models.StatusSeen
			return true
		})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				logger.Debug("seen_target_missing", "chat", chatID, "id", id)
				continue
			}
			return err
		}
		if !changed {
			continue
		}
		telemetry.MessagesSeen.Inc()
		e.publish(realtime.ChatChannel(chatID), realtime.MessageStatus{
			MessageID: updated.ID,
			Status:    models.StatusSeen,
		})
	}
	return nil
}
