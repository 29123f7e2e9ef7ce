package chat

import (
	"sealchat/pkg/models"
	"sealchat/pkg/realtime"
	"sealchat/pkg/telemetry"
)

// ToggleReaction flips emoji in the acting user's reaction set on the
// target message: present → removed, absent → added. A user's emptied set
// is dropped from the map entirely. The full updated record is broadcast
// as a message-update; toggling twice in a row restores the original
// state.
func (e *Engine) ToggleReaction(chatID, userID, messageID, emoji string) (models.Message, error) {
	if _, err := Partner(chatID, userID); err != nil {
		return models.Message{}, err
	}
	if emoji == "" {
		return models.Message{}, ErrNotFound
	}

	updated, _, err := MutateMessage(chatID, messageID, func(m *models.Message) bool {
		toggleReaction(m, userID, emoji)
		return true
	})
	if err != nil {
		return models.Message{}, err
	}
	telemetry.ReactionToggles.Inc()
	e.publish(realtime.ChatChannel(chatID), realtime.MessageUpdate{Message: updated})
	return updated, nil
}

func toggleReaction(m *models.Message, userID, emoji string) {
	set := m.Reactions[userID]
	for i, existing := range set {
		if existing == emoji {
			set = append(set[:i], set[i+1:]...)
			if len(set) == 0 {
				delete(m.Reactions, userID)
				if len(m.Reactions) == 0 {
					m.Reactions = nil
				}
			} else {
				m.Reactions[userID] = set
			}
			return
		}
	}
	if m.Reactions == nil {
		m.Reactions = map[string][]string{}
	}
	m.Reactions[userID] = append(set, emoji)
}
