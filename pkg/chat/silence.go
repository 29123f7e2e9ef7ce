package chat

import (
	"encoding/json"
	"errors"

	"sealchat/pkg/logger"
	"sealchat/pkg/models"
	"sealchat/pkg/realtime"
	"sealchat/pkg/store"
	"sealchat/pkg/validation"
)

// SetSilence records a "why I haven't replied" annotation for one message
// with the configured TTL and announces it on the chat channel. The store
// expires the record on its own with no event; the announced expiresAt is
// what clients prune against.
func (e *Engine) SetSilence(chatID, userID, userName, messageID string, status models.SilenceStatus) (models.SilenceRecord, error) {
	if _, err := Partner(chatID, userID); err != nil {
		return models.SilenceRecord{}, err
	}
	if err := validation.ValidateSilence(status); err != nil {
		return models.SilenceRecord{}, err
	}

	rec := models.SilenceRecord{
		Status:    status,
		ExpiresAt: e.clock().Add(e.SilenceTTL).UnixMilli(),
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return models.SilenceRecord{}, err
	}
	if err := store.SetWithTTL(silenceKey(messageID, userID), b, e.SilenceTTL); err != nil {
		return models.SilenceRecord{}, err
	}
	logger.Info("silence_set", "chat", chatID, "message", messageID, "user", userID, "status", status)

	e.publish(realtime.ChatChannel(chatID), realtime.SilenceStatus{
		MessageID: messageID,
		UserID:    userID,
		UserName:  userName,
		Status:    status,
		ExpiresAt: rec.ExpiresAt,
	})
	return rec, nil
}

// GetSilence returns the chat partner's live silence records for the given
// message ids. Expired and absent records come back as nil entries.
func (e *Engine) GetSilence(chatID, viewerID string, messageIDs []string) (map[string]*models.SilenceRecord, error) {
	partnerID, err := Partner(chatID, viewerID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*models.SilenceRecord, len(messageIDs))
	for _, id := range messageIDs {
		raw, remaining, err := store.GetTTL(silenceKey(id, partnerID))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				out[id] = nil
				continue
			}
			return nil, err
		}
		var rec models.SilenceRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			out[id] = nil
			continue
		}
		// recompute expiry from the store's remaining TTL so clocks that
		// drifted since SetSilence do not matter
		rec.ExpiresAt = e.clock().Add(remaining).UnixMilli()
		out[id] = &rec
	}
	return out, nil
}

// ClearSilence deletes the acting user's annotation immediately and
// announces the clear. Unlike TTL expiry, an explicit clear does emit an
// event.
func (e *Engine) ClearSilence(chatID, userID, messageID string) error {
	if _, err := Partner(chatID, userID); err != nil {
		return err
	}
	if err := store.DeleteTTL(silenceKey(messageID, userID)); err != nil {
		return err
	}
	logger.Info("silence_cleared", "chat", chatID, "message", messageID, "user", userID)

	e.publish(realtime.ChatChannel(chatID), realtime.SilenceCleared{
		MessageID: messageID,
		UserID:    userID,
	})
	return nil
}

// Typing relays a stateless typing indicator on the chat channel. Nothing
// is persisted and no server-side timeout exists: the sender's own
// debounce is responsible for emitting the matching false.
func (e *Engine) Typing(chatID, userID, userName string, isTyping bool) error {
	if _, err := Partner(chatID, userID); err != nil {
		return err
	}
	e.publish(realtime.ChatChannel(chatID), realtime.Typing{
		UserID:   userID,
		UserName: userName,
		IsTyping: isTyping,
	})
	return nil
}
