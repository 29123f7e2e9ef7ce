package chat

import (
	"encoding/json"
	"time"

	"sealchat/pkg/logger"
	"sealchat/pkg/models"
	"sealchat/pkg/store"
	"sealchat/pkg/telemetry"
)

// MutateMessage applies fn to the message with the given id using the
// read-locate-remove-reinsert protocol, the only update path the scored
// log offers:
//
//  1. range-read the full log with scores,
//  2. locate the entry whose deserialized id matches and note its score,
//  3. remove every entry at exactly that score,
//  4. reinsert the mutated payload under the same score so ordering and
//     future lookups stay intact.
//
// fn returns false to signal a no-op, in which case nothing is rewritten
// and no event should be published. The protocol is not atomic across
// steps 2-4: two mutations racing on one message resolve last-writer-wins,
// and two distinct messages sharing a score would both be removed in step
// 3. Both behaviors are inherited from the log's primitives; closing them
// with a compare-and-swap belongs here, not in callers.
func MutateMessage(chatID, messageID string, fn func(*models.Message) bool) (models.Message, bool, error) {
	start := time.Now()
	defer func() {
		telemetry.MutationDuration.Observe(time.Since(start).Seconds())
	}()

	entries, err := store.RangeWithScores(messagesSet(chatID), false)
	if err != nil {
		return models.Message{}, false, err
	}

	for _, entry := range entries {
		var m models.Message
		if err := json.Unmarshal(entry.Payload, &m); err != nil {
			logger.Warn("log_entry_unparseable", "chat", chatID, "score", entry.Score)
			continue
		}
		if m.ID != messageID {
			continue
		}
		if !fn(&m) {
			return m, false, nil
		}
		payload, err := json.Marshal(m)
		if err != nil {
			return models.Message{}, false, err
		}
		if _, err := store.RemoveByScore(messagesSet(chatID), entry.Score); err != nil {
			return models.Message{}, false, err
		}
		if err := store.AppendScored(messagesSet(chatID), entry.Score, payload); err != nil {
			return models.Message{}, false, err
		}
		logger.Debug("message_mutated", "chat", chatID, "id", messageID, "score", entry.Score)
		return m, true, nil
	}

	telemetry.MutationMisses.Inc()
	return models.Message{}, false, ErrNotFound
}

// Messages returns the conversation log in score order, newest first when
// reverse is set. Unparseable entries are skipped.
func Messages(chatID string, reverse bool) ([]models.Message, error) {
	entries, err := store.RangeWithScores(messagesSet(chatID), reverse)
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(entries))
	for _, entry := range entries {
		var m models.Message
		if err := json.Unmarshal(entry.Payload, &m); err != nil {
			logger.Warn("log_entry_unparseable", "chat", chatID, "score", entry.Score)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
