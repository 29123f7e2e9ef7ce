package chat

import (
	"encoding/json"

	"sealchat/pkg/logger"
	"sealchat/pkg/models"
	"sealchat/pkg/store"
)

// ToggleBookmark adds the message to the user's bookmark set, or removes
// it when already present. It reports the resulting state. Bookmarks are
// per-viewer annotations outside the conversation log, so no mutation
// protocol is involved.
func (e *Engine) ToggleBookmark(userID string, bm models.Bookmark) (bool, error) {
	set := bookmarksSet(userID)
	entries, err := store.RangeWithScores(set, false)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		var existing models.Bookmark
		if err := json.Unmarshal(entry.Payload, &existing); err != nil {
			continue
		}
		if existing.MessageID == bm.MessageID {
			if _, err := store.RemoveByMember(set, entry.Payload); err != nil {
				return false, err
			}
			logger.Debug("bookmark_removed", "user", userID, "message", bm.MessageID)
			return false, nil
		}
	}

	bm.BookmarkedAt = e.clock().UnixMilli()
	payload, err := json.Marshal(bm)
	if err != nil {
		return false, err
	}
	if err := store.AppendScored(set, bm.BookmarkedAt, payload); err != nil {
		return false, err
	}
	logger.Debug("bookmark_added", "user", userID, "message", bm.MessageID)
	return true, nil
}

// ListBookmarks returns the user's bookmarks newest first.
func (e *Engine) ListBookmarks(userID string) ([]models.Bookmark, error) {
	entries, err := store.RangeWithScores(bookmarksSet(userID), true)
	if err != nil {
		return nil, err
	}
	out := make([]models.Bookmark, 0, len(entries))
	for _, entry := range entries {
		var bm models.Bookmark
		if err := json.Unmarshal(entry.Payload, &bm); err != nil {
			continue
		}
		out = append(out, bm)
	}
	return out, nil
}
