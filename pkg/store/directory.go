package store

import (
	"sync"

	"github.com/cockroachdb/pebble"

	"sealchat/pkg/logger"
)

// The key directory maps a user id to that user's published long-term
// public key. Publication is first-writer-wins: once a key is present it
// is never replaced through this path.

var directoryMu sync.Mutex

func directoryKey(userID string) []byte {
	return []byte("directory:user:" + userID + ":identity_key")
}

// PublishIdentityKey stores pub under userID only if the directory has no
// entry for that user yet. It reports whether the write happened.
func PublishIdentityKey(userID string, pub []byte) (bool, error) {
	if db == nil {
		return false, ErrNotOpen
	}
	directoryMu.Lock()
	defer directoryMu.Unlock()
	key := directoryKey(userID)
	if _, err := get(key); err == nil {
		logger.Debug("identity_key_already_published", "user", userID)
		return false, nil
	} else if err != ErrNotFound {
		return false, err
	}
	if err := db.Set(key, pub, pebble.Sync); err != nil {
		logger.Error("identity_key_publish_failed", "user", userID, "error", err)
		return false, err
	}
	logger.Info("identity_key_published", "user", userID)
	return true, nil
}

// LookupIdentityKey returns the published public key for userID, or
// ErrNotFound when the user has not published one.
func LookupIdentityKey(userID string) ([]byte, error) {
	return get(directoryKey(userID))
}
