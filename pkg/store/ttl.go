package store

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/cockroachdb/pebble"

	"sealchat/pkg/logger"
)

// TTL-bound key/value records. Expiry is lazy: reads treat an expired
// record as absent and delete it on the way out, and the sweeper purges
// the rest on a schedule. Expiry emits no event.

type ttlEnvelope struct {
	Value     []byte `json:"v"`
	ExpiresAt int64  `json:"exp"` // unix millis
}

func ttlKey(key string) []byte {
	return []byte("kv:" + key)
}

// SetWithTTL stores value under key with the given time to live.
func SetWithTTL(key string, value []byte, ttl time.Duration) error {
	if db == nil {
		return ErrNotOpen
	}
	env := ttlEnvelope{Value: value, ExpiresAt: time.Now().Add(ttl).UnixMilli()}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := db.Set(ttlKey(key), b, pebble.Sync); err != nil {
		logger.Error("ttl_set_failed", "key", key, "error", err)
		return err
	}
	return nil
}

// GetTTL returns the stored value and its remaining lifetime. Expired or
// missing records yield ErrNotFound.
func GetTTL(key string) ([]byte, time.Duration, error) {
	if db == nil {
		return nil, 0, ErrNotOpen
	}
	raw, err := get(ttlKey(key))
	if err != nil {
		return nil, 0, err
	}
	var env ttlEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, 0, err
	}
	remaining := time.Until(time.UnixMilli(env.ExpiresAt))
	if remaining <= 0 {
		_ = db.Delete(ttlKey(key), pebble.NoSync)
		return nil, 0, ErrNotFound
	}
	return env.Value, remaining, nil
}

// DeleteTTL removes a TTL record immediately.
func DeleteTTL(key string) error {
	if db == nil {
		return ErrNotOpen
	}
	return db.Delete(ttlKey(key), pebble.Sync)
}

// PurgeExpired scans all TTL records and deletes those past their expiry.
// It returns the number of records purged.
func PurgeExpired(now time.Time) (int, error) {
	if db == nil {
		return 0, ErrNotOpen
	}
	prefix := []byte("kv:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	var expired [][]byte
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var env ttlEnvelope
		if err := json.Unmarshal(iter.Value(), &env); err != nil {
			continue
		}
		if now.UnixMilli() >= env.ExpiresAt {
			expired = append(expired, append([]byte(nil), iter.Key()...))
		}
	}
	if err := iter.Error(); err != nil {
		_ = iter.Close()
		return 0, err
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}
	for _, k := range expired {
		if err := db.Delete(k, pebble.Sync); err != nil {
			return 0, err
		}
	}
	if len(expired) > 0 {
		logger.Info("ttl_purged", "count", len(expired))
	}
	return len(expired), nil
}
