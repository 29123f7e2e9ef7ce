package store

import (
	"bytes"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"sealchat/pkg/logger"
)

// The scored-set layout emulates a sorted set on top of pebble's ordered
// key space. Each member is stored under
//
//	zset:<set>:<score %020d>-<seq %06d>
//
// so prefix iteration yields members in score order. The seq suffix keeps
// two members inserted at the same score from clobbering each other; it is
// not part of the score, and RemoveByScore deletes every member whose
// score matches regardless of seq.

// seq reduces key collisions when multiple members share a score.
var seq uint64

// ScoredEntry is one member of a scored set together with its score.
type ScoredEntry struct {
	Score   int64
	Payload []byte
}

func setPrefix(set string) []byte {
	return []byte("zset:" + set + ":")
}

func scoreKey(set string, score int64) []byte {
	return []byte(fmt.Sprintf("zset:%s:%020d-", set, score))
}

// AppendScored inserts payload into the named scored set under score.
func AppendScored(set string, score int64, payload []byte) error {
	if db == nil {
		return ErrNotOpen
	}
	if score < 0 {
		return fmt.Errorf("store: negative score %d", score)
	}
	s := atomic.AddUint64(&seq, 1)
	key := fmt.Sprintf("zset:%s:%020d-%06d", set, score, s%1000000)
	if err := db.Set([]byte(key), payload, pebble.Sync); err != nil {
		logger.Error("append_scored_failed", "set", set, "score", score, "error", err)
		return err
	}
	logger.Debug("append_scored", "set", set, "score", score)
	return nil
}

// RangeWithScores returns all members of the set in score order, or newest
// first when reverse is set.
func RangeWithScores(set string, reverse bool) ([]ScoredEntry, error) {
	if db == nil {
		return nil, ErrNotOpen
	}
	prefix := setPrefix(set)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []ScoredEntry
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		score, perr := parseScore(iter.Key(), len(prefix))
		if perr != nil {
			logger.Warn("scored_key_unparseable", "key", string(iter.Key()))
			continue
		}
		out = append(out, ScoredEntry{
			Score:   score,
			Payload: append([]byte(nil), iter.Value()...),
		})
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

// RemoveByScore deletes every member stored at exactly the given score.
// Callers relying on score-equals-timestamp accept that two members at the
// same score are both removed.
func RemoveByScore(set string, score int64) (int, error) {
	if db == nil {
		return 0, ErrNotOpen
	}
	prefix := scoreKey(set, score)
	keys, err := collectKeys(prefix)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := db.Delete(k, pebble.Sync); err != nil {
			return 0, err
		}
	}
	logger.Debug("remove_by_score", "set", set, "score", score, "removed", len(keys))
	return len(keys), nil
}

// RemoveByMember deletes members whose payload equals the given bytes,
// mirroring a sorted set's remove-by-member.
func RemoveByMember(set string, payload []byte) (int, error) {
	if db == nil {
		return 0, ErrNotOpen
	}
	prefix := setPrefix(set)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	var keys [][]byte
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if bytes.Equal(iter.Value(), payload) {
			keys = append(keys, append([]byte(nil), iter.Key()...))
		}
	}
	if err := iter.Error(); err != nil {
		_ = iter.Close()
		return 0, err
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := db.Delete(k, pebble.Sync); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

func collectKeys(prefix []byte) ([][]byte, error) {
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var keys [][]byte
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		keys = append(keys, append([]byte(nil), iter.Key()...))
	}
	return keys, iter.Error()
}

func parseScore(key []byte, prefixLen int) (int64, error) {
	rest := key[prefixLen:]
	dash := bytes.IndexByte(rest, '-')
	if dash < 0 {
		return 0, fmt.Errorf("store: malformed scored key")
	}
	return strconv.ParseInt(string(rest[:dash]), 10, 64)
}
