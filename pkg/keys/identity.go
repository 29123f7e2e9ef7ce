package keys

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/curve25519"

	"sealchat/pkg/logger"
	"sealchat/pkg/security"
)

// Pair is a device's long-term X25519 key pair. The private half never
// leaves the device; only the public half is published.
type Pair struct {
	Public  []byte
	Private []byte
}

// Directory is the external store mapping user id to published public key.
type Directory interface {
	Lookup(userID string) ([]byte, error)
	// PublishIfAbsent writes the key only when the user has none yet
	// (first-writer-wins) and reports whether the write happened.
	PublishIfAbsent(userID string, pub []byte) (bool, error)
}

// ErrPublishFailed wraps directory errors from Ensure. The local key pair
// is still valid and returned; the caller is expected to retry the
// publish, not to regenerate the pair.
var ErrPublishFailed = errors.New("keys: directory publish failed")

// Store manages device-local identity key material under a directory on
// disk, one file per user id.
type Store struct {
	dir       string
	directory Directory
}

// NewStore returns a key store rooted at dir that publishes to d.
func NewStore(dir string, d Directory) *Store {
	return &Store{dir: dir, directory: d}
}

// Ensure returns the device's identity key pair for userID, generating and
// persisting one on first use. The call is idempotent: an existing pair is
// returned unchanged. The public half is published to the directory
// first-writer-wins; a directory failure does not block key generation but
// surfaces as ErrPublishFailed alongside the valid pair so the caller can
// retry the publish.
func (s *Store) Ensure(userID string) (Pair, error) {
	if userID == "" {
		return Pair{}, fmt.Errorf("keys: empty user id")
	}
	pair, err := s.load(userID)
	if err == nil {
		return pair, s.publish(userID, pair.Public)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return Pair{}, err
	}

	priv := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, priv); err != nil {
		return Pair{}, fmt.Errorf("keys: generate private key: %w", err)
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return Pair{}, fmt.Errorf("keys: derive public key: %w", err)
	}
	if err := s.persist(userID, priv); err != nil {
		return Pair{}, err
	}
	_ = security.LockMemory(priv)
	logger.Info("identity_key_generated", "user", userID)

	pair = Pair{Public: pub, Private: priv}
	return pair, s.publish(userID, pub)
}

func (s *Store) publish(userID string, pub []byte) error {
	if s.directory == nil {
		return nil
	}
	if _, err := s.directory.PublishIfAbsent(userID, pub); err != nil {
		logger.Warn("identity_key_publish_failed", "user", userID, "error", err)
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return nil
}

func (s *Store) keyPath(userID string) string {
	// user ids are opaque; keep the filename safe
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, userID)
	return filepath.Join(s.dir, name+".key")
}

func (s *Store) load(userID string) (Pair, error) {
	b, err := os.ReadFile(s.keyPath(userID))
	if err != nil {
		return Pair{}, err
	}
	priv, err := hex.DecodeString(strings.TrimSpace(string(b)))
	if err != nil || len(priv) != 32 {
		return Pair{}, fmt.Errorf("keys: corrupt private key file for %s", userID)
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Public: pub, Private: priv}, nil
}

func (s *Store) persist(userID string, priv []byte) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("keys: create key dir: %w", err)
	}
	path := s.keyPath(userID)
	if err := os.WriteFile(path, []byte(hex.EncodeToString(priv)), 0o600); err != nil {
		return fmt.Errorf("keys: persist private key: %w", err)
	}
	return nil
}
