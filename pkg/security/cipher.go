package security

import (
	"crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// KeySize is the symmetric key length used by the message cipher.
const KeySize = 32

// NonceSize is the length of the random nonce prepended to every sealed
// message.
const NonceSize = 24

// ErrAuthenticationFailed is returned when a ciphertext's tag does not
// verify: wrong key, corruption, or tampering. Callers must treat the
// content as untrusted and never fall through to displaying the raw bytes.
var ErrAuthenticationFailed = errors.New("security: message authentication failed")

// ErrEncryptionUnavailable is returned when a send is attempted before the
// conversation's session keys exist. Sends must fail fast on this rather
// than fall back to plaintext.
var ErrEncryptionUnavailable = errors.New("security: no session key for conversation")

// Seal encrypts plaintext under txKey with XSalsa20-Poly1305. A fresh
// random nonce is drawn for every call and prepended to the returned
// ciphertext. The nonce must never be derived from the timestamp or
// message id: nonce reuse under one key breaks the cipher.
func Seal(plaintext, txKey []byte) ([]byte, error) {
	if len(txKey) != KeySize {
		return nil, ErrEncryptionUnavailable
	}
	var key [KeySize]byte
	copy(key[:], txKey)
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}
	out := make([]byte, NonceSize, NonceSize+len(plaintext)+secretbox.Overhead)
	copy(out, nonce[:])
	return secretbox.Seal(out, plaintext, &nonce, &key), nil
}

// Open decrypts a Seal-produced ciphertext under rxKey. Any alteration of
// the nonce, body, or tag yields ErrAuthenticationFailed.
func Open(ciphertext, rxKey []byte) ([]byte, error) {
	if len(rxKey) != KeySize {
		return nil, ErrEncryptionUnavailable
	}
	if len(ciphertext) < NonceSize+secretbox.Overhead {
		return nil, ErrAuthenticationFailed
	}
	var key [KeySize]byte
	copy(key[:], rxKey)
	var nonce [NonceSize]byte
	copy(nonce[:], ciphertext[:NonceSize])
	plain, ok := secretbox.Open(nil, ciphertext[NonceSize:], &nonce, &key)
	if !ok {
		return nil, ErrAuthenticationFailed
	}
	return plain, nil
}
