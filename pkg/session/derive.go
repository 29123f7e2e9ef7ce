package session

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/curve25519"
)

// ErrKeyUnavailable is returned when session derivation is attempted
// before the device's private identity key exists.
var ErrKeyUnavailable = errors.New("session: local identity key unavailable")

// Keys is the pair of directional symmetric keys for one conversation.
// TX seals outbound messages, RX opens inbound ones. Both participants
// derive the same two keys with TX and RX swapped.
type Keys struct {
	RX []byte
	TX []byte
}

// Zero wipes the key material in place.
func (k *Keys) Zero() {
	for i := range k.RX {
		k.RX[i] = 0
	}
	for i := range k.TX {
		k.TX[i] = 0
	}
}

// Derive computes the conversation's session key pair from long-term key
// material, with no handshake beyond the directory exchange of public
// keys. The construction follows libsodium's crypto_kx: both sides hash
//
//	BLAKE2b-512( X25519(ourPriv, theirPub) || initiatorPub || responderPub )
//
// and split the digest in half. The initiator is the participant whose
// user id sorts lexicographically first; it reads rx from the first half
// and tx from the second, the responder the other way around, so
// initiator.tx == responder.rx and initiator.rx == responder.tx.
//
// Derivation is deterministic: the same inputs always yield bit-identical
// keys, which is what lets the two peers agree without synchronizing.
func Derive(ourPriv, ourPub, theirPub []byte, myID, otherID string) (Keys, error) {
	if len(ourPriv) == 0 {
		return Keys{}, ErrKeyUnavailable
	}
	if len(ourPriv) != 32 || len(ourPub) != 32 || len(theirPub) != 32 {
		return Keys{}, fmt.Errorf("session: key material must be 32 bytes")
	}
	if myID == otherID {
		return Keys{}, fmt.Errorf("session: cannot derive keys for a self-conversation")
	}

	shared, err := curve25519.X25519(ourPriv, theirPub)
	if err != nil {
		return Keys{}, fmt.Errorf("session: x25519: %w", err)
	}

	initiator := myID < otherID
	initiatorPub, responderPub := ourPub, theirPub
	if !initiator {
		initiatorPub, responderPub = theirPub, ourPub
	}

	h, err := blake2b.New512(nil)
	if err != nil {
		return Keys{}, err
	}
	h.Write(shared)
	h.Write(initiatorPub)
	h.Write(responderPub)
	sum := h.Sum(nil)

	var k Keys
	if initiator {
		k.RX = append([]byte(nil), sum[:32]...)
		k.TX = append([]byte(nil), sum[32:]...)
	} else {
		k.RX = append([]byte(nil), sum[32:]...)
		k.TX = append([]byte(nil), sum[:32]...)
	}
	return k, nil
}
