package keys

import "sealchat/pkg/store"

// StoreDirectory adapts the pebble-backed key directory to the Directory
// interface.
type StoreDirectory struct{}

func (StoreDirectory) Lookup(userID string) ([]byte, error) {
	return store.LookupIdentityKey(userID)
}

func (StoreDirectory) PublishIfAbsent(userID string, pub []byte) (bool, error) {
	return store.PublishIdentityKey(userID, pub)
}
