package store

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/cockroachdb/pebble"

	"sealchat/pkg/logger"
)

var (
	db     *pebble.DB
	dbPath string
)

// ErrNotFound is returned for lookups that matched nothing.
var ErrNotFound = errors.New("store: not found")

// ErrNotOpen is returned when the store is used before Open.
var ErrNotOpen = errors.New("store: pebble not opened; call store.Open first")

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// DiskSize returns the best-effort on-disk size of the database directory.
func DiskSize() uint64 {
	if dbPath == "" {
		return 0
	}
	var total uint64
	_ = filepath.WalkDir(dbPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += uint64(fi.Size())
		}
		return nil
	})
	return total
}

// get reads a raw key, mapping pebble's not-found to ErrNotFound.
func get(key []byte) ([]byte, error) {
	if db == nil {
		return nil, ErrNotOpen
	}
	v, closer, err := db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	out := append([]byte(nil), v...)
	if closer != nil {
		_ = closer.Close()
	}
	return out, nil
}
