package storage

import "context"

// Update describes a change to a single key. A nil Value means the key was
// deleted.
type Update struct {
	Key   []byte
	Value []byte
}

// Store holds a JSON document keyed by top level keys.
type Store interface {
	Set(ctx context.Context, key []byte, value interface{}) error
	Get(ctx context.Context, key []byte) ([]byte, error)
	Delete(ctx context.Context, key []byte) error

	Restore(values []byte) error
	Backup() ([]byte, error)

	ListenToUpdates() <-chan *Update

	Close() error
}
