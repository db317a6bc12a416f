package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key or collection does not exist.
var ErrNotFound = errors.New("storage: not found")

// Object is a listed object store entry.
type Object struct {
	Key string
	URL string
}

// PutOptions controls how an object is written.
type PutOptions struct {
	Public      bool
	ContentType string
}

// ObjectStore is the mutable, network-backed blob store. Only its
// put/list/get/delete-by-key contract is relied upon.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, opts PutOptions) (url string, err error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// KeyResolver is implemented by object stores that can map one of their
// public URLs back to its key.
type KeyResolver interface {
	KeyForURL(url string) (string, bool)
}

// BaselineStore is the durable seed snapshot of each collection.
type BaselineStore interface {
	ReadCollection(ctx context.Context, name string) ([]byte, error)
	WriteCollection(ctx context.Context, name string, data []byte) error
}
