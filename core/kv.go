package core

import "github.com/pkg/errors"

var ErrKeyNotFound = errors.New("key not found")

// KeyValue is the narrow local persistence port behind the session & preference store.
// Implementations must return ErrKeyNotFound for absent keys.
type KeyValue interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}
