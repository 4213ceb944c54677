// Package history persists the per-epoch logs of training runs in a key-value
// store. Keys are hierarchical paths such as run:<id>:epoch:0001.
package history

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("history: not found")

// Separator joins the segments of a key.
const Separator = ':'

// Key is a hierarchical path. Segments must not contain Separator.
type Key []string

func (k Key) String() string {
	return strings.Join(k, string(Separator))
}

func (k Key) encode() []byte {
	return []byte(k.String())
}

func decode(b []byte) Key {
	return Key(strings.Split(string(b), string(Separator)))
}

// prefix is the encoded form of k followed by the separator, so that the
// prefix a:b does not match a:bc. An empty key matches everything.
func (k Key) prefix() []byte {
	if len(k) == 0 {
		return nil
	}
	return append(k.encode(), Separator)
}

// Entry is a key-value pair returned by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store with path keys.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a key-value pair, overwriting any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// List iterates over all entries below prefix in lexicographic key
	// order.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	Close() error
}
