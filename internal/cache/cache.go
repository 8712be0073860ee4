// Package cache defines the namespaced TTL key-value store that holds query
// results between pipeline stages.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultNamespace prefixes every key when no namespace is configured.
const DefaultNamespace = "finance_agent"

// DefaultTTL is how long an entry stays readable when no TTL is configured.
const DefaultTTL = 300 * time.Second

// ErrNotFound is returned for absent or expired keys.
var ErrNotFound = errors.New("cache: key not found or expired")

// Store is a TTL key-value store. Entries expire passively; there is no delete.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Close() error
}

// Key joins a namespace and a key with a colon.
func Key(namespace, key string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return strings.TrimSuffix(namespace, ":") + ":" + key
}

// Namespaced prefixes every key passed to the wrapped store.
type Namespaced struct {
	store     Store
	namespace string
}

// WithNamespace wraps store so all keys live under namespace.
func WithNamespace(store Store, namespace string) *Namespaced {
	return &Namespaced{store: store, namespace: namespace}
}

func (n *Namespaced) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return n.store.Set(ctx, Key(n.namespace, key), value, ttl)
}

func (n *Namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.store.Get(ctx, Key(n.namespace, key))
}

func (n *Namespaced) Close() error {
	return n.store.Close()
}

var _ Store = (*Namespaced)(nil)
