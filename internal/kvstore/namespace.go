package kvstore

import "context"

// namespaced scopes every key of the wrapped backend under a prefix.
type namespaced struct {
	backend Backend
	prefix  string
}

// Namespace returns a Backend that stores key k of the caller as prefix+k.
func Namespace(backend Backend, prefix string) Backend {
	if prefix == "" {
		return backend
	}
	return namespaced{backend: backend, prefix: prefix}
}

// ProfilePrefix is the namespace prefix of one browser profile.
func ProfilePrefix(profileID string) string {
	return "profile:" + profileID + ":"
}

func (n namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.backend.Get(ctx, n.prefix+key)
}

func (n namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.backend.Set(ctx, n.prefix+key, value)
}

func (n namespaced) Delete(ctx context.Context, key string) error {
	return n.backend.Delete(ctx, n.prefix+key)
}
