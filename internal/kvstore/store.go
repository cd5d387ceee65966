package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
)

// Store adds JSON encoding and failure tolerance on top of a Backend.
// None of its methods return errors: failures are logged and the caller
// falls back to its default value or in-memory state.
type Store struct {
	backend Backend
	log     *zap.Logger
}

func New(backend Backend, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{backend: backend, log: log.Named("kvstore")}
}

// Read decodes the value stored under key into dst. It reports false when the
// key is absent, unreadable or malformed; dst is left untouched in that case.
func (s *Store) Read(ctx context.Context, key string, dst any) bool {
	raw, ok := s.raw(ctx, key)
	if !ok {
		return false
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		s.log.Warn("malformed stored value, using default", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Write encodes v as JSON and stores it under key. It reports whether the write succeeded.
func (s *Store) Write(ctx context.Context, key string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("failed to encode value", zap.String("key", key), zap.Error(err))
		return false
	}
	return s.put(ctx, key, data)
}

// ReadString returns a raw (not JSON-encoded) value.
func (s *Store) ReadString(ctx context.Context, key string) (string, bool) {
	raw, ok := s.raw(ctx, key)
	if !ok || len(raw) == 0 {
		return "", false
	}
	return string(raw), true
}

// WriteString stores a raw (not JSON-encoded) value.
func (s *Store) WriteString(ctx context.Context, key, value string) bool {
	return s.put(ctx, key, []byte(value))
}

// Remove deletes key. Missing keys are not an error.
func (s *Store) Remove(ctx context.Context, key string) bool {
	if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		s.log.Warn("storage delete failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) raw(ctx context.Context, key string) ([]byte, bool) {
	raw, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false
	}
	if err != nil {
		s.log.Warn("storage read failed, using default", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return raw, true
}

func (s *Store) put(ctx context.Context, key string, data []byte) bool {
	if err := s.backend.Set(ctx, key, data); err != nil {
		s.log.Warn("storage write failed, keeping in-memory state", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// ReadOr returns the value stored under key, or def when it cannot be read.
func ReadOr[T any](ctx context.Context, s *Store, key string, def T) T {
	var v T
	if !s.Read(ctx, key, &v) {
		return def
	}
	return v
}
