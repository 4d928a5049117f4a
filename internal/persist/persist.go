// Package persist is the JSON load/save layer between the state containers
// and a key/value repository. None of its operations fail towards the
// caller: read problems fall back to a default and write problems are logged.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/manjushapaul/Crypto-sub001/internal/metrics"
	"github.com/manjushapaul/Crypto-sub001/internal/repository"
	"github.com/manjushapaul/Crypto-sub001/lib/errs"
)

const defaultTimeout = 3 * time.Second

type Store struct {
	repo    repository.KVRepository
	log     *slog.Logger
	prefix  string
	timeout time.Duration
	shared  bool
}

type Option func(*Store)

// WithPrefix namespaces every key, e.g. "dashboard:" + "theme".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithShared marks the backend as written by more than one process. State
// containers re-read their keys before every change on a shared store.
func WithShared(shared bool) Option {
	return func(s *Store) {
		s.shared = shared
	}
}

func New(repo repository.KVRepository, log *slog.Logger, opts ...Option) *Store {
	s := &Store{
		repo:    repo,
		log:     log,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load decodes the value stored at key into a T. When the key is absent, the
// backend fails or the stored text does not decode, def is returned and the
// store is left untouched.
func Load[T any](s *Store, key string, def T) T {
	raw, ok := s.read(key)
	if !ok {
		return def
	}

	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		s.log.Warn("stored value is corrupt, using default", "key", key, "error", err)
		metrics.StoreOperations.WithLabelValues("load", "corrupt").Inc()
		return def
	}

	metrics.StoreOperations.WithLabelValues("load", "ok").Inc()
	return value
}

// LoadInto decodes the value stored at key on top of *value, so fields the
// stored record lacks keep what *value already held. It reports whether a
// stored value was applied; on a miss, a backend error or a corrupt value
// *value is left as it was.
func LoadInto[T any](s *Store, key string, value *T) bool {
	raw, ok := s.read(key)
	if !ok {
		return false
	}

	next := *value
	if err := json.Unmarshal([]byte(raw), &next); err != nil {
		s.log.Warn("stored value is corrupt, keeping current state", "key", key, "error", err)
		metrics.StoreOperations.WithLabelValues("load", "corrupt").Inc()
		return false
	}

	metrics.StoreOperations.WithLabelValues("load", "ok").Inc()
	*value = next
	return true
}

// Shared reports whether other processes write to the same keys.
func (s *Store) Shared() bool {
	return s.shared
}

// Save encodes value and writes it at key. The value is fully encoded before
// the backend is touched, so a failed save leaves the previous value in place.
func (s *Store) Save(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.log.Error("failed to encode value, keeping previous state", "key", key, "error", err)
		metrics.StoreOperations.WithLabelValues("save", "encode_error").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.repo.Set(ctx, s.prefix+key, string(data)); err != nil {
		s.log.Error("failed to persist value", "key", key, "error", err)
		metrics.StoreOperations.WithLabelValues("save", "error").Inc()
		return
	}

	metrics.StoreOperations.WithLabelValues("save", "ok").Inc()
}

func (s *Store) Remove(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.repo.Delete(ctx, s.prefix+key); err != nil {
		s.log.Error("failed to remove value", "key", key, "error", err)
		metrics.StoreOperations.WithLabelValues("remove", "error").Inc()
		return
	}

	metrics.StoreOperations.WithLabelValues("remove", "ok").Inc()
}

func (s *Store) read(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	raw, err := s.repo.Get(ctx, s.prefix+key)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			metrics.StoreOperations.WithLabelValues("load", "miss").Inc()
			return "", false
		}
		s.log.Warn("failed to read stored value, using default", "key", key, "error", err)
		metrics.StoreOperations.WithLabelValues("load", "error").Inc()
		return "", false
	}
	return raw, true
}
