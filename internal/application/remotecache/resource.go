package remotecache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pocketmall/shopdata/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// Entry wraps a fetched value with its fetch time. An entry younger than the
// resource TTL is fresh; a stale entry is never deleted, only reclassified,
// so it stays usable as the retry fallback.
type Entry[T any] struct {
	Data      T         `json:"data"`
	FetchedAt time.Time `json:"timestamp"`
}

// Fresh reports whether the entry is within ttl of now.
func (e *Entry[T]) Fresh(ttl time.Duration, now time.Time) bool {
	return e != nil && now.Sub(e.FetchedAt) < ttl
}

// FetchFunc loads the value from the remote source of truth.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Options configures a Resource.
type Options struct {
	TTL    time.Duration
	Retry  RetryPolicy
	Store  ports.DeviceStore
	Logger *logrus.Logger
	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// Resource is a read-through cache over one remote value. The read path
// never returns an error: it serves the fresh entry, then a freshly fetched
// value, then the stale entry, then the documented default, in that order.
// Concurrent misses for the same resource are not coordinated; redundant
// parallel fetches are accepted.
type Resource[T any] struct {
	name       string
	id         string
	defaultVal T
	fetch      FetchFunc[T]
	opts       Options

	mu       sync.Mutex
	entry    *Entry[T]
	hydrated bool
}

// NewResource builds a cached remote resource. name+id form the device-store
// key (`<name>_cache_<id>`).
func NewResource[T any](name, id string, defaultVal T, fetch FetchFunc[T], opts Options) *Resource[T] {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Resource[T]{name: name, id: id, defaultVal: defaultVal, fetch: fetch, opts: opts}
}

func (r *Resource[T]) storageKey() string {
	return r.name + "_cache_" + r.id
}

// Get returns the resource value per the read-path fallback chain.
func (r *Resource[T]) Get(ctx context.Context) T {
	now := r.opts.Clock()

	r.mu.Lock()
	if !r.hydrated {
		r.hydrateLocked(ctx)
	}
	if r.entry.Fresh(r.opts.TTL, now) {
		data := r.entry.Data
		r.mu.Unlock()
		cacheHits.WithLabelValues(r.name).Inc()
		return data
	}
	r.mu.Unlock()
	cacheMisses.WithLabelValues(r.name).Inc()

	value, err := r.refresh(ctx)
	if err == nil {
		return value
	}

	r.mu.Lock()
	stale := r.entry
	r.mu.Unlock()
	if stale != nil {
		staleFallbacks.WithLabelValues(r.name).Inc()
		if r.opts.Logger != nil {
			r.opts.Logger.WithFields(logrus.Fields{
				"resource":  r.name,
				"id":        r.id,
				"transient": IsTransient(err),
			}).WithError(err).Warn("remote fetch exhausted, serving stale cache")
		}
		return stale.Data
	}

	defaultsServed.WithLabelValues(r.name).Inc()
	if r.opts.Logger != nil {
		r.opts.Logger.WithFields(logrus.Fields{
			"resource":  r.name,
			"id":        r.id,
			"transient": IsTransient(err),
		}).WithError(err).Warn("remote fetch exhausted with empty cache, serving default")
	}
	return r.defaultVal
}

// Refresh forces a fetch regardless of freshness, replacing the entry on
// success. Used after a successful write to the same remote state.
func (r *Resource[T]) Refresh(ctx context.Context) (T, error) {
	return r.refresh(ctx)
}

// Put replaces the cached entry with a value obtained out of band (for
// example the response body of a successful write).
func (r *Resource[T]) Put(ctx context.Context, value T) {
	r.store(ctx, &Entry[T]{Data: value, FetchedAt: r.opts.Clock()})
}

// Invalidate drops both the in-memory and persisted entry.
func (r *Resource[T]) Invalidate(ctx context.Context) {
	r.mu.Lock()
	r.entry = nil
	r.hydrated = true
	r.mu.Unlock()
	if r.opts.Store != nil {
		if err := r.opts.Store.Delete(ctx, r.storageKey()); err != nil && r.opts.Logger != nil {
			r.opts.Logger.WithFields(logrus.Fields{"key": r.storageKey()}).WithError(err).Warn("failed to delete cached entry")
		}
	}
}

func (r *Resource[T]) refresh(ctx context.Context) (T, error) {
	var value T
	firstAttempt := true
	err := r.opts.Retry.Do(ctx, func() error {
		if !firstAttempt {
			fetchRetries.WithLabelValues(r.name).Inc()
		}
		firstAttempt = false
		v, err := r.fetch(ctx)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	r.store(ctx, &Entry[T]{Data: value, FetchedAt: r.opts.Clock()})
	return value, nil
}

// store replaces the in-memory entry and persists it. Store write failures
// are logged, never propagated: losing the persisted copy only costs a
// re-fetch after restart.
func (r *Resource[T]) store(ctx context.Context, entry *Entry[T]) {
	r.mu.Lock()
	r.entry = entry
	r.hydrated = true
	r.mu.Unlock()

	if r.opts.Store == nil {
		return
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := r.opts.Store.Set(ctx, r.storageKey(), b); err != nil && r.opts.Logger != nil {
		r.opts.Logger.WithFields(logrus.Fields{"key": r.storageKey()}).WithError(err).Warn("failed to persist cached entry")
	}
}

// hydrateLocked loads the persisted entry on first use. A stale persisted
// entry still counts: it is the fallback when the remote is down at boot.
func (r *Resource[T]) hydrateLocked(ctx context.Context) {
	r.hydrated = true
	if r.opts.Store == nil {
		return
	}
	b, ok, err := r.opts.Store.Get(ctx, r.storageKey())
	if err != nil || !ok {
		return
	}
	var entry Entry[T]
	if json.Unmarshal(b, &entry) != nil {
		return
	}
	r.entry = &entry
}
