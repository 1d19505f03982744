package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Memory implements the Cache interface with an in-process map. It is safe
// for concurrent use; concurrent misses on the same key are collapsed into a
// single computation.
type Memory struct {
	entries         map[string]*Entry
	group           singleflight.Group
	logger          zerolog.Logger
	mut             sync.RWMutex
	reapLoopStarted bool
	timeNow         func() time.Time
}

// NewMemory creates an empty in-memory cache
func NewMemory(logger zerolog.Logger) *Memory {
	return &Memory{
		entries: make(map[string]*Entry),
		logger:  logger.With().Str("component", "cache").Logger(),
		timeNow: time.Now,
	}
}

// Read implements Reader interface
func (m *Memory) Read(key string) (*Entry, bool) {
	m.mut.RLock()
	defer m.mut.RUnlock()

	entry, ok := m.entries[key]
	if !ok || entry.Expired(m.timeNow()) {
		return nil, false
	}
	return entry, true
}

// Write implements Writer interface
func (m *Memory) Write(key string, value any, ttl time.Duration) {
	m.mut.Lock()
	defer m.mut.Unlock()

	m.entries[key] = &Entry{Value: value, ExpiresAt: m.timeNow().Add(ttl)}
}

// Len returns the number of stored entries, expired or not
func (m *Memory) Len() int {
	m.mut.RLock()
	defer m.mut.RUnlock()
	return len(m.entries)
}

// ErrAbandoned is wrapped by a compute that gave up before doing any work
// because the caller that started it went away. Waiters still interested in
// the key start a fresh computation instead of failing with it.
var ErrAbandoned = errors.New("computation abandoned by its caller")

// GetOrCompute returns the unexpired value stored under key, or runs compute,
// stores its result for ttl and returns it. Failed computations are not
// stored.
//
// compute runs detached from ctx cancellation so that callers sharing the
// flight are not failed by the one that started it. A caller whose ctx ends
// stops waiting and gets ctx.Err(); the flight still completes and fills the
// key.
func GetOrCompute[V any](ctx context.Context, m *Memory, key string, ttl time.Duration, compute func(context.Context) (V, error)) (V, error) {
	var zero V

	for {
		if entry, ok := m.Read(key); ok {
			if v, ok := entry.Value.(V); ok {
				return v, nil
			}
		}

		flightCtx := context.WithoutCancel(ctx)
		ch := m.group.DoChan(key, func() (any, error) {
			// A previous flight may have filled the key after our first read.
			if entry, ok := m.Read(key); ok {
				return entry.Value, nil
			}
			v, err := compute(flightCtx)
			if err != nil {
				return nil, err
			}
			m.Write(key, v, ttl)
			return v, nil
		})

		var res singleflight.Result
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res = <-ch:
		}
		if res.Err != nil {
			if errors.Is(res.Err, ErrAbandoned) && ctx.Err() == nil {
				m.logger.Debug().Str("key", key).Msg("joined an abandoned computation, retrying")
				continue
			}
			return zero, res.Err
		}
		if res.Shared {
			m.logger.Debug().Str("key", key).Msg("shared in-flight computation")
		}

		v, ok := res.Val.(V)
		if !ok {
			return zero, fmt.Errorf("cache key %q holds %T, want %T", key, res.Val, zero)
		}
		return v, nil
	}
}

// ReapLoop deletes expired entries every interval until ctx is done.
// Lookups already ignore expired entries; reaping bounds memory.
func (m *Memory) ReapLoop(ctx context.Context, interval time.Duration) {
	m.mut.Lock()
	if m.reapLoopStarted {
		m.mut.Unlock()
		panic("cache: ReapLoop called twice on the same Memory")
	}
	m.reapLoopStarted = true
	m.mut.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("reap loop stopped")
			return
		case <-ticker.C:
			_ = m.reap()
		}
	}
}

func (m *Memory) reap() int {
	m.mut.Lock()
	defer m.mut.Unlock()

	now := m.timeNow()
	var numReaped int

	for key, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, key)
			numReaped++
		}
	}

	m.logger.Debug().Int("num_reaped", numReaped).Int("num_live", len(m.entries)).Msg("reaped expired entries")

	return numReaped
}
