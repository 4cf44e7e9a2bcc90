// Package cache implements the process-wide shared caches: tree_cache,
// file_cache, root_trees, and collected, each with concurrent
// set-if-absent semantics (first writer wins). Per-worker local maps are
// expected to shadow these for hot-path reads; this package only provides
// the shared layer.
package cache

import (
	"log/slog"
	"sync"

	"github.com/ruscorpora/reposplit/internal/objhash"
)

// RepoHashKey identifies a cache entry scoped to one output repo and one
// source-side hash.
type RepoHashKey struct {
	Repo string
	Hash objhash.Hash
}

// Map is a generic concurrent map offering set-if-absent: the first stored
// value for a key always wins, and every subsequent SetIfAbsent for that key
// returns the original value rather than overwriting it.
type Map[K comparable, V comparable] struct {
	mu   sync.Mutex
	data map[K]V

	// onCollision is called (outside the lock) whenever a second writer
	// proposes a different value for an already-populated key. It is
	// optional diagnostics plumbing, not a correctness mechanism: the
	// conflict is always non-fatal (spec.md §7 CacheCollision).
	onCollision func(key K, existing, proposed V)
}

// NewMap constructs an empty concurrent map. onCollision may be nil.
func NewMap[K comparable, V comparable](onCollision func(key K, existing, proposed V)) *Map[K, V] {
	return &Map[K, V]{data: make(map[K]V), onCollision: onCollision}
}

// SetIfAbsent stores value for key if no value is stored yet, and always
// returns the value that ultimately won the race (ok is true if this call's
// value was the winner).
func (m *Map[K, V]) SetIfAbsent(key K, value V) (winner V, ok bool) {
	m.mu.Lock()
	existing, present := m.data[key]
	if !present {
		m.data[key] = value
		m.mu.Unlock()
		return value, true
	}
	m.mu.Unlock()

	if existing != value && m.onCollision != nil {
		m.onCollision(key, existing, value)
	}
	return existing, false
}

// Get returns the stored value for key, if any.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// Len returns the number of entries currently stored.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Set is a generic concurrent set offering the same set-if-absent race
// semantics as Map, used for the "collected" dedupe cache (spec.md §3),
// whose value is just a seen flag.
type Set[K comparable] struct {
	mu   sync.Mutex
	data map[K]struct{}
}

// NewSet constructs an empty concurrent set.
func NewSet[K comparable]() *Set[K] {
	return &Set[K]{data: make(map[K]struct{})}
}

// MarkSeen reports whether key was already present, and marks it seen
// either way. The caller uses the boolean to skip redundant work.
func (s *Set[K]) MarkSeen(key K) (alreadySeen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	s.data[key] = struct{}{}
	return ok
}

// Caches bundles the four process-wide shared caches described in spec.md §3.
type Caches struct {
	// TreeCache: (repo, source-tree-hash) -> translated-tree-hash.
	TreeCache *Map[RepoHashKey, objhash.Hash]
	// FileCache: (repo, source-blob-hash) -> translated-blob-hash.
	FileCache *Map[RepoHashKey, objhash.Hash]
	// RootTrees: (source-root-tree-hash, repo) -> translated-root-tree-hash.
	RootTrees *Map[RepoHashKey, objhash.Hash]
	// Collected: (repo, source-tree-hash) seen-flag, for collection dedupe.
	Collected *Set[RepoHashKey]
}

// New constructs a fresh Caches bundle, created at process startup and torn
// down at termination per spec.md §3's lifecycle note. log receives
// CacheCollision diagnostics; onCollision, if non-nil, is additionally
// notified of every collision's key (used to drive a persisted counter,
// e.g. internal/diag.Ledger.IncrCollision).
func New(log *slog.Logger, onCollision func(key RepoHashKey)) *Caches {
	notify := func(key RepoHashKey, existing, proposed objhash.Hash) {
		log.Warn("cache collision: first writer wins",
			"repo", key.Repo, "source_hash", key.Hash.String(),
			"existing", existing.String(), "proposed", proposed.String())
		if onCollision != nil {
			onCollision(key)
		}
	}
	return &Caches{
		TreeCache: NewMap(notify),
		FileCache: NewMap(notify),
		RootTrees: NewMap(notify),
		Collected: NewSet[RepoHashKey](),
	}
}
