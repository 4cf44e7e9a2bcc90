// Package diag persists run diagnostics that must survive a crashed or
// restarted run: collision counters and the shamap.txt collection index.
// Adapted from the teacher's internal/store bbolt-backed key-value layer,
// repurposed from human-key/hash mappings to collision counters and run
// metadata.
package diag

import (
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	bucketCollisions = []byte("collisions")
	bucketRuns       = []byte("runs")
)

// Ledger is a small bbolt-backed store of non-fatal diagnostic counters,
// opened once per run and closed at termination.
type Ledger struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the diagnostics ledger at path.
func Open(path string) (*Ledger, error) {
	db, err := bbolt.Open(path, 0o666, nil)
	if err != nil {
		return nil, fmt.Errorf("diag: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, e := tx.CreateBucketIfNotExists(bucketCollisions); e != nil {
			return e
		}
		if _, e := tx.CreateBucketIfNotExists(bucketRuns); e != nil {
			return e
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("diag: init buckets: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error { return l.db.Close() }

// IncrCollision bumps the counter for the named collision kind (e.g.
// "CacheCollision" or "MappingAmbiguity") and returns the new total.
func (l *Ledger) IncrCollision(kind string) (uint64, error) {
	var total uint64
	err := l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCollisions)
		key := []byte(kind)
		cur := b.Get(key)
		var n uint64
		if cur != nil {
			n = binary.BigEndian.Uint64(cur)
		}
		n++
		total = n
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], n)
		return b.Put(key, buf[:])
	})
	return total, err
}

// CollisionCount returns the current counter for kind (0 if never recorded).
func (l *Ledger) CollisionCount(kind string) (uint64, error) {
	var n uint64
	err := l.db.View(func(tx *bbolt.Tx) error {
		cur := tx.Bucket(bucketCollisions).Get([]byte(kind))
		if cur != nil {
			n = binary.BigEndian.Uint64(cur)
		}
		return nil
	})
	return n, err
}

// RecordRunSummary stores a free-form summary line for this run (total
// commits processed, repos touched), keyed by run ID, so a later invocation
// can detect it already completed a run over the same input.
func (l *Ledger) RecordRunSummary(runID, summary string) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).Put([]byte(runID), []byte(summary))
	})
}
