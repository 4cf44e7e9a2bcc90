// Package objstore is the loose object store layer: it reads compressed
// objects from a source repository and writes canonical new objects into
// per-output-repo stores, sharded by the first byte of the hex hash exactly
// as the reference content-addressed store lays its objects out on disk.
package objstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zlib"

	"github.com/ruscorpora/reposplit/internal/objhash"
)

// ErrObjectMissing is returned when a hash has no corresponding object file.
var ErrObjectMissing = errors.New("objstore: object missing")

// ErrMalformedObject is returned when a stored object's header or body is
// truncated or otherwise invalid.
var ErrMalformedObject = errors.New("objstore: malformed object")

// Store is a loose object store rooted at a single directory. One Store is
// opened per repo_scope: the shared source store, or one per output repo.
type Store struct {
	root string
}

// Open returns a Store rooted at dir, creating dir if necessary. Directory
// creation for the overall run is an external responsibility (spec §1's
// out-of-scope front-end); Open only ensures its own root exists so writes
// never fail on a missing parent.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("objstore: create root %s: %w", dir, err)
	}
	return &Store{root: dir}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) pathFor(hash objhash.Hash) string {
	hex := hash.String()
	return filepath.Join(s.root, hex[:2], hex[2:])
}

// Has reports whether an object for hash is already present.
func (s *Store) Has(hash objhash.Hash) bool {
	_, err := os.Stat(s.pathFor(hash))
	return err == nil
}

// Read decompresses and parses the object stored under hash, returning its
// declared type and its payload (whose length has been checked against the
// declared one).
func (s *Store) Read(hash objhash.Hash) (objhash.Type, []byte, error) {
	path := s.pathFor(hash)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("%w: %s", ErrObjectMissing, hash)
		}
		return "", nil, fmt.Errorf("objstore: open %s: %w", path, err)
	}
	defer f.Close()

	zr, err := zlib.NewReader(f)
	if err != nil {
		return "", nil, fmt.Errorf("%w: zlib: %v", ErrMalformedObject, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return "", nil, fmt.Errorf("%w: inflate: %v", ErrMalformedObject, err)
	}

	return parseCanonical(raw)
}

// parseCanonical splits "<type> <length>\0<payload>" and validates the
// declared length against the actual payload size.
func parseCanonical(raw []byte) (objhash.Type, []byte, error) {
	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return "", nil, fmt.Errorf("%w: missing NUL header terminator", ErrMalformedObject)
	}
	header := string(raw[:nul])
	payload := raw[nul+1:]

	var objType string
	var size int
	if n, err := fmt.Sscanf(header, "%s %d", &objType, &size); err != nil || n != 2 {
		return "", nil, fmt.Errorf("%w: bad header %q", ErrMalformedObject, header)
	}
	if size != len(payload) {
		return "", nil, fmt.Errorf("%w: declared size %d != actual %d", ErrMalformedObject, size, len(payload))
	}

	return objhash.Type(objType), payload, nil
}

// Write computes payload's canonical hash under t, and persists it if not
// already present. Writing an object that already exists is a no-op, so
// Write is safe to call repeatedly for the same content (idempotent re-runs,
// spec §7).
func (s *Store) Write(t objhash.Type, payload []byte) (objhash.Hash, error) {
	hash := objhash.HashOf(t, payload)
	path := s.pathFor(hash)

	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return hash, fmt.Errorf("objstore: create shard dir: %w", err)
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	fmt.Fprintf(zw, "%s %d\x00", t, len(payload))
	if _, err := zw.Write(payload); err != nil {
		zw.Close()
		return hash, fmt.Errorf("objstore: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return hash, fmt.Errorf("objstore: close zlib writer: %w", err)
	}

	// Write-then-rename keeps concurrent writers of the same object from
	// ever observing a partially written file (mirrors the source store's
	// own atomic-rename loose-object writer).
	// Each call gets its own temp file, so goroutines of this process writing
	// the same object never share (and truncate) one another's temp file.
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return hash, fmt.Errorf("objstore: create temp file: %w", err)
	}
	tmp := tmpFile.Name()
	_, err = tmpFile.Write(compressed.Bytes())
	if cerr := tmpFile.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp, 0o644)
	}
	if err != nil {
		os.Remove(tmp)
		return hash, fmt.Errorf("objstore: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		if os.IsExist(err) {
			return hash, nil
		}
		return hash, fmt.Errorf("objstore: rename into place: %w", err)
	}

	return hash, nil
}
