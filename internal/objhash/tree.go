package objhash

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidTree is returned by EncodeTree when the entry set contains a
// duplicate name.
var ErrInvalidTree = errors.New("objhash: duplicate name in tree")

// ErrMalformedTree is returned by DecodeTree on truncated or malformed input.
var ErrMalformedTree = errors.New("objhash: malformed tree payload")

// dirMode is the mode token used for tree (directory) entries.
const dirMode = "40000"

// TreeEntry is one (mode, name, hash) triple inside a tree payload.
type TreeEntry struct {
	Mode string
	Name string
	Hash Hash
}

// sortKey returns the name used for ordering: directories sort as if their
// name carried a trailing "/", so "foo" (file) sorts before "foo/" (dir) but
// after "fon".
func (e TreeEntry) sortKey() string {
	if e.Mode == dirMode {
		return e.Name + "/"
	}
	return e.Name
}

// EncodeTree sorts entries by the directory-aware name ordering and packs
// them as a sequence of "mode SP name NUL 20-byte-hash". It fails with
// ErrInvalidTree if two entries share a name.
func EncodeTree(entries []TreeEntry) ([]byte, error) {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].sortKey() < sorted[j].sortKey()
	})

	seen := make(map[string]struct{}, len(sorted))
	var buf bytes.Buffer
	for _, e := range sorted {
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTree, e.Name)
		}
		seen[e.Name] = struct{}{}

		buf.WriteString(e.Mode)
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(e.Hash[:])
	}
	return buf.Bytes(), nil
}

// DecodeTree parses a tree payload, preserving the original on-disk order.
func DecodeTree(data []byte) ([]TreeEntry, error) {
	var entries []TreeEntry
	for len(data) > 0 {
		sp := bytes.IndexByte(data, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("%w: missing mode separator", ErrMalformedTree)
		}
		mode := string(data[:sp])
		if !validMode(mode) {
			return nil, fmt.Errorf("%w: bad mode %q", ErrMalformedTree, mode)
		}
		rest := data[sp+1:]

		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return nil, fmt.Errorf("%w: missing NUL after name", ErrMalformedTree)
		}
		name := string(rest[:nul])
		rest = rest[nul+1:]

		if len(rest) < 20 {
			return nil, fmt.Errorf("%w: truncated hash", ErrMalformedTree)
		}
		var h Hash
		copy(h[:], rest[:20])

		entries = append(entries, TreeEntry{Mode: mode, Name: name, Hash: h})
		data = rest[20:]
	}
	return entries, nil
}

func validMode(mode string) bool {
	switch mode {
	case "100644", "100755", "120000", dirMode:
		return true
	default:
		return false
	}
}
