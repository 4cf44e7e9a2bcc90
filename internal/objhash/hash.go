// Package objhash computes canonical content-addressed object hashes and
// encodes/decodes the tree and commit payload formats shared by the source
// and output object stores.
package objhash

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrInvalidHash is returned when a hex string does not decode to a Hash.
var ErrInvalidHash = errors.New("objhash: invalid hash")

// Hash is the 20-byte content-addressed object identifier.
type Hash [20]byte

// String returns the 40-character lowercase hex form.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHash decodes a 40-character hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != 40 {
		return h, fmt.Errorf("%w: want 40 hex chars, got %d", ErrInvalidHash, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	copy(h[:], raw)
	return h, nil
}

// Type is the tag of an object's canonical payload.
type Type string

const (
	TypeBlob   Type = "blob"
	TypeTree   Type = "tree"
	TypeCommit Type = "commit"
)

// HashOf computes the canonical hash of payload under the given object type,
// matching the reference content-addressed store: sha1("<type> <len>\0" + payload).
func HashOf(t Type, payload []byte) Hash {
	h := sha1.New()
	fmt.Fprintf(h, "%s %d\x00", t, len(payload))
	h.Write(payload)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
