package objstore

import (
	"errors"
	"testing"

	"github.com/ruscorpora/reposplit/internal/objhash"
)

func TestWriteReadRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	payload := []byte("hello\n")
	hash, err := s.Write(objhash.TypeBlob, payload)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	gotType, gotPayload, err := s.Read(hash)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if gotType != objhash.TypeBlob {
		t.Fatalf("type = %s, want blob", gotType)
	}
	if string(gotPayload) != string(payload) {
		t.Fatalf("payload = %q, want %q", gotPayload, payload)
	}
}

func TestWriteIsIdempotent(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	payload := []byte("same content")
	h1, err := s.Write(objhash.TypeBlob, payload)
	if err != nil {
		t.Fatalf("first Write: %v", err)
	}
	h2, err := s.Write(objhash.TypeBlob, payload)
	if err != nil {
		t.Fatalf("second Write (should be no-op): %v", err)
	}
	if h1 != h2 {
		t.Fatal("idempotent write produced a different hash")
	}
}

func TestReadMissingObject(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, _, err = s.Read(objhash.HashOf(objhash.TypeBlob, []byte("never written")))
	if !errors.Is(err, ErrObjectMissing) {
		t.Fatalf("expected ErrObjectMissing, got %v", err)
	}
}

func TestHasReflectsWrites(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	hash := objhash.HashOf(objhash.TypeBlob, []byte("x"))
	if s.Has(hash) {
		t.Fatal("Has reported true before Write")
	}
	if _, err := s.Write(objhash.TypeBlob, []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !s.Has(hash) {
		t.Fatal("Has reported false after Write")
	}
}
