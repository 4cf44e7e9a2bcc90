package objhash

import "testing"

func TestHashOfDeterministic(t *testing.T) {
	payload := []byte("hello\n")
	h1 := HashOf(TypeBlob, payload)
	h2 := HashOf(TypeBlob, payload)
	if h1 != h2 {
		t.Fatal("HashOf must be deterministic for identical input")
	}
}

func TestHashOfKnownBlob(t *testing.T) {
	// "blob 6\0hello\n" is the canonical payload git hashes for a file
	// containing "hello\n"; the resulting sha1 is a well-known fixture.
	got := HashOf(TypeBlob, []byte("hello\n"))
	want := "ce013625030ba8dba906f756967f9e9ca394464"
	if got.String() != want {
		t.Fatalf("HashOf mismatch: got %s, want %s", got.String(), want)
	}
}

func TestHashOfDistinguishesType(t *testing.T) {
	payload := []byte("same bytes")
	if HashOf(TypeBlob, payload) == HashOf(TypeTree, payload) {
		t.Fatal("different object types must hash differently for the same payload")
	}
}

func TestParseHashRoundTrip(t *testing.T) {
	h := HashOf(TypeBlob, []byte("x"))
	parsed, err := ParseHash(h.String())
	if err != nil {
		t.Fatalf("ParseHash: %v", err)
	}
	if parsed != h {
		t.Fatal("ParseHash(h.String()) != h")
	}
}

func TestParseHashRejectsBadLength(t *testing.T) {
	if _, err := ParseHash("abc"); err == nil {
		t.Fatal("expected error for short hex string")
	}
}
