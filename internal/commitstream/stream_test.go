package commitstream

import (
	"errors"
	"strings"
	"testing"

	"github.com/ruscorpora/reposplit/internal/objhash"
)

func TestParseReversesToChronologicalOrder(t *testing.T) {
	c1 := objhash.HashOf(objhash.TypeCommit, []byte("c1"))
	t1 := objhash.HashOf(objhash.TypeTree, []byte("t1"))
	c2 := objhash.HashOf(objhash.TypeCommit, []byte("c2"))
	t2 := objhash.HashOf(objhash.TypeTree, []byte("t2"))

	// Newest first in the input stream: c2 then c1.
	input := "commit " + c2.String() + "\n" + t2.String() + "\n" +
		"commit " + c1.String() + "\n" + t1.String() + "\n"

	entries, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Commit != c1 || entries[1].Commit != c2 {
		t.Fatalf("expected oldest-first order, got %+v", entries)
	}
}

func TestParseRejectsCountMismatch(t *testing.T) {
	c1 := objhash.HashOf(objhash.TypeCommit, []byte("c1"))
	input := "commit " + c1.String() + "\n"
	_, err := Parse(strings.NewReader(input))
	if !errors.Is(err, ErrStructuralMismatch) {
		t.Fatalf("got %v, want ErrStructuralMismatch", err)
	}
}

func TestTruncateKeepsOldestFirst(t *testing.T) {
	entries := []Entry{{Commit: objhash.Hash{1}}, {Commit: objhash.Hash{2}}, {Commit: objhash.Hash{3}}}
	got := Truncate(entries, 2)
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Commit != (objhash.Hash{1}) || got[1].Commit != (objhash.Hash{2}) {
		t.Fatalf("expected the two oldest entries, got %+v", got)
	}
}

func TestTruncateUnboundedWhenZero(t *testing.T) {
	entries := []Entry{{}, {}, {}}
	got := Truncate(entries, 0)
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3 (unbounded)", len(got))
	}
}
