// Package commitstream parses the external newline-delimited record stream
// of "commit <hex40>" lines each followed by a "<hex40>" root-tree line,
// describing a single linear chain of commits in reverse-chronological
// order (spec.md §6).
package commitstream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ruscorpora/reposplit/internal/objhash"
)

// ErrStructuralMismatch is returned when the commit-line and tree-line
// counts disagree, or a record doesn't follow the commit/tree pairing.
var ErrStructuralMismatch = errors.New("commitstream: structural assertion failed")

// Entry pairs one source commit with its root tree hash, in original
// (not reversed) order — i.e. oldest commit first.
type Entry struct {
	Commit objhash.Hash
	Tree   objhash.Hash
}

// Parse reads the record stream and returns entries in their original
// chronological order. The input stream itself is documented as reverse
// chronological (newest first); Parse reverses it once so downstream
// consumers (the commit rewriter) can walk oldest-to-newest directly.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var commits []objhash.Hash
	var trees []objhash.Hash

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "commit "); ok {
			h, err := objhash.ParseHash(strings.TrimSpace(rest))
			if err != nil {
				return nil, fmt.Errorf("commitstream: bad commit line %q: %w", line, err)
			}
			commits = append(commits, h)
			continue
		}
		h, err := objhash.ParseHash(line)
		if err != nil {
			return nil, fmt.Errorf("commitstream: bad tree line %q: %w", line, err)
		}
		trees = append(trees, h)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("commitstream: read: %w", err)
	}

	if len(commits) != len(trees) {
		return nil, fmt.Errorf("%w: %d commit lines, %d tree lines", ErrStructuralMismatch, len(commits), len(trees))
	}

	entries := make([]Entry, len(commits))
	for i := range commits {
		// Reverse: input is newest-first, callers want oldest-first.
		j := len(commits) - 1 - i
		entries[i] = Entry{Commit: commits[j], Tree: trees[j]}
	}
	return entries, nil
}

// Truncate applies the max_commits configuration option (spec.md §6),
// keeping the oldest maxCommits entries. maxCommits <= 0 means unbounded.
func Truncate(entries []Entry, maxCommits int) []Entry {
	if maxCommits <= 0 || len(entries) <= maxCommits {
		return entries
	}
	return entries[:maxCommits]
}
