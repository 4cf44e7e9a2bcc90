package diag

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/ruscorpora/reposplit/internal/objhash"
)

// ShamapWriter appends one line per collected blob to shamap.txt:
// "<orig_hex> <count_targets> <target_repo> <new_hex_or_none>" (spec.md §6).
// One line is written per (blob, target repo) pair, matching the record
// format's single-target-repo-per-line shape. Safe for concurrent use by
// the transcode worker pool.
type ShamapWriter struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

// NewShamapWriter creates (or truncates) shamap.txt at path.
func NewShamapWriter(path string) (*ShamapWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("diag: create shamap: %w", err)
	}
	return &ShamapWriter{f: f, w: bufio.NewWriter(f)}, nil
}

// WriteLine records one collected blob's outcome for one target repo.
func (s *ShamapWriter) WriteLine(orig objhash.Hash, countTargets int, targetRepo string, newHash *objhash.Hash) error {
	newHex := "none"
	if newHash != nil {
		newHex = newHash.String()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "%s %d %s %s\n", orig.String(), countTargets, targetRepo, newHex)
	return err
}

// Close flushes buffered output and closes the underlying file.
func (s *ShamapWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return fmt.Errorf("diag: flush shamap: %w", err)
	}
	return s.f.Close()
}
