package pipeline

import (
	"bytes"
	"fmt"

	"github.com/ruscorpora/reposplit/internal/cache"
	"github.com/ruscorpora/reposplit/internal/commitstream"
	"github.com/ruscorpora/reposplit/internal/objhash"
)

// runCommitRewrite implements §4.8: walk the linear commit chain oldest
// first, per output repo, translating each source commit into a new commit
// whose tree is the already-materialized per-repo root and whose parent is
// that repo's previous translated commit. A commit whose root didn't
// change for a repo (no blobs under it touched that repo, or the rewrite
// produced the same tree as its predecessor) is squashed: no new commit is
// emitted and the repo's head stays put.
func (p *Pipeline) runCommitRewrite(entries []commitstream.Entry) (map[string]objhash.Hash, error) {
	heads := make(map[string]objhash.Hash)
	lastTree := make(map[string]objhash.Hash)

	for _, entry := range entries {
		_, payload, err := p.source.Read(entry.Commit)
		if err != nil {
			return nil, fmt.Errorf("commit rewrite: read source commit %s: %w", entry.Commit.String(), err)
		}
		hdr, err := objhash.DecodeCommitHeader(payload)
		if err != nil {
			return nil, fmt.Errorf("commit rewrite: decode %s: %w", entry.Commit.String(), err)
		}

		for repo, store := range p.outputs {
			newTree, ok := p.caches.RootTrees.Get(cache.RepoHashKey{Repo: repo, Hash: entry.Tree})
			if !ok {
				continue
			}
			if prev, seen := lastTree[repo]; seen && prev == newTree {
				continue
			}
			lastTree[repo] = newTree

			newPayload := buildCommitPayload(newTree, heads[repo], hdr)
			newHash, err := store.Write(objhash.TypeCommit, newPayload)
			if err != nil {
				return nil, fmt.Errorf("commit rewrite: write commit for repo %q: %w", repo, err)
			}
			heads[repo] = newHash
		}
	}

	return heads, nil
}

// buildCommitPayload assembles a new commit payload: a tree line for
// newTree, a parent line for the repo's previous head if one exists yet,
// and the source commit's author/committer/message block copied verbatim.
func buildCommitPayload(newTree, parent objhash.Hash, hdr objhash.CommitHeader) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", newTree.String())
	if !parent.IsZero() {
		fmt.Fprintf(&buf, "parent %s\n", parent.String())
	}
	buf.Write(hdr.Rest)
	return buf.Bytes()
}
