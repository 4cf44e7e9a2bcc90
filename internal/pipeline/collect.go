package pipeline

import (
	"github.com/ruscorpora/reposplit/internal/cache"
	"github.com/ruscorpora/reposplit/internal/objhash"
	"github.com/ruscorpora/reposplit/internal/pathmap"
)

// collectResult carries the (repo, blob) pairs one root tree contributed.
type collectResult struct {
	pairs map[cache.RepoHashKey]struct{}
	err   error
}

// runCollection implements §4.6: for every distinct root tree, walk it
// under the mapping rules and record every (output-repo, blob-hash) pair
// that will need transcoding. Identical (repo, source-subtree) pairs are
// visited once globally via caches.Collected.
func (p *Pipeline) runCollection(roots []objhash.Hash) (map[objhash.Hash]map[string]struct{}, error) {
	pool := newPool(workerCount(8), func(root objhash.Hash) collectResult {
		pairs := make(map[cache.RepoHashKey]struct{})
		err := p.collectTree(root, walkState{}, pairs)
		return collectResult{pairs: pairs, err: err}
	})

	merged := make(map[objhash.Hash]map[string]struct{})
	for _, r := range pool.run(roots) {
		if r.err != nil {
			return nil, r.err
		}
		for key := range r.pairs {
			repos, ok := merged[key.Hash]
			if !ok {
				repos = make(map[string]struct{})
				merged[key.Hash] = repos
			}
			repos[key.Repo] = struct{}{}
		}
	}
	return merged, nil
}

// collectTree recurses one source tree, adding a (repo, blob) pair to out
// for every file reached under an established output repo that the
// transcode stage must process.
func (p *Pipeline) collectTree(hash objhash.Hash, st walkState, out map[cache.RepoHashKey]struct{}) error {
	if p.caches.Collected.MarkSeen(cache.RepoHashKey{Repo: st.repo, Hash: hash}) {
		return nil
	}

	_, payload, err := p.source.Read(hash)
	if err != nil {
		return err
	}
	entries, err := objhash.DecodeTree(payload)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := p.collectEntry(e, st, out); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) collectEntry(e objhash.TreeEntry, st walkState, out map[cache.RepoHashKey]struct{}) error {
	childPath := st.child(e.Name)

	if st.justMount {
		if e.Mode == dirMode {
			return p.collectTree(e.Hash, walkState{repo: st.repo, justMount: true, depth: st.depth + 1, parentPath: childPath}, out)
		}
		return collectLeaf(st.repo, e, out)
	}

	decision := pathmap.Map(p.log, st.depth, e.Name, st.parentPath)
	switch decision.Kind {
	case pathmap.Drop:
		return nil

	case pathmap.Descend:
		if e.Mode != dirMode {
			return nil
		}
		return p.collectTree(e.Hash, walkState{repo: st.repo, depth: st.depth + 1, parentPath: childPath}, out)

	case pathmap.Remap:
		if e.Mode == dirMode {
			return p.collectTree(e.Hash, walkState{repo: decision.Repo, justMount: decision.JustMount, depth: st.depth + 1, parentPath: childPath}, out)
		}
		return collectLeaf(decision.Repo, e, out)

	default:
		return nil
	}
}

// collectLeaf records (repo, blob) if the file will actually be transcoded:
// binaries are emitted with their original hash at rewrite time and excluded
// names are dropped there, so neither enters the transcode stage.
func collectLeaf(repo string, e objhash.TreeEntry, out map[cache.RepoHashKey]struct{}) error {
	if repo == "" {
		return nil
	}
	if pathmap.IsExcludedFromCollection(e.Name) || pathmap.IsBinaryExtension(e.Name) {
		return nil
	}
	out[cache.RepoHashKey{Repo: repo, Hash: e.Hash}] = struct{}{}
	return nil
}
