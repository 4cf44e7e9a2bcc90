package pipeline

import (
	"fmt"
	"strings"

	"github.com/ruscorpora/reposplit/internal/cache"
	"github.com/ruscorpora/reposplit/internal/objhash"
	"github.com/ruscorpora/reposplit/internal/pathmap"
	"github.com/ruscorpora/reposplit/internal/splittree"
)

// rewriteCtx threads a rewrite walk's position before any repo has been
// established for it: its depth and the absolute source path, both needed
// by Map to resolve the next entry. Once Map commits an entry to a repo
// (a Remap), the walk switches entirely to rewriteMounted's verbatim
// subtree copy and never returns to rewriteCtx/Map again (every
// directory-mode Remap mounts; see pathmap.Decision.JustMount).
type rewriteCtx struct {
	depth      int
	parentPath string
}

func (ctx rewriteCtx) childSourcePath(name string) string {
	if ctx.parentPath == "" {
		return name
	}
	return ctx.parentPath + "/" + name
}

// descend extends ctx by one directory level.
func (ctx rewriteCtx) descend(name string) rewriteCtx {
	return rewriteCtx{depth: ctx.depth + 1, parentPath: ctx.childSourcePath(name)}
}

// splitRepoPath turns a "/"-joined repo-relative subpath into AddDir's
// component slice; "" and "/" both mean the repo's own root.
func splitRepoPath(subpath string) []string {
	trimmed := strings.Trim(subpath, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// runTreeRewrite implements §4.7: for every distinct source root tree,
// rewrite it into one new root tree hash per output repo it touches, and
// record the result into caches.RootTrees for the commit rewriter.
func (p *Pipeline) runTreeRewrite(roots []objhash.Hash) error {
	pool := newPool(workerCount(4), func(root objhash.Hash) error {
		tr := splittree.New(p.log, p.onMappingAmbiguity)
		if err := p.rewriteTree(tr, root, rewriteCtx{}); err != nil {
			return fmt.Errorf("tree rewrite root %s: %w", root.String(), err)
		}
		perRepoRoots, err := tr.Materialize(p.outputs)
		if err != nil {
			return fmt.Errorf("materialize root %s: %w", root.String(), err)
		}
		for repo, newRoot := range perRepoRoots {
			p.caches.RootTrees.SetIfAbsent(cache.RepoHashKey{Repo: repo, Hash: root}, newRoot)
		}
		return nil
	})

	for _, err := range pool.run(roots) {
		if err != nil {
			return err
		}
	}
	return nil
}

// rewriteTree recurses one source tree, building mt_tree contributions as
// it maps every entry.
func (p *Pipeline) rewriteTree(tr *splittree.Tree, hash objhash.Hash, ctx rewriteCtx) error {
	_, payload, err := p.source.Read(hash)
	if err != nil {
		return err
	}
	entries, err := objhash.DecodeTree(payload)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := p.rewriteEntry(tr, e, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) rewriteEntry(tr *splittree.Tree, e objhash.TreeEntry, ctx rewriteCtx) error {
	decision := pathmap.Map(p.log, ctx.depth, e.Name, ctx.parentPath)

	switch decision.Kind {
	case pathmap.Drop:
		return nil

	case pathmap.Descend:
		if e.Mode != dirMode {
			return nil
		}
		return p.rewriteTree(tr, e.Hash, ctx.descend(e.Name))

	case pathmap.Remap:
		if e.Mode == dirMode {
			// Every directory-mode Remap mounts: once a subtree is
			// attributed to a repo and subpath, it is mirrored verbatim
			// rather than consulting Map again (see pathmap.Decision.JustMount).
			return p.rewriteJustMount(tr, decision, e)
		}
		return p.rewriteRenamedLeaf(tr, decision, e)

	default:
		return nil
	}
}

// rewriteRenamedLeaf places a file the rename table relocates, at the
// explicit repo-relative path and name the table gives it — which may lie
// outside the entry's natural nested position.
func (p *Pipeline) rewriteRenamedLeaf(tr *splittree.Tree, decision pathmap.Decision, e objhash.TreeEntry) error {
	hash, drop := p.resolveLeafContent(decision.Repo, e)
	if drop {
		return nil
	}
	node := tr.AddDir(decision.Repo, splitRepoPath(decision.Subpath))
	tr.Append(node, e.Mode, displayName(e.Name, decision.NewName), hash)
	return nil
}

// rewriteJustMount materializes an entire subtree verbatim (spec.md §4.7's
// "just-mount" submode: no further Map calls, no corpus rename rules) and
// attaches it at decision.Subpath within decision.Repo — the repo's own root
// when Subpath is "" or "/", or nested under the path's parent directories
// otherwise, with the path's last component used as the mounted name.
func (p *Pipeline) rewriteJustMount(tr *splittree.Tree, decision pathmap.Decision, e objhash.TreeEntry) error {
	hash, empty, err := p.rewriteMounted(decision.Repo, e.Hash)
	if err != nil {
		return err
	}
	if empty {
		return nil
	}
	parts := splitRepoPath(decision.Subpath)
	if len(parts) == 0 {
		tr.SetRootHash(decision.Repo, hash)
		return nil
	}
	node := tr.AddDir(decision.Repo, parts[:len(parts)-1])
	tr.SetDirHash(node, parts[len(parts)-1], hash)
	return nil
}

// rewriteMounted recursively copies a source subtree into repo's store
// unchanged in structure (only file content may be transcoded), caching the
// result in tree_cache keyed by (repo, source hash). This is the one case
// where caching a whole subtree's translation is provably safe: under
// just-mount, no rename rule can ever redirect a file outside the subtree
// being walked, since Map is never consulted.
func (p *Pipeline) rewriteMounted(repo string, hash objhash.Hash) (objhash.Hash, bool, error) {
	if cached, ok := p.caches.TreeCache.Get(cache.RepoHashKey{Repo: repo, Hash: hash}); ok {
		return cached, false, nil
	}

	_, payload, err := p.source.Read(hash)
	if err != nil {
		return objhash.Hash{}, false, err
	}
	entries, err := objhash.DecodeTree(payload)
	if err != nil {
		return objhash.Hash{}, false, err
	}

	var out []objhash.TreeEntry
	for _, e := range entries {
		if e.Mode == dirMode {
			childHash, empty, err := p.rewriteMounted(repo, e.Hash)
			if err != nil {
				return objhash.Hash{}, false, err
			}
			if empty {
				continue
			}
			out = append(out, objhash.TreeEntry{Mode: dirMode, Name: e.Name, Hash: childHash})
			continue
		}
		leafHash, drop := p.resolveLeafContent(repo, e)
		if drop {
			continue
		}
		out = append(out, objhash.TreeEntry{Mode: e.Mode, Name: displayName(e.Name, ""), Hash: leafHash})
	}

	if len(out) == 0 {
		return objhash.Hash{}, true, nil
	}

	encoded, err := objhash.EncodeTree(out)
	if err != nil {
		return objhash.Hash{}, false, err
	}
	store, ok := p.outputs[repo]
	if !ok {
		return objhash.Hash{}, false, fmt.Errorf("pipeline: no output store for repo %q", repo)
	}
	newHash, err := store.Write(objhash.TypeTree, encoded)
	if err != nil {
		return objhash.Hash{}, false, err
	}
	p.caches.TreeCache.SetIfAbsent(cache.RepoHashKey{Repo: repo, Hash: hash}, newHash)
	return newHash, false, nil
}

// resolveLeafContent decides the hash a file entry is emitted with: dropped
// entries signal drop=true; binaries pass through with their original
// hash; otherwise the transcoded hash is used if the transcode stage
// already produced one, falling back to the original hash with a
// diagnostic (spec.md §4.7 step 2).
func (p *Pipeline) resolveLeafContent(repo string, e objhash.TreeEntry) (hash objhash.Hash, drop bool) {
	if e.Name == ".gitignore" {
		return objhash.Hash{}, true
	}
	if _, dropExt := pathmap.RewriteExtension(e.Name); dropExt {
		return objhash.Hash{}, true
	}
	if pathmap.IsBinaryExtension(e.Name) {
		return e.Hash, false
	}
	if translated, ok := p.caches.FileCache.Get(cache.RepoHashKey{Repo: repo, Hash: e.Hash}); ok {
		return translated, false
	}
	p.log.Warn("pipeline: no cached transcoded blob, emitting source blob unchanged",
		"repo", repo, "name", e.Name, "hash", e.Hash.String())
	return e.Hash, false
}

// displayName applies an explicit rename-table override if present,
// otherwise the extension-rewrite rules independent of the mapping table.
func displayName(original, override string) string {
	if override != "" {
		return override
	}
	newName, _ := pathmap.RewriteExtension(original)
	return newName
}
