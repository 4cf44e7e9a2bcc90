// Package splittree implements the per-commit, multi-rooted in-memory
// structure (mt_tree) that the tree rewriter accumulates entries into before
// materializing one persisted tree per output repo.
package splittree

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/ruscorpora/reposplit/internal/objhash"
	"github.com/ruscorpora/reposplit/internal/objstore"
)

const dirMode = "40000"

// Node is a mutable directory record. A node with a hash and no children is
// a leaf reference (file or an unmodified subtree); a node with children and
// no hash is an unmaterialized directory.
type Node struct {
	Mode     string
	Name     string
	Hash     objhash.Hash
	hasHash  bool
	Children map[string]*Node
}

func newDirNode(name string) *Node {
	return &Node{Mode: dirMode, Name: name, Children: make(map[string]*Node)}
}

// Tree is the synthetic multi-rooted mt_tree for a single commit: one
// top-level Node per output repo touched by that commit.
type Tree struct {
	log         *slog.Logger
	onAmbiguity func()
	roots       map[string]*Node
}

// New creates an empty mt_tree for one commit's rewrite. onAmbiguity, if
// non-nil, is called once per MappingAmbiguity diagnostic in addition to
// the log warning (used to drive a persisted counter, e.g.
// internal/diag.Ledger.IncrCollision).
func New(log *slog.Logger, onAmbiguity func()) *Tree {
	return &Tree{log: log, onAmbiguity: onAmbiguity, roots: make(map[string]*Node)}
}

func (t *Tree) diagnoseAmbiguity() {
	if t.onAmbiguity != nil {
		t.onAmbiguity()
	}
}

func (t *Tree) rootFor(repo string) *Node {
	r, ok := t.roots[repo]
	if !ok {
		r = newDirNode(repo)
		t.roots[repo] = r
	}
	return r
}

// AddDir ensures a chain of directories exists under repo at the given
// slash-split path, creating any missing components, and returns the node at
// the end of the chain. It never overwrites an existing node's stored hash.
func (t *Tree) AddDir(repo string, path []string) *Node {
	node := t.rootFor(repo)
	for _, name := range path {
		if name == "" {
			continue
		}
		child, ok := node.Children[name]
		if !ok {
			child = newDirNode(name)
			node.Children[name] = child
		}
		node = child
	}
	return node
}

// Append adds or replaces a leaf entry under dir. A name collision with a
// differing hash is diagnosed (spec.md's MappingAmbiguity) and the first
// inserted hash wins — the new value is dropped, not merged.
func (t *Tree) Append(dir *Node, mode, name string, hash objhash.Hash) {
	existing, ok := dir.Children[name]
	if ok && existing.hasHash {
		if existing.Hash != hash {
			t.log.Warn("splittree: mapping ambiguity, keeping first-inserted hash",
				"name", name, "existing", existing.Hash.String(), "proposed", hash.String())
			t.diagnoseAmbiguity()
		}
		return
	}
	dir.Children[name] = &Node{Mode: mode, Name: name, Hash: hash, hasHash: true}
}

// SetDirHash records an already-persisted directory hash (a just-mounted
// subtree, whether freshly written or taken from tree_cache) as the child
// name of dir, so it doesn't need to be re-walked.
func (t *Tree) SetDirHash(dir *Node, name string, hash objhash.Hash) {
	existing, ok := dir.Children[name]
	if ok && existing.hasHash {
		if existing.Hash != hash {
			t.log.Warn("splittree: mapping ambiguity on cached subtree, keeping first-inserted hash",
				"name", name, "existing", existing.Hash.String(), "proposed", hash.String())
			t.diagnoseAmbiguity()
		}
		return
	}
	dir.Children[name] = &Node{Mode: dirMode, Name: name, Hash: hash, hasHash: true}
}

// SetRootHash attaches an already-materialized hash directly as repo's
// root, bypassing the normal child-accumulation path entirely. Used when an
// entire subtree is mounted verbatim under its own repo (spec.md §4.7's
// "just-mount" submode) and has already been persisted by the caller.
func (t *Tree) SetRootHash(repo string, hash objhash.Hash) {
	root := t.rootFor(repo)
	root.Hash = hash
	root.hasHash = true
}

// Materialize writes every unmaterialized directory bottom-up into the
// output store for its repo, and returns the per-repo root tree hashes. A
// directory with no children after mapping is omitted from its parent
// entirely (no empty directories). stores must contain an entry for every
// repo this Tree touched.
func (t *Tree) Materialize(stores map[string]*objstore.Store) (map[string]objhash.Hash, error) {
	roots := make(map[string]objhash.Hash, len(t.roots))
	for repo, root := range t.roots {
		store, ok := stores[repo]
		if !ok {
			return nil, fmt.Errorf("splittree: no output store for repo %q", repo)
		}
		hash, empty, err := materializeNode(store, root)
		if err != nil {
			return nil, err
		}
		if empty {
			continue
		}
		roots[repo] = hash
	}
	return roots, nil
}

// materializeNode recursively persists node, returning its hash and whether
// it ended up with zero entries (in which case the caller must omit it).
func materializeNode(store *objstore.Store, node *Node) (hash objhash.Hash, empty bool, err error) {
	if node.hasHash && len(node.Children) == 0 {
		return node.Hash, false, nil
	}

	names := make([]string, 0, len(node.Children))
	for name := range node.Children {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]objhash.TreeEntry, 0, len(names))
	for _, name := range names {
		child := node.Children[name]
		var childHash objhash.Hash
		if child.Mode == dirMode && !child.hasHash {
			h, childEmpty, err := materializeNode(store, child)
			if err != nil {
				return hash, false, err
			}
			if childEmpty {
				continue
			}
			childHash = h
		} else {
			childHash = child.Hash
		}
		entries = append(entries, objhash.TreeEntry{Mode: child.Mode, Name: name, Hash: childHash})
	}

	if len(entries) == 0 {
		return hash, true, nil
	}

	encoded, err := objhash.EncodeTree(entries)
	if err != nil {
		return hash, false, err
	}
	h, err := store.Write(objhash.TypeTree, encoded)
	if err != nil {
		return hash, false, err
	}
	return h, false, nil
}
