// Package pipeline is the staged orchestration of the four passes spec.md
// §4.6-§4.8 and §5 describe: blob collection, transcoding, tree rewriting,
// and serial commit rewriting, run with a hard barrier between each stage.
// The worker-pool shape is grounded on the teacher's
// internal/pack.CompressionPool and internal/converter's concurrent
// converter: a bounded jobs channel plus sync.WaitGroup, not an errgroup.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/ruscorpora/reposplit/internal/cache"
	"github.com/ruscorpora/reposplit/internal/commitstream"
	"github.com/ruscorpora/reposplit/internal/config"
	"github.com/ruscorpora/reposplit/internal/diag"
	"github.com/ruscorpora/reposplit/internal/objhash"
	"github.com/ruscorpora/reposplit/internal/objstore"
)

// dirMode is the mode token for tree (directory) entries, duplicated
// locally the same way objhash and splittree each keep their own copy
// rather than exporting a shared constant.
const dirMode = "40000"

// Pipeline bundles the stores, caches, and diagnostics sinks every stage
// shares over the lifetime of one run.
type Pipeline struct {
	log     *slog.Logger
	cfg     *config.Config
	source  *objstore.Store
	outputs map[string]*objstore.Store
	caches  *cache.Caches
	ledger  *diag.Ledger
	shamap  *diag.ShamapWriter
}

// New constructs a Pipeline. outputs must already contain one Store per
// repo pathmap.KnownRepos() can ever produce.
func New(log *slog.Logger, cfg *config.Config, source *objstore.Store, outputs map[string]*objstore.Store, caches *cache.Caches, ledger *diag.Ledger, shamap *diag.ShamapWriter) *Pipeline {
	return &Pipeline{
		log:     log,
		cfg:     cfg,
		source:  source,
		outputs: outputs,
		caches:  caches,
		ledger:  ledger,
		shamap:  shamap,
	}
}

// onMappingAmbiguity records one MappingAmbiguity diagnostic (spec.md §7)
// into the run's ledger, if one is attached.
func (p *Pipeline) onMappingAmbiguity() {
	if p.ledger == nil {
		return
	}
	if _, err := p.ledger.IncrCollision("MappingAmbiguity"); err != nil {
		p.log.Warn("diag: failed to record mapping ambiguity", "error", err)
	}
}

// Result summarizes one run's outcome.
type Result struct {
	CommitsProcessed int
	BlobsCollected   int
	FinalCommits     map[string]objhash.Hash // repo -> last emitted commit hash
}

// Run drives the four-stage pipeline over entries (already in oldest-first
// order; apply commitstream.Truncate before calling if max_commits applies).
func (p *Pipeline) Run(entries []commitstream.Entry) (Result, error) {
	var result Result
	result.CommitsProcessed = len(entries)

	roots := uniqueRoots(entries)

	p.log.Info("pipeline: starting collection", "commits", len(entries), "distinct_roots", len(roots))
	collected, err := p.runCollection(roots)
	if err != nil {
		return result, fmt.Errorf("pipeline: collection: %w", err)
	}
	result.BlobsCollected = len(collected)

	p.log.Info("pipeline: starting transcode", "blobs", len(collected))
	if err := p.runTranscode(collected); err != nil {
		return result, fmt.Errorf("pipeline: transcode: %w", err)
	}

	p.log.Info("pipeline: starting tree rewrite")
	if err := p.runTreeRewrite(roots); err != nil {
		return result, fmt.Errorf("pipeline: tree rewrite: %w", err)
	}

	p.log.Info("pipeline: starting commit rewrite")
	finalCommits, err := p.runCommitRewrite(entries)
	if err != nil {
		return result, fmt.Errorf("pipeline: commit rewrite: %w", err)
	}
	result.FinalCommits = finalCommits

	if p.ledger != nil {
		summary := fmt.Sprintf("commits=%d blobs=%d repos=%d", result.CommitsProcessed, result.BlobsCollected, len(finalCommits))
		if err := p.ledger.RecordRunSummary(lastRunKey(entries), summary); err != nil {
			return result, fmt.Errorf("pipeline: record run summary: %w", err)
		}
	}

	return result, nil
}

// uniqueRoots returns the distinct source root-tree hashes across entries,
// in first-occurrence order.
func uniqueRoots(entries []commitstream.Entry) []objhash.Hash {
	seen := make(map[objhash.Hash]struct{}, len(entries))
	roots := make([]objhash.Hash, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.Tree]; ok {
			continue
		}
		seen[e.Tree] = struct{}{}
		roots = append(roots, e.Tree)
	}
	return roots
}

// lastRunKey identifies a run for the diagnostics ledger by its last commit.
func lastRunKey(entries []commitstream.Entry) string {
	if len(entries) == 0 {
		return "empty"
	}
	return entries[len(entries)-1].Commit.String()
}

// walkState threads a tree-walk's position: the output repo attributed so
// far (empty until the first Remap fires), whether Map has stopped being
// consulted (the "just-mount" submode), and the absolute source path used
// by Map's depth>=4 corpus resolution.
type walkState struct {
	repo       string
	justMount  bool
	depth      int
	parentPath string
}

func (st walkState) child(name string) string {
	if st.parentPath == "" {
		return name
	}
	return st.parentPath + "/" + name
}
