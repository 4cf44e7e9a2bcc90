// Command reposplit rewrites a monolithic, content-addressed version
// control repository's linear commit history into several smaller output
// repositories, normalizing text encodings along the way (spec.md §1, §6).
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ruscorpora/reposplit/internal/cache"
	"github.com/ruscorpora/reposplit/internal/colors"
	"github.com/ruscorpora/reposplit/internal/commitstream"
	"github.com/ruscorpora/reposplit/internal/config"
	"github.com/ruscorpora/reposplit/internal/diag"
	"github.com/ruscorpora/reposplit/internal/objstore"
	"github.com/ruscorpora/reposplit/internal/pathmap"
	"github.com/ruscorpora/reposplit/internal/pipeline"
)

const reposplitVersion = "0.1.0"

var (
	version       bool
	inputPath     string
	sourceRoot    string
	outputRoot    string
	maxCommits    int
	skipStaging   bool
	stagingRoot   string
	noColor       bool
)

var rootCmd = &cobra.Command{
	Use:   "reposplit",
	Short: "reposplit splits a monolithic corpus repository into several output repositories",
	Long: "reposplit reads a linear commit-history record stream, rewrites every commit's\n" +
		"tree under spec.md's path-mapping rules, normalizes text file encodings to\n" +
		"UTF-8, and emits one new content-addressed repository per output repo.",
	Run: func(cmd *cobra.Command, args []string) {
		if version {
			fmt.Printf("reposplit version %s\n", reposplitVersion)
			os.Exit(0)
		}
		if err := runSplit(cmd); err != nil {
			fmt.Fprintln(os.Stderr, colors.ErrorText(err.Error()))
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().BoolVar(&version, "version", false, "print the reposplit version and exit")
	rootCmd.Flags().StringVar(&inputPath, "input", "", "path to the commit-stream record file (defaults to stdin)")
	rootCmd.Flags().StringVar(&sourceRoot, "source", "", "source loose-object store root (overrides config/env)")
	rootCmd.Flags().StringVar(&outputRoot, "output", "", "output object store root, one subdirectory per repo (overrides config/env)")
	rootCmd.Flags().IntVar(&maxCommits, "max-commits", 0, "process only the oldest N commits (0 means unbounded)")
	rootCmd.Flags().BoolVar(&skipStaging, "skip-binary-staging", true, "binary staging switch; binaries pass through unchanged and no staging copy is written either way")
	rootCmd.Flags().StringVar(&stagingRoot, "binary-staging-root", "", "binary staging directory; required when --skip-binary-staging=false, but nothing is written to it")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI color in the summary output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runSplit wires configuration, object stores, caches, and diagnostics
// together and drives one end-to-end pipeline run.
func runSplit(cmd *cobra.Command) error {
	if noColor {
		colors.SetColorEnabled(false)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlagOverrides(cfg, cmd)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	input := os.Stdin
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("open input %s: %w", inputPath, err)
		}
		defer f.Close()
		input = f
	}
	entries, err := commitstream.Parse(input)
	if err != nil {
		return fmt.Errorf("parse commit stream: %w", err)
	}
	entries = commitstream.Truncate(entries, cfg.MaxCommits)
	log.Info("reposplit: parsed commit stream", "commits", len(entries))

	sourceStore, err := objstore.Open(cfg.SourceObjectRoot)
	if err != nil {
		return fmt.Errorf("open source store: %w", err)
	}

	outputs := make(map[string]*objstore.Store)
	for _, repo := range pathmap.KnownRepos() {
		store, err := objstore.Open(filepath.Join(cfg.OutputObjectRoot, repo))
		if err != nil {
			return fmt.Errorf("open output store for repo %q: %w", repo, err)
		}
		outputs[repo] = store
	}

	ledger, err := diag.Open(filepath.Join(cfg.OutputObjectRoot, "reposplit-diagnostics.db"))
	if err != nil {
		return fmt.Errorf("open diagnostics ledger: %w", err)
	}
	defer ledger.Close()

	shamap, err := diag.NewShamapWriter(filepath.Join(cfg.OutputObjectRoot, "shamap.txt"))
	if err != nil {
		return fmt.Errorf("open shamap writer: %w", err)
	}
	defer shamap.Close()

	caches := cache.New(log, func(cache.RepoHashKey) {
		if _, err := ledger.IncrCollision("CacheCollision"); err != nil {
			log.Warn("diag: failed to record cache collision", "error", err)
		}
	})

	p := pipeline.New(log, cfg, sourceStore, outputs, caches, ledger, shamap)
	result, err := p.Run(entries)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	fmt.Println(colors.SectionHeader("reposplit summary"))
	fmt.Printf("commits processed: %d\n", result.CommitsProcessed)
	fmt.Printf("distinct blobs collected: %d\n", result.BlobsCollected)
	for repo, head := range result.FinalCommits {
		fmt.Printf("  %s -> %s\n", repo, head.String())
	}
	fmt.Println(colors.SuccessText("done"))
	return nil
}

// applyFlagOverrides layers explicit CLI flags on top of the config/env
// result, the same precedence the teacher's config command documents
// (flags beat environment, environment beats file defaults).
func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command) {
	if cmd.Flags().Changed("source") {
		cfg.SourceObjectRoot = sourceRoot
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputObjectRoot = outputRoot
	}
	if cmd.Flags().Changed("max-commits") {
		cfg.MaxCommits = maxCommits
	}
	if cmd.Flags().Changed("skip-binary-staging") {
		cfg.SkipBinaryStaging = skipStaging
	}
	if cmd.Flags().Changed("binary-staging-root") {
		cfg.BinaryStagingRoot = stagingRoot
	}
}
