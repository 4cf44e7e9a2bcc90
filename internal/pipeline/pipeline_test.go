package pipeline

import (
	"io"
	"log/slog"
	"testing"

	"github.com/ruscorpora/reposplit/internal/cache"
	"github.com/ruscorpora/reposplit/internal/commitstream"
	"github.com/ruscorpora/reposplit/internal/objhash"
	"github.com/ruscorpora/reposplit/internal/objstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeBlob(t *testing.T, store *objstore.Store, content string) objhash.Hash {
	t.Helper()
	h, err := store.Write(objhash.TypeBlob, []byte(content))
	if err != nil {
		t.Fatalf("write blob: %v", err)
	}
	return h
}

func writeTree(t *testing.T, store *objstore.Store, entries []objhash.TreeEntry) objhash.Hash {
	t.Helper()
	payload, err := objhash.EncodeTree(entries)
	if err != nil {
		t.Fatalf("encode tree: %v", err)
	}
	h, err := store.Write(objhash.TypeTree, payload)
	if err != nil {
		t.Fatalf("write tree: %v", err)
	}
	return h
}

func writeCommit(t *testing.T, store *objstore.Store, tree objhash.Hash, parent *objhash.Hash, message string) objhash.Hash {
	t.Helper()
	payload := "tree " + tree.String() + "\n"
	if parent != nil {
		payload += "parent " + parent.String() + "\n"
	}
	payload += "author test <test@example.com> 0 +0000\ncommitter test <test@example.com> 0 +0000\n\n" + message + "\n"
	h, err := store.Write(objhash.TypeCommit, []byte(payload))
	if err != nil {
		t.Fatalf("write commit: %v", err)
	}
	return h
}

// buildRoot lays out ruscorpora/trunk/{corpora/standard/{pre1950/<files>,
// standard_1.csv?}, tables/<files>} and returns the root tree hash.
// pre1950Files holds the files that belong under corpora/standard/pre1950
// (one of the depth-4 children of "standard" the table recognizes, along
// with post1950 and the rename-table csv); renameEntry, if non-nil, is placed directly at
// corpora/standard/standard_1.csv.
func buildRoot(t *testing.T, store *objstore.Store, pre1950Files []objhash.TreeEntry, renameEntry *objhash.TreeEntry, tablesFiles []objhash.TreeEntry) objhash.Hash {
	t.Helper()
	pre1950Tree := writeTree(t, store, pre1950Files)
	standardEntries := []objhash.TreeEntry{
		{Mode: dirMode, Name: "pre1950", Hash: pre1950Tree},
	}
	if renameEntry != nil {
		standardEntries = append(standardEntries, *renameEntry)
	}
	standardTree := writeTree(t, store, standardEntries)
	corporaTree := writeTree(t, store, []objhash.TreeEntry{
		{Mode: dirMode, Name: "standard", Hash: standardTree},
	})
	tablesTree := writeTree(t, store, tablesFiles)
	trunkTree := writeTree(t, store, []objhash.TreeEntry{
		{Mode: dirMode, Name: "corpora", Hash: corporaTree},
		{Mode: dirMode, Name: "tables", Hash: tablesTree},
	})
	topTree := writeTree(t, store, []objhash.TreeEntry{
		{Mode: dirMode, Name: "trunk", Hash: trunkTree},
	})
	return writeTree(t, store, []objhash.TreeEntry{
		{Mode: dirMode, Name: "ruscorpora", Hash: topTree},
	})
}

func TestPipelineRunSplitsIntoMainAndTables(t *testing.T) {
	log := testLogger()

	sourceStore, err := objstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open source store: %v", err)
	}

	blob1 := writeBlob(t, sourceStore, "hello corpus text")
	tablesBlob1 := writeBlob(t, sourceStore, "a,b,c\n")

	root1 := buildRoot(t, sourceStore,
		[]objhash.TreeEntry{{Mode: "100644", Name: "file1.txt", Hash: blob1}},
		nil,
		[]objhash.TreeEntry{{Mode: "100644", Name: "data.csv", Hash: tablesBlob1}},
	)
	commit1 := writeCommit(t, sourceStore, root1, nil, "first")

	blob2 := writeBlob(t, sourceStore, "another corpus text")
	renamedBlob := writeBlob(t, sourceStore, "x,y,z\n")
	tablesBlob2 := writeBlob(t, sourceStore, "a,b,c,d\n")

	root2 := buildRoot(t, sourceStore,
		[]objhash.TreeEntry{
			{Mode: "100644", Name: "file1.txt", Hash: blob1},
			{Mode: "100644", Name: "file2.txt", Hash: blob2},
		},
		&objhash.TreeEntry{Mode: "100644", Name: "standard_1.csv", Hash: renamedBlob},
		[]objhash.TreeEntry{{Mode: "100644", Name: "data.csv", Hash: tablesBlob2}},
	)
	commitHash1 := commit1
	commit2 := writeCommit(t, sourceStore, root2, &commitHash1, "second")

	entries := []commitstream.Entry{
		{Commit: commit1, Tree: root1},
		{Commit: commit2, Tree: root2},
	}

	outputs := map[string]*objstore.Store{}
	for _, repo := range []string{"main", "tables"} {
		store, err := objstore.Open(t.TempDir())
		if err != nil {
			t.Fatalf("open output store %s: %v", repo, err)
		}
		outputs[repo] = store
	}

	caches := cache.New(log, nil)
	p := New(log, nil, sourceStore, outputs, caches, nil, nil)

	result, err := p.Run(entries)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	mainHead, ok := result.FinalCommits["main"]
	if !ok {
		t.Fatal("expected a final commit for repo main")
	}
	tablesHead, ok := result.FinalCommits["tables"]
	if !ok {
		t.Fatal("expected a final commit for repo tables")
	}

	_, payload, err := outputs["main"].Read(mainHead)
	if err != nil {
		t.Fatalf("read main head commit: %v", err)
	}
	hdr, err := objhash.DecodeCommitHeader(payload)
	if err != nil {
		t.Fatalf("decode main head commit: %v", err)
	}
	_, treePayload, err := outputs["main"].Read(hdr.TreeHash)
	if err != nil {
		t.Fatalf("read main root tree: %v", err)
	}
	rootEntries, err := objhash.DecodeTree(treePayload)
	if err != nil {
		t.Fatalf("decode main root tree: %v", err)
	}
	if len(rootEntries) != 1 || rootEntries[0].Name != "standard" {
		t.Fatalf("expected main repo root to contain only 'standard', got %+v", rootEntries)
	}
	_, standardPayload, err := outputs["main"].Read(rootEntries[0].Hash)
	if err != nil {
		t.Fatalf("read standard dir: %v", err)
	}
	standardEntries, err := objhash.DecodeTree(standardPayload)
	if err != nil {
		t.Fatalf("decode standard dir: %v", err)
	}
	byName := map[string]objhash.TreeEntry{}
	for _, e := range standardEntries {
		byName[e.Name] = e
	}
	if len(standardEntries) != 2 {
		t.Fatalf("expected standard dir to contain only 'tables' and 'texts', got %+v", standardEntries)
	}

	textsDir, ok := byName["texts"]
	if !ok || textsDir.Mode != dirMode {
		t.Fatalf("expected a 'texts' subdirectory under standard, got %+v", standardEntries)
	}
	_, textsPayload, err := outputs["main"].Read(textsDir.Hash)
	if err != nil {
		t.Fatalf("read texts dir: %v", err)
	}
	textsEntries, err := objhash.DecodeTree(textsPayload)
	if err != nil {
		t.Fatalf("decode texts dir: %v", err)
	}
	if len(textsEntries) != 1 || textsEntries[0].Name != "pre1950" || textsEntries[0].Mode != dirMode {
		t.Fatalf("expected a single 'pre1950' subdirectory under standard/texts, got %+v", textsEntries)
	}
	_, pre1950Payload, err := outputs["main"].Read(textsEntries[0].Hash)
	if err != nil {
		t.Fatalf("read pre1950 dir: %v", err)
	}
	pre1950Entries, err := objhash.DecodeTree(pre1950Payload)
	if err != nil {
		t.Fatalf("decode pre1950 dir: %v", err)
	}
	pre1950Names := map[string]bool{}
	for _, e := range pre1950Entries {
		pre1950Names[e.Name] = true
	}
	if !pre1950Names["file1.txt"] || !pre1950Names["file2.txt"] {
		t.Fatalf("expected file1.txt and file2.txt under standard/texts/pre1950, got %+v", pre1950Entries)
	}

	renamedDir, ok := byName["tables"]
	if !ok || renamedDir.Mode != dirMode {
		t.Fatalf("expected a 'tables' subdirectory under standard holding the renamed file, got %+v", standardEntries)
	}
	_, renamedDirPayload, err := outputs["main"].Read(renamedDir.Hash)
	if err != nil {
		t.Fatalf("read renamed tables dir: %v", err)
	}
	renamedDirEntries, err := objhash.DecodeTree(renamedDirPayload)
	if err != nil {
		t.Fatalf("decode renamed tables dir: %v", err)
	}
	if len(renamedDirEntries) != 1 || renamedDirEntries[0].Name != "standard.csv" {
		t.Fatalf("expected standard_1.csv renamed to standard.csv under standard/tables, got %+v", renamedDirEntries)
	}

	_, tablesPayload, err := outputs["tables"].Read(tablesHead)
	if err != nil {
		t.Fatalf("read tables head commit: %v", err)
	}
	tablesHdr, err := objhash.DecodeCommitHeader(tablesPayload)
	if err != nil {
		t.Fatalf("decode tables head commit: %v", err)
	}
	_, tablesTreePayload, err := outputs["tables"].Read(tablesHdr.TreeHash)
	if err != nil {
		t.Fatalf("read tables root tree: %v", err)
	}
	tablesEntries, err := objhash.DecodeTree(tablesTreePayload)
	if err != nil {
		t.Fatalf("decode tables root tree: %v", err)
	}
	if len(tablesEntries) != 1 || tablesEntries[0].Name != "data.csv" {
		t.Fatalf("expected tables repo root to contain only 'data.csv' (remapped to the repo root, no 'tables/' prefix), got %+v", tablesEntries)
	}
}
