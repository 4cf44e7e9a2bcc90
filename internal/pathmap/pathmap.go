// Package pathmap is the path-mapping engine: a pure, deterministic function
// from (depth, entry name, parent path) to a mapping decision, compiled as a
// declarative decision table rather than a cascade of conditionals.
package pathmap

import (
	"log/slog"
	"regexp"
	"strings"
)

// Kind is the closed set of mapping decisions.
type Kind int

const (
	Descend Kind = iota
	Drop
	Remap
)

func (k Kind) String() string {
	switch k {
	case Descend:
		return "Descend"
	case Drop:
		return "Drop"
	case Remap:
		return "Remap"
	default:
		return "Unknown"
	}
}

// Decision is the result of Map for one tree entry.
type Decision struct {
	Kind    Kind
	Repo    string // set for Remap
	Subpath string // set for Remap: slash-joined path under Repo
	NewName string // set for Remap when the leaf is renamed; empty otherwise

	// JustMount is set on every Remap: once a directory is attributed to a
	// repo and subpath, everything beneath it is mirrored verbatim (only
	// binary passthrough, the kill-extension list, and the .xhtml/.xhtml3
	// rewrites still apply) rather than consulting Map again. A directory
	// whose target repo isn't yet fixed (an intermediate container still
	// being sorted into place) is a Descend, not a Remap with an empty
	// subpath.
	JustMount bool
}

// topLevelDir is the only depth-0 directory name the engine descends into.
const topLevelDir = "ruscorpora"

// depth1 branch names.
const (
	branchTrunk    = "trunk"
	branchBranches = "branches"
	branchTags     = "tags"
)

// depth2Drop is the closed set of trunk-level names that are intentionally
// excluded from every output repo.
var depth2Drop = map[string]struct{}{
	"www":                {},
	"saas":               {},
	"conf":               {},
	"db":                 {},
	"hooks":              {},
	"locks":              {},
	"ruscorpora_suggest": {},
	"makeup":             {},
	"tagged":             {},
	"README.txt":         {},
	"format":             {},
}

func remap(repo, subpath, newName string) Decision {
	return Decision{Kind: Remap, Repo: repo, Subpath: subpath, NewName: newName, JustMount: true}
}

func descend() Decision { return Decision{Kind: Descend} }
func drop() Decision     { return Decision{Kind: Drop} }

// Map is the pure decision function. log receives diagnostics for
// unrecognized/unprocessed entries (spec.md §7 CacheCollision/MappingAmbiguity
// are handled elsewhere; here we log fall-through warnings).
func Map(log *slog.Logger, depth int, name, parentPath string) Decision {
	switch depth {
	case 0:
		if name == topLevelDir {
			return descend()
		}
		log.Warn("pathmap: unrecognized depth-0 entry, dropping", "name", name)
		return drop()

	case 1:
		switch name {
		case branchTrunk:
			return descend()
		case branchBranches, branchTags:
			return drop()
		default:
			log.Warn("pathmap: unrecognized depth-1 entry, dropping", "name", name, "parent", parentPath)
			return drop()
		}

	case 2:
		return mapDepth2(log, name, parentPath)

	case 3:
		return mapDepth3(log, name, parentPath)

	case 4:
		return mapDepth4(log, name, parentPath)

	case 5:
		return mapDepth5(log, name, parentPath)

	case 6:
		return mapDepth6(log, name, parentPath)

	default:
		log.Warn("pathmap: entry past the mapping table's reach, dropping", "depth", depth, "name", name, "parent", parentPath)
		return drop()
	}
}

// mapDepth2 handles ruscorpora/trunk's direct children. accent is the only
// one with an immediate, non-empty subpath (so it mounts right here);
// spoken/tables/research/standard/source/texts all defer their repo choice
// to a deeper level, so they Descend rather than Remap.
func mapDepth2(log *slog.Logger, name, parentPath string) Decision {
	switch {
	case name == "corpora":
		return descend()
	case name == "accent":
		return remap("accent", "accent_main/texts", "")
	case name == "spoken" || name == "tables" || name == "research" || name == "standard" || name == "source" || name == "texts":
		return descend()
	}
	if _, ok := depth2Drop[name]; ok {
		return drop()
	}
	log.Warn("pathmap: unrecognized depth-2 entry, dropping", "name", name, "parent", parentPath)
	return drop()
}

// mapDepth3 dispatches on the name of the directory whose children are being
// mapped (parent): ruscorpora/trunk/corpora's own children still need a
// further level of sorting (almost everything there defers rather than
// committing to a repo), while ruscorpora/trunk/{spoken,tables,research,
// standard,source,texts}'s children pick up the shared parent-keyed rules in
// mapByParent.
func mapDepth3(log *slog.Logger, name, parentPath string) Decision {
	parent := parentName(parentPath)

	if parent == "corpora" {
		switch name {
		case "version", "para_rus_ger":
			return drop()
		default:
			// spoken, 18century, folklore, test_corpus, research, slav, and
			// every corpus name not excluded above all defer their repo
			// choice to the next level.
			return descend()
		}
	}

	if d, ok := mapByParent(parent, name); ok {
		return d
	}

	log.Warn("pathmap: unrecognized depth-3 entry, dropping", "name", name, "parent", parentPath)
	return drop()
}

// mapDepth4 covers ruscorpora/trunk/corpora/<corpus>'s children (the most
// common depth real corpus content lives at) plus a couple of exact-path
// carve-outs (the tables corpus container's validation subdir, and paper's
// metadata clutter) that the name-only rules in mapByParent can't express.
func mapDepth4(log *slog.Logger, name, parentPath string) Decision {
	if parentPath == "ruscorpora/trunk/corpora/tables" {
		if name == "validation" {
			return remap("tables", name, "")
		}
		return remap("tables", "/", "")
	}
	if parentPath == "ruscorpora/trunk/corpora/paper" {
		switch name {
		case "README.txt", "Desktop.ini", "conf", "db", "format", "hooks", "locks", "svn.ico":
			return drop()
		}
	}

	parent := parentName(parentPath)
	if d, ok := mapByParent(parent, name); ok {
		return d
	}

	// Any still-undecided corpus container's texts/tables child is mapped
	// into a same-named repo at its natural position.
	if name == "texts" || name == "tables" {
		return remap(parent, name, "")
	}

	log.Warn("pathmap: unrecognized depth-4 entry, dropping", "name", name, "parent", parentPath)
	return drop()
}

var slavAktyPattern = regexp.MustCompile(`_akty_.*txt`)

// mapByParent is the set of rules keyed purely by the immediate parent
// directory's name, shared between depths 3 and 4 since ruscorpora/trunk's
// direct children and ruscorpora/trunk/corpora's children resolve to the
// same per-corpus structure either way.
func mapByParent(parent, name string) (Decision, bool) {
	switch parent {
	case "spoken":
		switch name {
		case "manual":
			return remap("spoken", "manual/texts", ""), true
		case "private", "public":
			return remap("spoken", "texts/"+name, ""), true
		case "tabl_manual_spoken.csv":
			return remap("spoken", "manual/tables", "manual.csv"), true
		case "spoken.csv":
			return remap("spoken", "tables", ""), true
		case "murco":
			return remap("murco", "/", ""), true
		case "accent":
			return remap("accent", "/", ""), true
		}

	case "standard", "source":
		switch name {
		case "pre1950", "post1950":
			return remap("main", parent+"/texts/"+name, ""), true
		case "standard_1.csv":
			if parent == "standard" {
				return remap("main", "standard/tables", "standard.csv"), true
			}
		}

	case "texts":
		switch name {
		case "source", "standard":
			return remap("main", name+"/texts", ""), true
		case "accent":
			return descend(), true
		case "school", "syntax":
			return remap(name, "texts", ""), true
		case "dialect", "spoken", "murco", "poetic", "para", "paper":
			return descend(), true
		}

	case "research":
		return remap("projects", "research/"+name, ""), true

	case "tables":
		return remap("tables", "/", ""), true

	case "dialect":
		switch name {
		case "texts", "tables":
			return remap("dialect", name, ""), true
		case "dialect.csv":
			return remap("dialect", "tables", ""), true
		}

	case "murco":
		switch name {
		case "kino":
			return remap("murco", "/", ""), true
		case "private", "public":
			return remap("murco", "texts/"+name, ""), true
		case "murco.csv", "video_ids.txt":
			return remap("murco", "tables", ""), true
		case "texts", "tables", "meta":
			return remap("murco", name, ""), true
		}

	case "poetic":
		switch name {
		case "xix", "xviii", "xx":
			return remap("poetic", "texts/"+name, ""), true
		case "poetic.csv":
			return remap("poetic", "tables", ""), true
		case "texts":
			return descend(), true
		case "tables":
			return remap("poetic", name, ""), true
		}

	case "para":
		switch {
		case name == "texts" || name == "tables":
			return descend(), true
		case name == "para.csv":
			return remap("para", "tables", ""), true
		case strings.HasPrefix(name, "rus") || strings.HasSuffix(name, "rus"):
			return remap("para", "texts/"+name, ""), true
		}

	case "accent":
		switch name {
		case "texts", "tables":
			return remap("accent", "accent_main/"+name, ""), true
		case "accent.csv":
			return remap("accent", "accent_main/tables", ""), true
		case "public", "private", "kino":
			return remap("accent", "accent_main/texts/"+name, ""), true
		default:
			return remap("accent", name, ""), true
		}

	case "slav":
		switch {
		case name == "texts" || name == "tables" || name == "old_slav":
			return descend(), true
		case name == "orthlib" || name == "birchbark" || name == "mid_rus" || name == "old_rus":
			return remap(name, "/", ""), true
		case name == "mid_rus_new":
			return remap("mid_rus", "/", ""), true
		case name == "txt-renamer.py":
			return drop(), true
		case slavAktyPattern.MatchString(name):
			return remap("mid_rus", "texts/gramoty_akty_14_16", ""), true
		case name == "Летописец начала царства-out.txt":
			return remap("mid_rus", "texts/letopisets", "Letopisets-out.txt"), true
		case name == "meta.xls":
			return remap("mid_rus", name, ""), true
		default:
			return remap("mid_rus", "/", ""), true
		}

	case "test_corpus":
		if name == "README" {
			return remap("projects", "test_corpus", ""), true
		}
		return remap("projects", "test_corpus/"+name, ""), true

	case "18century":
		switch name {
		case "table", "tables":
			return remap("projects", "18century/tables", ""), true
		case "texts":
			return remap("projects", "18century/"+name, ""), true
		}

	case "folklore":
		return remap("projects", "folklore/"+name, ""), true

	case "regional_grodno", "multiparc":
		if strings.HasSuffix(name, "xls") {
			return remap(parent, "/", ""), true
		}
		return remap(parent, name, ""), true
	}

	return Decision{}, false
}

// mapDepth5 covers the handful of corpora whose real directory nesting runs
// one level deeper than mapByParent's parent-only dispatch can express
// (para/texts's language-prefixed file naming, the spoken and slav
// sub-families), keyed on the exact accumulated source path.
func mapDepth5(log *slog.Logger, name, parentPath string) Decision {
	parent := parentName(parentPath)
	grandparent := parentName(parentOf(parentPath))

	switch parentPath {
	case "ruscorpora/trunk/corpora/para/texts", "ruscorpora/trunk/corpora/para/tables":
		switch {
		case strings.HasPrefix(name, "rus") || strings.HasSuffix(name, "rus") || name == "multi":
			return remap("para", "texts/"+name, "")
		case strings.HasSuffix(name, "csv"):
			return remap("para", "tables", "")
		case strings.HasSuffix(name, "djvu"):
			return remap("para", "tables", "")
		}

	case "ruscorpora/trunk/corpora/murco/kino", "ruscorpora/trunk/texts/murco/kino":
		return remap("murco", "kino/"+strings.ToLower(name), "")

	case "ruscorpora/trunk/corpora/poetic/texts":
		if name == "poetic" {
			return remap("poetic", "/", "")
		}
		return remap("poetic", "texts/"+name, "")

	case "ruscorpora/trunk/corpora/spoken/texts":
		switch name {
		case "manual":
			return remap("spoken", "manual/texts", "")
		case "spoken.csv":
			return remap("spoken", "tables", "")
		case "tabl_manual_spoken.csv":
			return remap("spoken", "manual/tables", "manual.csv")
		default:
			return remap("spoken", "texts/"+name, "")
		}

	case "ruscorpora/trunk/corpora/spoken/manual", "ruscorpora/trunk/texts/spoken/manual":
		switch name {
		case "texts":
			return remap("spoken", "manual/texts", "")
		case "tables":
			return remap("spoken", "/", "")
		default:
			return remap("spoken", "manual/texts/"+name, "")
		}

	case "ruscorpora/trunk/corpora/spoken/tables":
		switch name {
		case "tabl_manual_spoken.csv":
			return remap("spoken", "manual/tables", "manual.csv")
		default:
			return remap("spoken", "tables", "")
		}

	case "ruscorpora/trunk/corpora/spoken/murco":
		return remap("murco", name, "")

	case "ruscorpora/trunk/corpora/spoken/accent":
		return remap("accent", name, "")

	case "ruscorpora/trunk/corpora/slav/texts":
		switch name {
		case "orthlib":
			return remap("orthlib", "texts", "")
		case "old_slav":
			return remap("old_rus", "texts", "")
		case "melissa", "npl":
			return remap("old_rus", "texts/"+name, "")
		}

	case "ruscorpora/trunk/corpora/slav/tables":
		switch name {
		case "slav.csv", "old_slav.csv":
			return remap("old_rus", "tables", "old_rus.csv")
		case "orthlib.csv":
			return remap("orthlib", "tables", "")
		}

	case "ruscorpora/trunk/corpora/slav/old_slav":
		switch name {
		case "texts":
			return descend()
		case "tables":
			return remap("old_rus", "/", "")
		}

	case "ruscorpora/trunk/corpora/slav/old_rus":
		switch name {
		case "texts":
			return remap("old_rus", name, "")
		case "tables":
			return remap("old_rus", "/", "")
		}

	case "ruscorpora/trunk/corpora/slav/orthlib":
		switch name {
		case "texts", "tables", "textss":
			return remap("orthlib", name, "")
		}

	case "ruscorpora/trunk/corpora/slav/birchbark":
		switch name {
		case "texts", "tables":
			return remap("birchbark", name, "")
		}

	case "ruscorpora/trunk/corpora/slav/mid_rus":
		switch name {
		case "mosk_del_byt_pism-1", "pskov_letopisi", "morozov", "jaroslav_etc", "gramoty_akty_14_16",
			"gramotki_17_18", "duhovnye_dogovornye", "BDRL", "letopisets":
			return remap("mid_rus", "texts/"+strings.ToLower(name), "")
		case "texts", "tables":
			return remap("mid_rus", "/", "")
		}

	case "ruscorpora/trunk/corpora/slav/mid_rus_new":
		switch name {
		case "texts", "tables":
			return remap("mid_rus", "/", "")
		case "mosk_del_byt_pism-1", "pskov_letopisi", "morozov", "jaroslav_etc", "gramoty_akty_14_16",
			"gramotki_17_18", "duhovnye_dogovornye", "BDRL", "letopisets", "polotsk",
			"afz1", "afz2", "afz3", "amg", "apd", "bdrl", "drama", "gvnp", "kungur", "letopisi_varia",
			"nkl", "pososhkov", "psrl34", "rd", "rib", "st_kn", "statspis", "varia", "varia2", "zagovor",
			"lebedev":
			return remap("mid_rus", "texts/"+strings.ToLower(name), "")
		case "GramEval2020-17cent-test.RNC.nolemma.xml":
			return drop()
		}
	}

	if grandparent == "slav" {
		switch parent {
		case "mosk_del_byt_pism-1", "pskov_letopisi", "morozov", "jaroslav_etc", "gramoty_akty_14_16",
			"gramotki_17_18", "duhovnye_dogovornye", "BDRL", "letopisets":
			return remap("mid_rus", "texts/"+parent, "")
		case "Грамотки 17 - нач. 18 вв":
			return remap("mid_rus", "texts/gramotki_17_18", "")
		case "Духовные и договорные грамоты":
			return remap("mid_rus", "texts/duhovnye_dogovornye", "")
		case "Моск. дел. и быт. письм. Отд. 1":
			return remap("mid_rus", "texts/mosk_del_byt_pism-1", "")
		}
	}

	log.Warn("pathmap: unrecognized depth-5 entry, dropping", "name", name, "parent", parentPath)
	return drop()
}

// mapDepth6 covers the deepest exact-path carve-outs: per-file tables inside
// the slav sub-corpora and the spoken manual/poetic leaf renames.
func mapDepth6(log *slog.Logger, name, parentPath string) Decision {
	switch parentPath {
	case "ruscorpora/trunk/corpora/poetic/texts/poetic":
		if name == "poetic.csv" {
			return remap("poetic", "tables", "")
		}
		return remap("poetic", "texts/"+name, "")

	case "ruscorpora/trunk/corpora/spoken/manual/tables":
		if name == "spoken_manual.csv" {
			return remap("spoken", "manual/tables", "manual.csv")
		}
		return remap("spoken", "manual/tables", "")

	case "ruscorpora/trunk/corpora/slav/old_slav/tables", "ruscorpora/trunk/corpora/slav/old_rus/tables":
		if name == "old_slav.csv" || name == "old_rus.csv" {
			return remap("old_rus", "tables", "old_rus.csv")
		}

	case "ruscorpora/trunk/corpora/slav/old_slav/texts":
		if name == "birchbark" {
			return remap("birchbark", "texts", "")
		}
		return remap("old_rus", "texts/"+name, "")

	case "ruscorpora/trunk/corpora/slav/mid_rus/texts":
		if strings.HasSuffix(name, "xml") {
			return remap("mid_rus", "texts/varia2", "")
		}
		return remap("mid_rus", "texts/"+strings.ToLower(name), "")

	case "ruscorpora/trunk/corpora/slav/mid_rus/tables":
		if name == "meta.csv" || name == "mid_rus.csv" {
			return remap("mid_rus", "tables", "mid_rus.csv")
		}

	case "ruscorpora/trunk/corpora/slav/mid_rus_new/texts":
		return remap("mid_rus", "texts/"+strings.ToLower(name), "")

	case "ruscorpora/trunk/corpora/slav/mid_rus_new/tables":
		if name == "mid_rus_new.csv" {
			return remap("mid_rus", "tables", "mid_rus.csv")
		}
	}

	log.Warn("pathmap: unrecognized depth-6 entry, dropping", "name", name, "parent", parentPath)
	return drop()
}

// KnownRepos returns the fixed output-repo identifiers the table names, so
// callers can pre-create one object store per repo before a run starts.
// Rules that take the repo name from the source directory (the
// regional_grodno/multiparc rule in mapByParent and the depth-4 texts/tables
// fallback in mapDepth4) can produce an identifier outside this list.
func KnownRepos() []string {
	return []string{
		"main", "spoken", "murco", "old_rus", "mid_rus", "orthlib", "birchbark",
		"poetic", "accent", "para", "dialect", "school", "syntax", "paper",
		"tables", "projects",
	}
}

// parentName returns the last "/"-separated component of an accumulated
// source path, i.e. the name of the directory whose children are being
// mapped.
func parentName(parentPath string) string {
	if parentPath == "" {
		return ""
	}
	parts := strings.Split(parentPath, "/")
	return parts[len(parts)-1]
}

// parentOf strips the last path component, mirroring Python's
// os.path.split applied twice to reach a grandparent directory name.
func parentOf(parentPath string) string {
	i := strings.LastIndexByte(parentPath, '/')
	if i < 0 {
		return ""
	}
	return parentPath[:i]
}
