package pathmap

import "strings"

// RewriteExtension applies the extension rewrites that are independent of
// the depth-keyed decision table: .xhtml and .xhtml3 become .xml, and a
// trailing ".!" or ".msi" leaf is dropped entirely regardless of which
// decision kind the table returned for it.
//
// drop is true when the caller must discard the entry no matter what Map
// returned.
func RewriteExtension(name string) (newName string, drop bool) {
	switch {
	case strings.HasSuffix(name, ".!"):
		return "", true
	case strings.HasSuffix(name, ".msi"):
		return "", true
	case strings.HasSuffix(name, ".xhtml3"):
		return strings.TrimSuffix(name, ".xhtml3") + ".xml", false
	case strings.HasSuffix(name, ".xhtml"):
		return strings.TrimSuffix(name, ".xhtml") + ".xml", false
	default:
		return name, false
	}
}

// IsExcludedFromCollection reports whether name is never collected for
// transcoding: .gitignore markers, and anything RewriteExtension would drop.
// Binary extensions are excluded by the caller via a separate binary-type
// check, IsBinaryExtension (spec.md §4.6 and scenario S8), which consults
// the fixed binaryExtensions set rather than the declarative table.
func IsExcludedFromCollection(name string) bool {
	if name == ".gitignore" {
		return true
	}
	_, drop := RewriteExtension(name)
	return drop
}
