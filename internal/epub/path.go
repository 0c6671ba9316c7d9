package epub

import "strings"

// ResolveHref combines a base directory and a relative reference into a
// normalized archive path. Backslashes are treated as separators, a
// reference starting with "/" is archive-root-relative (baseDir is
// ignored), and ".." segments pop the accumulated stack. A ".." applied
// at the archive root is dropped rather than allowed to escape it.
//
// Fragment and query suffixes are the caller's business; strip them
// with stripRefSuffix before resolving.
func ResolveHref(baseDir, ref string) string {
	ref = strings.ReplaceAll(strings.TrimSpace(ref), "\\", "/")
	baseDir = strings.ReplaceAll(baseDir, "\\", "/")
	if strings.HasPrefix(ref, "/") {
		baseDir = ""
		ref = strings.TrimPrefix(ref, "/")
	}

	var stack []string
	for _, seg := range strings.Split(baseDir, "/") {
		if seg != "" && seg != "." {
			stack = append(stack, seg)
		}
	}
	for _, seg := range strings.Split(ref, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}
	return strings.Join(stack, "/")
}

// stripRefSuffix drops a fragment or query suffix from a reference.
func stripRefSuffix(ref string) string {
	if i := strings.IndexAny(ref, "#?"); i >= 0 {
		return ref[:i]
	}
	return ref
}
