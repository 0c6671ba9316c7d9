package epub

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/techmengg/wnreader/internal/log"
	"go.uber.org/zap"
)

// maxCSSImportDepth bounds recursive @import inlining. Malformed EPUBs
// ship self-importing stylesheets; the visited set catches direct
// cycles and the depth guard catches long indirect ones.
const maxCSSImportDepth = 8

var (
	cssImportRe = regexp.MustCompile(`(?i)@import\s+(?:url\(\s*['"]?([^'")]+?)['"]?\s*\)|['"]([^'"]+)['"])[^;]*;?`)
	cssURLRe    = regexp.MustCompile(`(?i)url\(\s*['"]?([^'")]+?)['"]?\s*\)`)
)

// rewriteCSS inlines @import statements by text substitution, then
// rewrites every url(...) reference to a data URI. The substituting
// directory follows the imported file so nested relative references
// stay correct. Unresolvable references are left as-is and recorded.
func (il *inliner) rewriteCSS(css, baseDir string, depth int, visited map[string]bool, diags *diagList) string {
	css = cssImportRe.ReplaceAllStringFunc(css, func(stmt string) string {
		m := cssImportRe.FindStringSubmatch(stmt)
		ref := m[1]
		if ref == "" {
			ref = m[2]
		}
		if skipRef(ref) {
			return stmt
		}
		data, resolved, ok := il.fetchResource(baseDir, ref)
		if !ok {
			diags.add(DiagResourceResolutionMiss, fmt.Sprintf("stylesheet import: %s", ref))
			return stmt
		}
		if visited[resolved] || depth >= maxCSSImportDepth {
			log.Debug("dropping css import, recursion guard hit",
				zap.String("path", resolved),
				zap.Int("depth", depth))
			return ""
		}
		visited[resolved] = true
		return il.rewriteCSS(string(stripBOM(data)), path.Dir(resolved), depth+1, visited, diags)
	})

	return cssURLRe.ReplaceAllStringFunc(css, func(stmt string) string {
		ref := cssURLRe.FindStringSubmatch(stmt)[1]
		if skipRef(ref) {
			return stmt
		}
		data, resolved, ok := il.fetchResource(baseDir, ref)
		if !ok {
			diags.add(DiagResourceResolutionMiss, fmt.Sprintf("css url: %s", ref))
			return stmt
		}
		return "url(" + il.dataURIFor(resolved, data) + ")"
	})
}

// skipRef reports whether a reference must be left untouched: absolute
// http(s) URLs and existing data URIs stay as they are, and empty
// references have nothing to resolve.
func skipRef(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return true
	}
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "data:")
}
