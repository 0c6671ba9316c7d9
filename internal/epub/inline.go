package epub

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/vincent-petithory/dataurl"
)

// inliner rewrites one content document's external references into
// embedded data URIs. Archive and package document are shared read-only
// state; every chapter extraction runs its own inliner pass over a
// document it exclusively owns.
type inliner struct {
	archive *Archive
	pkg     *packageDoc
}

type cssTask struct {
	sel   *goquery.Selection
	text  string // style block contents
	href  string // set for stylesheet links
	out   string
	ok    bool
	diags diagList
}

// inline rewrites, in order, stylesheet links, style blocks, img
// src/srcset, SVG image references, and style attribute url() values.
// Fetching and encoding run concurrently; the DOM is only mutated after
// every subtask has joined, so serialization sees a settled tree.
func (il *inliner) inline(doc *goquery.Document, docPath string, diags *diagList) {
	baseDir := path.Dir(docPath)
	if baseDir == "." {
		baseDir = ""
	}

	cssTasks := il.collectCSSTasks(doc)
	refs := collectResourceRefs(doc)

	var wg sync.WaitGroup
	var mu sync.Mutex
	encoded := make(map[string]string, len(refs))

	for _, ref := range refs {
		wg.Add(1)
		go func(ref string) {
			defer wg.Done()
			data, resolved, ok := il.fetchResource(baseDir, ref)
			if !ok {
				return
			}
			uri := il.dataURIFor(resolved, data)
			mu.Lock()
			encoded[ref] = uri
			mu.Unlock()
		}(ref)
	}

	for _, t := range cssTasks {
		wg.Add(1)
		go func(t *cssTask) {
			defer wg.Done()
			t.diags.chapterIndex = diags.chapterIndex
			css := t.text
			dir := baseDir
			visited := map[string]bool{}
			if t.href != "" {
				data, resolved, ok := il.fetchResource(baseDir, t.href)
				if !ok {
					t.diags.add(DiagResourceResolutionMiss, fmt.Sprintf("stylesheet: %s", t.href))
					return
				}
				css = string(stripBOM(data))
				dir = path.Dir(resolved)
				visited[resolved] = true
			}
			t.out = il.rewriteCSS(css, dir, 0, visited, &t.diags)
			t.ok = true
		}(t)
	}
	wg.Wait()

	// Apply phase, single goroutine. Stylesheet links were collected
	// before style blocks, so one pass keeps the rewrite order.
	for _, t := range cssTasks {
		diags.diags = append(diags.diags, t.diags.diags...)
		if !t.ok {
			continue
		}
		content := escapeStyleText(t.out)
		if t.href != "" {
			t.sel.ReplaceWithHtml("<style>" + content + "</style>")
		} else {
			t.sel.SetHtml(content)
		}
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && !skipRef(src) {
			if uri, ok := encoded[src]; ok {
				s.SetAttr("src", uri)
			} else {
				diags.add(DiagResourceResolutionMiss, fmt.Sprintf("image: %s", src))
			}
		}
		if srcset, ok := s.Attr("srcset"); ok && strings.TrimSpace(srcset) != "" {
			s.SetAttr("srcset", rewriteSrcset(srcset, encoded, diags))
		}
	})

	doc.Find("image").Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			for i, attr := range n.Attr {
				if attr.Key != "href" || skipRef(attr.Val) {
					continue
				}
				if uri, ok := encoded[attr.Val]; ok {
					n.Attr[i].Val = uri
				} else {
					diags.add(DiagResourceResolutionMiss, fmt.Sprintf("image href: %s", attr.Val))
				}
			}
		}
	})

	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		if !strings.Contains(style, "url(") {
			return
		}
		rewritten := cssURLRe.ReplaceAllStringFunc(style, func(stmt string) string {
			ref := cssURLRe.FindStringSubmatch(stmt)[1]
			if skipRef(ref) {
				return stmt
			}
			if uri, ok := encoded[ref]; ok {
				return "url(" + uri + ")"
			}
			diags.add(DiagResourceResolutionMiss, fmt.Sprintf("style url: %s", ref))
			return stmt
		})
		s.SetAttr("style", rewritten)
	})
}

func (il *inliner) collectCSSTasks(doc *goquery.Document) []*cssTask {
	var tasks []*cssTask
	doc.Find("link").Each(func(_ int, s *goquery.Selection) {
		rel, _ := s.Attr("rel")
		if !strings.EqualFold(strings.TrimSpace(rel), "stylesheet") {
			return
		}
		href, _ := s.Attr("href")
		if skipRef(href) {
			return
		}
		tasks = append(tasks, &cssTask{sel: s, href: href})
	})
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		tasks = append(tasks, &cssTask{sel: s, text: s.Text()})
	})
	return tasks
}

// collectResourceRefs gathers every image and style reference in the
// document, deduplicated, in document order.
func collectResourceRefs(doc *goquery.Document) []string {
	var refs []string
	seen := map[string]bool{}
	add := func(ref string) {
		if skipRef(ref) || seen[ref] {
			return
		}
		seen[ref] = true
		refs = append(refs, ref)
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			add(src)
		}
		if srcset, ok := s.Attr("srcset"); ok {
			for _, ref := range srcsetRefs(srcset) {
				add(ref)
			}
		}
	})
	doc.Find("image").Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					add(attr.Val)
				}
			}
		}
	})
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		for _, m := range cssURLRe.FindAllStringSubmatch(style, -1) {
			add(m[1])
		}
	})
	return refs
}

// fetchResource resolves a reference against baseDir and looks it up in
// the archive. When the direct lookup misses, it falls back to a
// substring match of the reference (relative segments stripped) against
// manifest hrefs in document order. The precedence decides which file
// wins when several candidates exist; keep it as is.
func (il *inliner) fetchResource(baseDir, ref string) ([]byte, string, bool) {
	resolved := ResolveHref(baseDir, stripRefSuffix(ref))
	if resolved == "" {
		return nil, "", false
	}
	if data, ok := il.archive.Lookup(resolved); ok {
		return data, resolved, true
	}

	needle := stripRefSuffix(strings.TrimSpace(ref))
	for strings.HasPrefix(needle, "../") {
		needle = needle[3:]
	}
	needle = strings.TrimPrefix(needle, "./")
	needle = strings.TrimPrefix(needle, "/")
	if needle == "" {
		return nil, "", false
	}
	for _, id := range il.pkg.order {
		ip := il.pkg.itemPath(il.pkg.manifest[id])
		if strings.Contains(ip, needle) {
			if data, ok := il.archive.Lookup(ip); ok {
				return data, ip, true
			}
		}
	}
	return nil, "", false
}

// dataURIFor encodes data as a data URI, taking the media type from the
// manifest when the path is declared there and sniffing it otherwise.
func (il *inliner) dataURIFor(resolved string, data []byte) string {
	mediaType := ""
	if item, ok := il.pkg.byPath[resolved]; ok {
		mediaType = item.MediaType
	}
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = sniffMediaType(data)
	}
	return dataurl.New(data, mediaType).String()
}

// sniffMediaType detects the media type of raw bytes, without charset
// parameters.
func sniffMediaType(data []byte) string {
	mt := mimetype.Detect(data).String()
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	return strings.TrimSpace(mt)
}

// srcsetRefs extracts the URL part of every srcset entry.
func srcsetRefs(srcset string) []string {
	var refs []string
	for _, entry := range strings.Split(srcset, ",") {
		fields := strings.Fields(entry)
		if len(fields) > 0 {
			refs = append(refs, fields[0])
		}
	}
	return refs
}

func rewriteSrcset(srcset string, encoded map[string]string, diags *diagList) string {
	entries := strings.Split(srcset, ",")
	for i, entry := range entries {
		fields := strings.Fields(entry)
		if len(fields) == 0 {
			continue
		}
		if !skipRef(fields[0]) {
			if uri, ok := encoded[fields[0]]; ok {
				fields[0] = uri
			} else {
				diags.add(DiagResourceResolutionMiss, fmt.Sprintf("srcset entry: %s", fields[0]))
			}
		}
		entries[i] = strings.Join(fields, " ")
	}
	return strings.Join(entries, ", ")
}

// escapeStyleText keeps inlined CSS from closing its own style element.
func escapeStyleText(css string) string {
	return strings.ReplaceAll(css, "</style>", `<\/style>`)
}
