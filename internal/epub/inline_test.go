package epub

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func newTestInliner(t *testing.T, manifest string, files []zipEntry) *inliner {
	t.Helper()
	entries := append([]zipEntry{
		{"OEBPS/content.opf", []byte(opfXML("", manifest, ""))},
	}, files...)
	a, err := OpenArchive(buildZip(t, entries))
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	pkg, err := parsePackage(a, "OEBPS/content.opf")
	if err != nil {
		t.Fatalf("Failed to parse package: %v", err)
	}
	return &inliner{archive: a, pkg: pkg}
}

func inlineDoc(t *testing.T, il *inliner, docPath, content string) (*goquery.Document, []Diagnostic) {
	t.Helper()
	doc, err := parseContent([]byte(content))
	if err != nil {
		t.Fatalf("Failed to parse document: %v", err)
	}
	diags := &diagList{}
	il.inline(doc, docPath, diags)
	return doc, diags.diags
}

func TestInlineImage(t *testing.T) {
	il := newTestInliner(t,
		`<item id="pic" href="images/pic.png" media-type="image/png"/>`,
		[]zipEntry{{"OEBPS/images/pic.png", pngBytes(t, 2, 2)}})

	doc, diags := inlineDoc(t, il, "OEBPS/text/ch1.xhtml",
		`<html><head></head><body><img src="../images/pic.png"/></body></html>`)

	src, _ := doc.Find("img").Attr("src")
	if !strings.HasPrefix(src, "data:image/png;base64,") {
		t.Errorf("expected data URI src, got %.40q", src)
	}
	if len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}
}

func TestInlineImageMiss(t *testing.T) {
	il := newTestInliner(t, "", nil)

	doc, diags := inlineDoc(t, il, "OEBPS/ch1.xhtml",
		`<html><head></head><body><img src="missing.png"/></body></html>`)

	if src, _ := doc.Find("img").Attr("src"); src != "missing.png" {
		t.Errorf("expected unresolved src left as-is, got %q", src)
	}
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", diags)
	}
	if diags[0].Kind != DiagResourceResolutionMiss {
		t.Errorf("expected resolution miss kind, got %q", diags[0].Kind)
	}
	if !strings.Contains(diags[0].Detail, "missing.png") {
		t.Errorf("expected detail to name the reference, got %q", diags[0].Detail)
	}
}

func TestInlineRemoteAndDataUntouched(t *testing.T) {
	il := newTestInliner(t, "", nil)

	doc, diags := inlineDoc(t, il, "OEBPS/ch1.xhtml",
		`<html><head></head><body>
<img src="https://example.com/pic.png"/>
<img src="data:image/gif;base64,R0lGOD=="/>
</body></html>`)

	srcs := doc.Find("img").Map(func(_ int, s *goquery.Selection) string {
		src, _ := s.Attr("src")
		return src
	})
	if srcs[0] != "https://example.com/pic.png" {
		t.Errorf("remote src rewritten: %q", srcs[0])
	}
	if srcs[1] != "data:image/gif;base64,R0lGOD==" {
		t.Errorf("data src rewritten: %q", srcs[1])
	}
	if len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}
}

func TestInlineStylesheetLink(t *testing.T) {
	il := newTestInliner(t,
		`<item id="css" href="style.css" media-type="text/css"/>
<item id="pic" href="images/pic.png" media-type="image/png"/>`,
		[]zipEntry{
			{"OEBPS/style.css", []byte(`body { background: url("images/pic.png"); }`)},
			{"OEBPS/images/pic.png", pngBytes(t, 2, 2)},
		})

	doc, diags := inlineDoc(t, il, "OEBPS/ch1.xhtml",
		`<html><head><link rel="stylesheet" href="style.css"/></head><body><p>x</p></body></html>`)

	if doc.Find("link").Length() != 0 {
		t.Errorf("expected stylesheet link to be replaced")
	}
	style := doc.Find("style").Text()
	if !strings.Contains(style, "url(data:image/png;base64,") {
		t.Errorf("expected inlined css url, got %q", style)
	}
	if len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}
}

func TestInlineStylesheetLinkMiss(t *testing.T) {
	il := newTestInliner(t, "", nil)

	doc, diags := inlineDoc(t, il, "OEBPS/ch1.xhtml",
		`<html><head><link rel="stylesheet" href="gone.css"/></head><body><p>x</p></body></html>`)

	if doc.Find("link").Length() != 1 {
		t.Errorf("expected unresolved link kept")
	}
	if len(diags) != 1 || diags[0].Kind != DiagResourceResolutionMiss {
		t.Fatalf("expected 1 resolution miss, got %v", diags)
	}
}

func TestInlineCSSImport(t *testing.T) {
	il := newTestInliner(t, "", []zipEntry{
		{"OEBPS/a.css", []byte(`@import url("b.css"); h1 { color: navy; }`)},
		{"OEBPS/b.css", []byte(`p { color: maroon; }`)},
	})

	doc, diags := inlineDoc(t, il, "OEBPS/ch1.xhtml",
		`<html><head><link rel="stylesheet" href="a.css"/></head><body><p>x</p></body></html>`)

	style := doc.Find("style").Text()
	if !strings.Contains(style, "maroon") || !strings.Contains(style, "navy") {
		t.Errorf("expected imported css inlined, got %q", style)
	}
	if strings.Contains(style, "@import") {
		t.Errorf("expected no @import left, got %q", style)
	}
	if len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}
}

func TestInlineCSSImportCycle(t *testing.T) {
	il := newTestInliner(t, "", []zipEntry{
		{"OEBPS/a.css", []byte(`@import "b.css"; h1 { color: navy; }`)},
		{"OEBPS/b.css", []byte(`@import "a.css"; p { color: maroon; }`)},
	})

	doc, _ := inlineDoc(t, il, "OEBPS/ch1.xhtml",
		`<html><head><link rel="stylesheet" href="a.css"/></head><body><p>x</p></body></html>`)

	style := doc.Find("style").Text()
	if !strings.Contains(style, "navy") || !strings.Contains(style, "maroon") {
		t.Errorf("expected both stylesheets inlined once, got %q", style)
	}
	if strings.Contains(style, "@import") {
		t.Errorf("expected cycle broken without @import left, got %q", style)
	}
}

func TestInlineStyleAttr(t *testing.T) {
	il := newTestInliner(t, "", []zipEntry{
		{"OEBPS/bg.png", pngBytes(t, 2, 2)},
	})

	doc, diags := inlineDoc(t, il, "OEBPS/ch1.xhtml",
		`<html><head></head><body><div style="background-image: url('bg.png')">x</div></body></html>`)

	style, _ := doc.Find("div").Attr("style")
	if !strings.Contains(style, "url(data:image/png;base64,") {
		t.Errorf("expected inlined style url, got %q", style)
	}
	if len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}
}

func TestInlineSrcset(t *testing.T) {
	il := newTestInliner(t, "", []zipEntry{
		{"OEBPS/small.png", pngBytes(t, 2, 2)},
		{"OEBPS/large.png", pngBytes(t, 4, 4)},
	})

	doc, diags := inlineDoc(t, il, "OEBPS/ch1.xhtml",
		`<html><head></head><body><img src="small.png" srcset="small.png 1x, large.png 2x"/></body></html>`)

	srcset, _ := doc.Find("img").Attr("srcset")
	if strings.Count(srcset, "data:image/png;base64,") != 2 {
		t.Errorf("expected both srcset entries inlined, got %q", srcset)
	}
	if !strings.Contains(srcset, " 1x, ") || !strings.HasSuffix(srcset, " 2x") {
		t.Errorf("expected descriptors preserved, got %q", srcset)
	}
	if len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}
}

func TestInlineSVGImage(t *testing.T) {
	il := newTestInliner(t, "", []zipEntry{
		{"OEBPS/pic.png", pngBytes(t, 2, 2)},
	})

	doc, diags := inlineDoc(t, il, "OEBPS/ch1.xhtml",
		`<html><head></head><body><svg xmlns="http://www.w3.org/2000/svg"><image xlink:href="pic.png"/></svg></body></html>`)

	href, _ := doc.Find("image").Attr("href")
	if !strings.HasPrefix(href, "data:image/png;base64,") {
		t.Errorf("expected inlined image href, got %.40q", href)
	}
	if len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}
}

// A reference that misses on direct resolution still resolves when a
// manifest href ends with it.
func TestInlineManifestHrefFallback(t *testing.T) {
	il := newTestInliner(t,
		`<item id="pic" href="images/pic.png" media-type="image/png"/>`,
		[]zipEntry{{"OEBPS/images/pic.png", pngBytes(t, 2, 2)}})

	doc, diags := inlineDoc(t, il, "OEBPS/text/ch1.xhtml",
		`<html><head></head><body><img src="images/pic.png"/></body></html>`)

	src, _ := doc.Find("img").Attr("src")
	if !strings.HasPrefix(src, "data:image/png;base64,") {
		t.Errorf("expected fallback resolution, got %.40q", src)
	}
	if len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}
}

func TestEscapeStyleText(t *testing.T) {
	in := `a::after { content: "</style>" }`
	out := escapeStyleText(in)
	if strings.Contains(out, "</style>") {
		t.Errorf("expected closing tag escaped, got %q", out)
	}
}
