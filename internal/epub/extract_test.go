package epub

import (
	"strings"
	"testing"
)

func extractFixture(t *testing.T, manifest string, files []zipEntry) (*Archive, *packageDoc) {
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
	return a, pkg
}

func TestChapterTitle(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		position int
		want     string
	}{
		{
			"HeadingWins",
			`<html><head><title>Doc Title</title></head><body><h2>From Heading</h2><p>x</p></body></html>`,
			1, "From Heading",
		},
		{
			"DocumentTitle",
			`<html><head><title>Doc Title</title></head><body><p>x</p></body></html>`,
			1, "Doc Title",
		},
		{
			"TitleClass",
			`<html><head><title></title></head><body><div class="chapter-title">Styled Title</div><p>x</p></body></html>`,
			1, "Styled Title",
		},
		{
			"PositionFallback",
			`<html><head></head><body><p>x</p></body></html>`,
			4, "Chapter 4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := parseContent([]byte(tt.content))
			if err != nil {
				t.Fatalf("Failed to parse document: %v", err)
			}
			if got := chapterTitle(doc, tt.position); got != tt.want {
				t.Errorf("chapterTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractPlainText(t *testing.T) {
	in := `<p>Hello   <b>world</b></p><style>p{color:red}</style><script>var x=1;</script>`
	if got := extractPlainText(in); got != "Hello world" {
		t.Errorf("extractPlainText = %q, want %q", got, "Hello world")
	}
}

func TestHasVisualContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"Image", `<html><body><img src="a.png"/></body></html>`, true},
		{"SVG", `<html><body><svg><rect width="4" height="4"></rect></svg></body></html>`, true},
		{"BackgroundImage", `<html><body><div style="background-image: url(a.png)">x</div></body></html>`, true},
		{"PlainText", `<html><body><p>words only</p></body></html>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := parseContent([]byte(tt.content))
			if err != nil {
				t.Fatalf("Failed to parse document: %v", err)
			}
			if got := hasVisualContent(doc); got != tt.want {
				t.Errorf("hasVisualContent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractChapterMissingDocument(t *testing.T) {
	a, pkg := extractFixture(t,
		`<item id="ch1" href="gone.xhtml" media-type="application/xhtml+xml"/>`, nil)

	res := NewParser().extractChapter(a, pkg, pkg.manifest["ch1"], 3, 4)
	if !res.skip {
		t.Fatalf("expected skip for missing document")
	}
	if len(res.diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", res.diags)
	}
	if res.diags[0].Kind != DiagChapterExtractionEmpty {
		t.Errorf("expected extraction empty kind, got %q", res.diags[0].Kind)
	}
	if res.diags[0].ChapterIndex != 3 {
		t.Errorf("expected chapter index 3, got %d", res.diags[0].ChapterIndex)
	}
}

func TestExtractChapterEmptyBody(t *testing.T) {
	a, pkg := extractFixture(t,
		`<item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>`,
		[]zipEntry{{"OEBPS/ch1.xhtml", []byte(`<html><head><title>x</title></head><body>   </body></html>`)}})

	res := NewParser().extractChapter(a, pkg, pkg.manifest["ch1"], 0, 1)
	if !res.skip {
		t.Fatalf("expected skip for empty body")
	}
	if len(res.diags) != 1 || res.diags[0].Kind != DiagChapterExtractionEmpty {
		t.Fatalf("expected extraction empty diagnostic, got %v", res.diags)
	}
}

func TestExtractChapterTextContent(t *testing.T) {
	a, pkg := extractFixture(t,
		`<item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>`,
		[]zipEntry{{"OEBPS/ch1.xhtml", chapterXHTML("Chapter One",
			`<h1>Chapter One</h1><p onclick="x()">`+longParagraph+`</p><iframe src="ad.html"></iframe><script>track()</script>`)}})

	res := NewParser().extractChapter(a, pkg, pkg.manifest["ch1"], 0, 1)
	if res.skip {
		t.Fatalf("expected chapter extracted, diags %v", res.diags)
	}
	if res.visual {
		t.Errorf("expected text-only classification")
	}
	if res.title != "Chapter One" {
		t.Errorf("expected title from heading, got %q", res.title)
	}
	if strings.Contains(res.content, "onclick") || strings.Contains(res.content, "iframe") || strings.Contains(res.content, "script") {
		t.Errorf("expected full sanitization, got %q", res.content)
	}
	if res.textLen < frontMatterTextThreshold {
		t.Errorf("expected text length above threshold, got %d", res.textLen)
	}
}

func TestExtractChapterVisualContent(t *testing.T) {
	a, pkg := extractFixture(t,
		`<item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
<item id="pic" href="pic.png" media-type="image/png"/>`,
		[]zipEntry{
			{"OEBPS/ch1.xhtml", chapterXHTML("Plates",
				`<figure data-layout="full"><img src="pic.png" onerror="x()"/></figure><script>track()</script>`)},
			{"OEBPS/pic.png", pngBytes(t, 2, 2)},
		})

	res := NewParser().extractChapter(a, pkg, pkg.manifest["ch1"], 0, 1)
	if res.skip {
		t.Fatalf("expected chapter extracted, diags %v", res.diags)
	}
	if !res.visual {
		t.Fatalf("expected visual classification")
	}
	if !strings.Contains(res.content, `data-layout="full"`) {
		t.Errorf("expected light pass to keep custom markup, got %q", res.content)
	}
	if !strings.Contains(res.content, "data:image/png;base64,") {
		t.Errorf("expected inlined image, got %q", res.content)
	}
	if strings.Contains(res.content, "onerror") || strings.Contains(res.content, "script") {
		t.Errorf("expected script and handlers removed, got %q", res.content)
	}
}
