package epub

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// chapterResult is the outcome of extracting one spine item. skip marks
// soft failures; they never abort the import.
type chapterResult struct {
	title   string
	content string
	textLen int
	visual  bool
	skip    bool
	diags   []Diagnostic
}

// extractChapter converts one spine item into chapter HTML. index is
// the zero-based position in the pre-filter reading-order walk,
// position its 1-based counterpart used for fallback titles.
func (p *Parser) extractChapter(a *Archive, pkg *packageDoc, item ManifestItem, index, position int) *chapterResult {
	res := &chapterResult{}
	diags := &diagList{chapterIndex: index}
	defer func() { res.diags = diags.diags }()

	docPath := pkg.itemPath(item)
	data, ok := a.Lookup(docPath)
	if !ok {
		diags.add(DiagChapterExtractionEmpty, fmt.Sprintf("spine document missing: %s", item.Href))
		res.skip = true
		return res
	}

	doc, err := parseContent(data)
	if err != nil {
		diags.add(DiagChapterExtractionEmpty, fmt.Sprintf("unparsable document: %s", item.Href))
		res.skip = true
		return res
	}

	// Scripts never survive, whatever the content shape.
	doc.Find("script").Remove()

	// A document with imagery gets the light pass; attribute allowlists
	// routinely mangle illustrated pages and inline SVG.
	res.visual = hasVisualContent(doc)

	il := &inliner{archive: a, pkg: pkg}
	il.inline(doc, docPath, diags)

	body := bodyNode(doc)
	if body == nil {
		diags.add(DiagChapterExtractionEmpty, fmt.Sprintf("no body element: %s", item.Href))
		res.skip = true
		return res
	}

	if res.visual {
		lightSanitize(body)
	} else {
		sanitizeTree(body)
	}

	content, err := bodyInnerHTML(doc)
	if err != nil || strings.TrimSpace(content) == "" {
		diags.add(DiagChapterExtractionEmpty, fmt.Sprintf("empty body: %s", item.Href))
		res.skip = true
		return res
	}

	res.content = strings.TrimSpace(content)
	res.title = chapterTitle(doc, position)
	res.textLen = utf8.RuneCountInString(extractPlainText(res.content))
	return res
}

func parseContent(data []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(stripBOM(data)))
}

// hasVisualContent reports whether the document carries a visual
// signal: an image, an SVG element, or an inline background-image.
func hasVisualContent(doc *goquery.Document) bool {
	if doc.Find("img, svg, image").Length() > 0 {
		return true
	}
	visual := false
	doc.Find("[style]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		style, _ := s.Attr("style")
		if strings.Contains(strings.ToLower(style), "background-image") {
			visual = true
			return false
		}
		return true
	})
	return visual
}

func bodyNode(doc *goquery.Document) *html.Node {
	sel := doc.Find("body").First()
	if sel.Length() == 0 {
		return nil
	}
	return sel.Nodes[0]
}

func bodyInnerHTML(doc *goquery.Document) (string, error) {
	return doc.Find("body").First().Html()
}

// chapterTitle resolves the chapter title: first heading in the body,
// else the document title, else an element whose class mentions
// "title", else a positional fallback.
func chapterTitle(doc *goquery.Document, position int) string {
	if t := squeezeText(doc.Find("body").Find("h1, h2, h3").First().Text()); t != "" {
		return t
	}
	if t := squeezeText(doc.Find("head title").First().Text()); t != "" {
		return t
	}
	if t := squeezeText(doc.Find("body").Find(`[class*="title"]`).First().Text()); t != "" {
		return t
	}
	return fmt.Sprintf("Chapter %d", position)
}

// extractPlainText strips tags and collapses whitespace runs. Script
// and style contents are skipped.
func extractPlainText(htmlStr string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	var buf strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return squeezeText(buf.String())
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if name := string(tn); name == "script" || name == "style" {
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if name := string(tn); (name == "script" || name == "style") && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			buf.Write(tokenizer.Text())
			buf.WriteByte(' ')
		}
	}
}

// squeezeText collapses whitespace runs to single spaces and trims.
func squeezeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
