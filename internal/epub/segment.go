package epub

import (
	"runtime"
	"strings"
	"sync"

	"github.com/techmengg/wnreader/internal/log"
	"go.uber.org/zap"
)

// frontMatterTextThreshold is the plain-text length below which
// non-visual front matter is dropped.
const frontMatterTextThreshold = 120

// frontMatterMarkers classify a chapter as front matter when its
// derived title contains one of them, case-insensitively.
var frontMatterMarkers = []string{
	"contents", "table", "cover", "title page", "copyright", "introduction",
}

// buildChapters walks the reading order: linear spine items with an
// html media type. Items extract concurrently on a bounded pool; the
// archive is immutable and each item owns its working document, so the
// only ordering requirement is the re-join into spine order here.
func (p *Parser) buildChapters(a *Archive, pkg *packageDoc) ([]Chapter, []Diagnostic, error) {
	type spineEntry struct {
		item ManifestItem
		pos  int // 1-based, before front-matter filtering
	}

	var entries []spineEntry
	for _, s := range pkg.spine {
		item, ok := pkg.manifest[s.IDRef]
		if !ok {
			log.Debug("spine references unknown manifest id", zap.String("idref", s.IDRef))
			continue
		}
		if !s.Linear {
			continue
		}
		if !strings.Contains(strings.ToLower(item.MediaType), "html") {
			continue
		}
		entries = append(entries, spineEntry{item: item, pos: len(entries) + 1})
	}
	if len(entries) == 0 {
		return nil, nil, ErrNoReadableChapters
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(entries) {
		workers = len(entries)
	}

	results := make([]*chapterResult, len(entries))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Add(1)
		go func(i int, e spineEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = p.extractChapter(a, pkg, e.item, i, e.pos)
		}(i, e)
	}
	wg.Wait()

	var chapters []Chapter
	var diags []Diagnostic
	for _, r := range results {
		for _, d := range r.diags {
			log.Debug("chapter diagnostic",
				zap.Int("chapter_index", d.ChapterIndex),
				zap.String("kind", d.Kind),
				zap.String("detail", d.Detail))
		}
		diags = append(diags, r.diags...)
		if r.skip {
			continue
		}
		// Visual front matter (an illustrated title page) is kept.
		if isFrontMatter(r.title) && r.textLen < frontMatterTextThreshold && !r.visual {
			log.Debug("dropping front matter item",
				zap.String("title", r.title),
				zap.Int("text_len", r.textLen))
			continue
		}
		chapters = append(chapters, Chapter{
			Title:    r.title,
			Content:  r.content,
			Position: len(chapters),
		})
	}
	if len(chapters) == 0 {
		return nil, diags, ErrNoReadableChapters
	}
	return chapters, diags, nil
}

func isFrontMatter(title string) bool {
	t := strings.ToLower(title)
	for _, marker := range frontMatterMarkers {
		if strings.Contains(t, marker) {
			return true
		}
	}
	return false
}
