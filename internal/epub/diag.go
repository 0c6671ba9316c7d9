package epub

// Diagnostic kinds.
const (
	DiagResourceResolutionMiss = "resource_resolution_miss"
	DiagChapterExtractionEmpty = "chapter_extraction_empty"
)

// Diagnostic records one degraded-but-non-fatal event during an import:
// a resource reference that could not be resolved inside the archive, or
// a spine item that produced no usable body. ChapterIndex is the
// zero-based index of the spine item in the pre-filter reading-order
// walk, so it stays stable no matter how many items are dropped later.
type Diagnostic struct {
	ChapterIndex int    `json:"chapter_index"`
	Kind         string `json:"kind"`
	Detail       string `json:"detail"`
}

// diagList collects diagnostics for a single chapter extraction. Each
// extraction task owns its own list; the segmenter merges them in spine
// order so repeated parses of the same bytes yield identical output.
type diagList struct {
	chapterIndex int
	diags        []Diagnostic
}

func (d *diagList) add(kind, detail string) {
	d.diags = append(d.diags, Diagnostic{
		ChapterIndex: d.chapterIndex,
		Kind:         kind,
		Detail:       detail,
	})
}
