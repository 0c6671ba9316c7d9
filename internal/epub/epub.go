// Package epub turns an EPUB archive held in memory into
// self-contained book content: package metadata, a cover data URI and
// sanitized chapters whose resource references are inlined as data
// URIs so the output renders without the source archive.
package epub

import (
	"path/filepath"
	"strings"
)

// ParsedBook is the import result for one EPUB file.
type ParsedBook struct {
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Description string    `json:"description,omitempty"`
	CoverImage  string    `json:"coverImage,omitempty"`
	Chapters    []Chapter `json:"chapters"`
}

// Chapter is one readable unit in reading order. Positions are
// contiguous and 0-based in the final chapter list.
type Chapter struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Position int    `json:"position"`
}

// Parser carries the tunables for a parse run. The zero value is
// usable: covers keep their original bytes and extraction uses one
// worker per CPU.
type Parser struct {
	// CoverMaxWidth bounds the cover width in pixels. Zero disables
	// resizing.
	CoverMaxWidth int
	// Workers caps concurrent chapter extraction. Zero means NumCPU.
	Workers int
}

func NewParser() *Parser {
	return &Parser{}
}

// Parse reads an EPUB from memory with default settings. filename is
// only consulted as the title fallback when the package metadata
// names none.
func Parse(data []byte, filename string) (*ParsedBook, []Diagnostic, error) {
	return NewParser().Parse(data, filename)
}

// Parse returns the parsed book together with the non-fatal
// diagnostics collected along the way. Diagnostics may be non-empty
// even when the error is nil, and accompany the error when chapter
// extraction came up empty.
func (p *Parser) Parse(data []byte, filename string) (*ParsedBook, []Diagnostic, error) {
	a, err := OpenArchive(data)
	if err != nil {
		return nil, nil, err
	}
	pkgPath, err := findPackagePath(a)
	if err != nil {
		return nil, nil, err
	}
	pkg, err := parsePackage(a, pkgPath)
	if err != nil {
		return nil, nil, err
	}
	chapters, diags, err := p.buildChapters(a, pkg)
	if err != nil {
		return nil, diags, err
	}
	book := &ParsedBook{
		Title:       pkg.title,
		Author:      pkg.author,
		Description: pkg.description,
		CoverImage:  p.resolveCover(a, pkg),
		Chapters:    chapters,
	}
	if book.Title == "" {
		book.Title = fallbackTitle(filename)
	}
	return book, diags, nil
}

// fallbackTitle derives a display title from the uploaded file name.
func fallbackTitle(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".epub") {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
