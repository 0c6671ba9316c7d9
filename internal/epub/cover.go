package epub

import (
	"bytes"
	"image"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/vincent-petithory/dataurl"
	"go.uber.org/zap"

	"github.com/techmengg/wnreader/internal/log"
)

// resolveCover locates the cover image and returns it as a data URI.
// A missing or undecodable cover is non-fatal; the result is empty.
func (p *Parser) resolveCover(a *Archive, pkg *packageDoc) string {
	item, ok := findCoverItem(pkg)
	if !ok {
		return ""
	}
	data, ok := a.Lookup(pkg.itemPath(item))
	if !ok {
		log.Debug("cover item missing from archive", zap.String("href", item.Href))
		return ""
	}
	mediaType := item.MediaType
	if mediaType == "" {
		mediaType = sniffMediaType(data)
	}
	data, mediaType = p.normalizeCover(data, mediaType)
	return dataurl.New(data, mediaType).String()
}

// findCoverItem walks the ladder: the id named by the cover meta, then
// the cover-image manifest property, then the first image item.
func findCoverItem(pkg *packageDoc) (ManifestItem, bool) {
	if pkg.coverID != "" {
		if item, ok := pkg.manifest[pkg.coverID]; ok {
			return item, true
		}
	}
	for _, id := range pkg.order {
		if item := pkg.manifest[id]; item.HasProperty("cover-image") {
			return item, true
		}
	}
	for _, id := range pkg.order {
		if item := pkg.manifest[id]; strings.HasPrefix(item.MediaType, "image/") {
			return item, true
		}
	}
	return ManifestItem{}, false
}

// normalizeCover re-encodes webp covers as jpeg and bounds the width
// when CoverMaxWidth is set. On any decode failure the original bytes
// pass through untouched.
func (p *Parser) normalizeCover(data []byte, mediaType string) ([]byte, string) {
	if strings.Contains(mediaType, "webp") {
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			log.Debug("webp cover decode failed", zap.Error(err))
			return data, mediaType
		}
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
			log.Debug("cover re-encode failed", zap.Error(err))
			return data, mediaType
		}
		data = buf.Bytes()
		mediaType = "image/jpeg"
	}
	if p.CoverMaxWidth <= 0 {
		return data, mediaType
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= p.CoverMaxWidth {
		return data, mediaType
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debug("cover decode failed", zap.Error(err))
		return data, mediaType
	}
	resized := imaging.Resize(img, p.CoverMaxWidth, 0, imaging.Lanczos)
	format, out := imaging.JPEG, "image/jpeg"
	if strings.Contains(mediaType, "png") {
		format, out = imaging.PNG, "image/png"
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		log.Debug("cover re-encode failed", zap.Error(err))
		return data, mediaType
	}
	return buf.Bytes(), out
}
