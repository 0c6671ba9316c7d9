package epub

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
)

// maxDecompressSize is the maximum allowed decompressed size for a
// single ZIP entry, guarding against decompression bombs.
const maxDecompressSize int64 = 256 * 1024 * 1024

// Archive is an immutable in-memory view of an EPUB container: a
// mapping from normalized path (forward-slash separated, no leading
// slash) to raw bytes. It is built once per import and safe for
// concurrent reads.
type Archive struct {
	files map[string][]byte
	paths []string // sorted; fallback scans must be deterministic
}

// OpenArchive reads every entry of the ZIP buffer into memory. It
// returns ErrInvalidArchive when the bytes are not a ZIP structure at
// all; individual unreadable entries are skipped.
func OpenArchive(data []byte) (*Archive, error) {
	// Backslash and rooted member names are common in sloppy EPUBs;
	// the reader still works when it flags them, and normalizeEntryName
	// makes the paths safe for map lookups.
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	a := &Archive{files: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		b, err := readZipEntry(f)
		if err != nil {
			continue
		}
		name := normalizeEntryName(f.Name)
		if name == "" {
			continue
		}
		if _, ok := a.files[name]; ok {
			continue
		}
		a.files[name] = b
		a.paths = append(a.paths, name)
	}
	sort.Strings(a.paths)
	return a, nil
}

// Lookup resolves a logical path to file bytes, tolerating the path
// encoding variation found in real-world EPUBs. It tries, in order:
// the literal path, its percent-decoded form, its percent-encoded
// form, the path with a leading slash stripped, and the path with a
// leading "./" stripped. The first hit wins.
func (a *Archive) Lookup(p string) ([]byte, bool) {
	if b, ok := a.files[p]; ok {
		return b, true
	}
	if decoded, err := url.PathUnescape(p); err == nil && decoded != p {
		if b, ok := a.files[decoded]; ok {
			return b, true
		}
	}
	if encoded := escapePath(p); encoded != p {
		if b, ok := a.files[encoded]; ok {
			return b, true
		}
	}
	if strings.HasPrefix(p, "/") {
		if b, ok := a.files[strings.TrimPrefix(p, "/")]; ok {
			return b, true
		}
	}
	if strings.HasPrefix(p, "./") {
		if b, ok := a.files[strings.TrimPrefix(p, "./")]; ok {
			return b, true
		}
	}
	return nil, false
}

// Paths returns every entry path in sorted order.
func (a *Archive) Paths() []string {
	return a.paths
}

// normalizeEntryName normalizes a ZIP member name to the archive's
// canonical form: forward slashes, no leading slash or "./".
func normalizeEntryName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	return name
}

// escapePath percent-encodes each path segment, keeping separators.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// readZipEntry reads the full contents of a ZIP entry, enforcing
// maxDecompressSize against forged size headers.
func readZipEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > uint64(maxDecompressSize) {
		return nil, fmt.Errorf("epub: zip entry %s too large: %d bytes", f.Name, f.UncompressedSize64)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("epub: open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	// Read up to limit+1 to detect entries whose declared size lies.
	lr := io.LimitReader(rc, maxDecompressSize+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, fmt.Errorf("epub: read zip entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > maxDecompressSize {
		return nil, fmt.Errorf("epub: zip entry %s exceeds decompression limit", f.Name)
	}
	return data, nil
}

// stripBOM removes a leading UTF-8 BOM from data, if present.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
