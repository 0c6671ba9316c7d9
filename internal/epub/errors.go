package epub

import "errors"

// Sentinel errors returned by the epub package. All of them are fatal
// for the import that raised them; degraded-but-recoverable conditions
// are reported as Diagnostics instead.
var (
	// ErrInvalidArchive indicates the input bytes cannot be opened as a
	// ZIP archive at all. Retrying without different input is useless.
	ErrInvalidArchive = errors.New("epub: invalid archive")

	// ErrMissingContainer indicates META-INF/container.xml is absent or
	// unparsable.
	ErrMissingContainer = errors.New("epub: missing META-INF/container.xml")

	// ErrMissingPackagePath indicates the container declares no rootfile
	// path.
	ErrMissingPackagePath = errors.New("epub: no package path declared in container")

	// ErrMissingPackageDocument indicates the package document the
	// container points at does not exist in the archive.
	ErrMissingPackageDocument = errors.New("epub: package document not found")

	// ErrNoReadableChapters indicates every spine item was filtered out
	// or failed extraction.
	ErrNoReadableChapters = errors.New("epub: no readable chapters")
)

// IsParseError reports whether err is one of the parse sentinels,
// meaning the uploaded file itself is at fault rather than the server.
func IsParseError(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidArchive,
		ErrMissingContainer,
		ErrMissingPackagePath,
		ErrMissingPackageDocument,
		ErrNoReadableChapters,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
