package storage

import "io"

// Storage keeps uploaded archives by key. Keys are slash-separated
// paths relative to the storage root, e.g. "books/<uuid>/<name>.epub".
type Storage interface {
	// Save writes the reader under key and returns the key actually
	// used, which differs when the requested one would overwrite a file.
	Save(key string, r io.Reader) (string, error)
	Load(key string) ([]byte, error)
	Remove(key string) error
}
