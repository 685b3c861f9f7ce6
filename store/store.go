// Package store provides a goroutine safe key-value interface for archive
// blobs. Values are streams rather than opaque byte slices, so large
// archives can be stored without holding them in memory.
//
// Keys are slash-separated paths, e.g. "packages/left-pad/v1.0.0/package.zip".
// The FileSystem store maps them onto directories; the S3 store uses them as
// object keys directly. The Memory store exists for testing.
package store

import (
	"io"
)

// ReadAtCloser combines the io.ReaderAt and io.Closer interfaces.
type ReadAtCloser interface {
	io.ReaderAt
	io.Closer
}

// Store is the stream based key-value store. Values are immutable once
// written, though they may be deleted and the key reused.
type Store interface {
	ROStore
	Create(key string) (io.WriteCloser, error)
	Delete(key string) error
}

// ROStore is the read-only part of a Store.
type ROStore interface {
	// ListPrefix returns every key beginning with prefix. An empty prefix
	// lists the whole store.
	ListPrefix(prefix string) ([]string, error)

	// Open returns a reader for the value at key along with its size.
	Open(key string) (ReadAtCloser, int64, error)
}

// NewReader converts a ReaderAt into an io.Reader. It is a utility to help
// work with the ReadAtCloser returned by Open.
func NewReader(r io.ReaderAt) io.Reader {
	return &reader{r: r}
}

type reader struct {
	r   io.ReaderAt
	off int64
}

func (r *reader) Read(p []byte) (n int, err error) {
	n, err = r.r.ReadAt(p, r.off)
	r.off += int64(n)
	if err == io.EOF && n > 0 {
		// a short read is not an error for an io.Reader
		err = nil
	}
	return
}
