package store

import (
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"
)

// FileSystem stores each value as a file under a root directory, using the
// key as a relative path. A key "packages/x/v1.0.0/package.zip" becomes the
// file root/packages/x/v1.0.0/package.zip. Writes land in a scratch
// directory first and are renamed into place on Close, so readers never see
// a half-written value.
type FileSystem struct {
	root string
}

// the subdir files are written into before being moved into place
const scratchdir = ".scratch"

var (
	_ Store = &FileSystem{}

	// ErrKeyExists indicates an attempt to create a key which already exists.
	ErrKeyExists = errors.New("key already exists")

	// ErrBadKey means the key contains a path traversal, a control
	// character, whitespace, or invalid UTF-8.
	ErrBadKey = errors.New("bad key")
)

// NewFileSystem creates a new FileSystem store based at the given root path.
func NewFileSystem(root string) *FileSystem {
	return &FileSystem{root: root}
}

// ListPrefix returns every key starting with prefix. It walks the file tree,
// skipping the scratch directory.
func (s *FileSystem) ListPrefix(prefix string) ([]string, error) {
	var result []string
	err := filepath.Walk(s.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			// the root not existing yet just means an empty store
			if p == s.root && os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			if info.Name() == scratchdir {
				return filepath.SkipDir
			}
			return nil
		}
		key := filepath.ToSlash(strings.TrimPrefix(p, s.root))
		key = strings.TrimPrefix(key, "/")
		if strings.HasPrefix(key, prefix) {
			result = append(result, key)
		}
		return nil
	})
	if err != nil {
		log.Println("FileSystem ListPrefix:", prefix, err)
		raven.CaptureError(err, map[string]string{"Root": s.root, "Prefix": prefix})
	}
	return result, err
}

// Open returns a reader for the given value along with its size.
func (s *FileSystem) Open(key string) (ReadAtCloser, int64, error) {
	if err := validateKey(key); err != nil {
		return nil, 0, err
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, fi.Size(), nil
}

// Create returns a writer for a new value at key. It is an error if the key
// already exists. The data is only visible at the key after Close returns.
func (s *FileSystem) Create(key string) (io.WriteCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	target := filepath.Join(s.root, filepath.FromSlash(key))
	_, err := os.Stat(target)
	if !os.IsNotExist(err) {
		return nil, ErrKeyExists
	}
	if err := os.MkdirAll(filepath.Dir(target), 0775); err != nil {
		return nil, err
	}
	// scratch files are flat: the key's slashes become hyphens
	scratch := filepath.Join(s.root, scratchdir)
	if err := os.MkdirAll(scratch, 0775); err != nil {
		return nil, err
	}
	temp := filepath.Join(scratch, strings.Replace(key, "/", "-", -1))
	// O_EXCL so a concurrent Create of the same key errors instead of
	// silently interleaving writes
	w, err := os.OpenFile(temp, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0664)
	if err != nil {
		return nil, err
	}
	return &moveCloser{WriteCloser: w, source: temp, target: target}, nil
}

// moveCloser renames the scratch file into its final place on Close.
type moveCloser struct {
	io.WriteCloser
	source string
	target string
}

func (w *moveCloser) Close() error {
	err := w.WriteCloser.Close()
	if err != nil {
		return err
	}
	_, err = os.Stat(w.target)
	if !os.IsNotExist(err) {
		return ErrKeyExists
	}
	return os.Rename(w.source, w.target)
}

// Delete the given key from the store. It is not an error if the key doesn't
// exist. Empty parent directories are left behind.
func (s *FileSystem) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && os.IsNotExist(err) {
		err = nil
	}
	return err
}

// validateKey rejects keys which could escape the root directory or make a
// mess of the filesystem.
func validateKey(key string) error {
	if key == "" || !utf8.ValidString(key) {
		return ErrBadKey
	}
	if path.Clean("/"+key) != "/"+key {
		// catches "..", doubled and trailing slashes
		return ErrBadKey
	}
	for _, r := range key {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return ErrBadKey
		}
	}
	return nil
}
