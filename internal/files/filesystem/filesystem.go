package filesystem

import (
	"io"
	"io/fs"
)

// FileInfo is an alias for fs.FileInfo from the standard library.
type FileInfo = fs.FileInfo

// FileSystemProvider opens source files.
// Missing files are reported with errors that satisfy errors.Is(err, fs.ErrNotExist).
type FileSystemProvider interface {
	// Open returns a reader for the file at path. The caller closes it.
	Open(path string) (io.ReadCloser, error)

	// ReadFile reads a specific file at the given path
	ReadFile(path string) ([]byte, error)

	// Stat returns file information for the given path
	Stat(path string) (FileInfo, error)
}
