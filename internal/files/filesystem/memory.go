package filesystem

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// memoryFileInfo implements fs.FileInfo for in-memory files
type memoryFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (f *memoryFileInfo) Name() string       { return f.name }
func (f *memoryFileInfo) Size() int64        { return f.size }
func (f *memoryFileInfo) Mode() fs.FileMode  { return f.mode }
func (f *memoryFileInfo) ModTime() time.Time { return f.modTime }
func (f *memoryFileInfo) IsDir() bool        { return f.isDir }
func (f *memoryFileInfo) Sys() interface{}   { return nil }

// MemoryFileSystem implements FileSystemProvider for in-memory testing.
// Paths are slash-separated; relative paths resolve against the root.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
	root  string
}

var _ FileSystemProvider = (*MemoryFileSystem)(nil)

// NewMemoryFileSystem creates a new in-memory filesystem.
// The root path is normalized to use forward slashes for virtual filesystem consistency.
func NewMemoryFileSystem(root string) *MemoryFileSystem {
	return &MemoryFileSystem{
		files: make(map[string][]byte),
		root:  path.Clean(filepath.ToSlash(root)),
	}
}

// AddFile adds a file with string content, relative to the root.
func (m *MemoryFileSystem) AddFile(relPath, content string) {
	m.AddFileBytes(relPath, []byte(content))
}

// AddFileBytes adds a file with raw content, for encodings other than UTF-8.
func (m *MemoryFileSystem) AddFileBytes(relPath string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[m.resolve(relPath)] = append([]byte(nil), content...)
}

func (m *MemoryFileSystem) resolve(p string) string {
	p = filepath.ToSlash(p)
	if strings.HasPrefix(p, "/") {
		return path.Clean(p)
	}
	return path.Join(m.root, p)
}

func (m *MemoryFileSystem) lookup(op, p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[m.resolve(p)]
	if !ok {
		return nil, &fs.PathError{Op: op, Path: p, Err: fs.ErrNotExist}
	}
	return content, nil
}

func (m *MemoryFileSystem) Open(p string) (io.ReadCloser, error) {
	content, err := m.lookup("open", p)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *MemoryFileSystem) ReadFile(p string) ([]byte, error) {
	content, err := m.lookup("read", p)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), content...), nil
}

func (m *MemoryFileSystem) Stat(p string) (FileInfo, error) {
	content, err := m.lookup("stat", p)
	if err != nil {
		return nil, err
	}
	return &memoryFileInfo{
		name:    path.Base(m.resolve(p)),
		size:    int64(len(content)),
		mode:    0644,
		modTime: time.Time{},
	}, nil
}

// String lists the stored paths, for test failure messages.
func (m *MemoryFileSystem) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.files))
	for p := range m.files {
		names = append(names, p)
	}
	return fmt.Sprintf("MemoryFileSystem(%s)%v", m.root, names)
}
