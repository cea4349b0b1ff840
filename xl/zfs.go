package xl

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Storage is the interface for writing package parts.
// Implementations can write to ZIP archives, directories or memory.
type Storage interface {
	WriteBlob(path string, blob []byte) error
}

// DirStorage writes parts to a directory tree, handy for inspecting the
// generated XML.
type DirStorage struct {
	Dir string // Root directory path
}

func NewDirStorage(dir string) *DirStorage {
	return &DirStorage{
		Dir: dir,
	}
}

// WriteBlob creates any missing parent directories.
func (ds *DirStorage) WriteBlob(path string, blob []byte) error {
	path = strings.TrimPrefix(path, "/")
	fn := filepath.Join(ds.Dir, filepath.FromSlash(path))
	err := os.MkdirAll(filepath.Dir(fn), 0777)
	if err != nil {
		return err
	}
	return os.WriteFile(fn, blob, 0666)
}

// ZipStorage writes parts into a ZIP archive, producing an .xlsx file.
type ZipStorage struct {
	z *zip.Writer
}

func NewZipStorage(out io.Writer) *ZipStorage {
	return &ZipStorage{z: zip.NewWriter(out)}
}

func (zs *ZipStorage) WriteBlob(path string, blob []byte) error {
	path = strings.TrimPrefix(path, "/")
	f, err := zs.z.Create(path)
	if err != nil {
		return err
	}
	_, err = f.Write(blob)
	return err
}

// Close finalizes the archive. The output is not a valid package until
// Close returns nil.
func (zs *ZipStorage) Close() error {
	return zs.z.Close()
}

// MemStorage keeps parts in memory, keyed by their path without the
// leading slash.
type MemStorage struct {
	mu    sync.Mutex
	parts map[string][]byte
}

func NewMemStorage() *MemStorage {
	return &MemStorage{parts: map[string][]byte{}}
}

func (ms *MemStorage) WriteBlob(path string, blob []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.parts[strings.TrimPrefix(path, "/")] = append([]byte(nil), blob...)
	return nil
}

// Part returns a stored part.
func (ms *MemStorage) Part(path string) ([]byte, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	b, ok := ms.parts[strings.TrimPrefix(path, "/")]
	return b, ok
}

// Paths lists stored parts in sorted order.
func (ms *MemStorage) Paths() []string {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var paths []string
	enumerate(ms.parts, func(p string, _ []byte) error {
		paths = append(paths, p)
		return nil
	})
	return paths
}
