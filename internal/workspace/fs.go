package workspace

import (
	"io/fs"
	"os"

	"github.com/moby/sys/atomicwriter"
)

// FS is the set of filesystem calls the store makes. Every call receives a
// path that has already passed confinement.
type FS interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error
	Remove(name string) error
	ReadDir(name string) ([]fs.DirEntry, error)
	Stat(name string) (fs.FileInfo, error)
}

// OSFS is the disk-backed FS. Writes replace the target atomically so a
// concurrent reader or writer never observes a partially written file.
type OSFS struct{}

// ReadFile implements FS.
func (OSFS) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// WriteFile implements FS using a temp file and rename in the same directory.
func (OSFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return atomicwriter.WriteFile(name, data, perm)
}

// MkdirAll implements FS.
func (OSFS) MkdirAll(path string, perm fs.FileMode) error { return os.MkdirAll(path, perm) }

// Remove implements FS.
func (OSFS) Remove(name string) error { return os.Remove(name) }

// ReadDir implements FS.
func (OSFS) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }

// Stat implements FS.
func (OSFS) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
