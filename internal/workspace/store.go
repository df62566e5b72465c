// Package workspace provides the sandboxed file store behind the desktop's
// file windows. All access to the workspace directory goes through Store,
// which validates every path before touching the filesystem.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ashureev/agentdesk/internal/domain"
)

var (
	// ErrInvalidPath is returned when a path is empty, absolute, uses "..",
	// or otherwise resolves outside the workspace root.
	ErrInvalidPath = errors.New("invalid path")
	// ErrNotFound is returned when reading or deleting a file that does not exist.
	ErrNotFound = errors.New("file not found")
)

const (
	dirPerm  fs.FileMode = 0o755
	filePerm fs.FileMode = 0o644
)

var kindByExt = map[string]domain.FileKind{
	".md":       domain.FileKindMarkdown,
	".markdown": domain.FileKindMarkdown,
	".tsx":      domain.FileKindComponent,
	".jsx":      domain.FileKindComponent,
	".txt":      domain.FileKindText,
	".csv":      domain.FileKindText,
	".log":      domain.FileKindText,
}

// KindOf infers a file kind from its extension.
func KindOf(name string) domain.FileKind {
	if kind, ok := kindByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return kind
	}
	return domain.FileKindGeneric
}

// Store is a stateless CRUD layer over a single root directory.
type Store struct {
	root string
	fs   FS
}

// NewStore creates a store rooted at dir using the OS filesystem, creating
// the directory if needed.
func NewStore(dir string) (*Store, error) {
	s, err := NewStoreWithFS(dir, OSFS{})
	if err != nil {
		return nil, err
	}
	if err := s.fs.MkdirAll(s.root, dirPerm); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return s, nil
}

// NewStoreWithFS creates a store over a custom FS. It does not touch fsys.
func NewStoreWithFS(dir string, fsys FS) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("workspace root cannot be empty")
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	return &Store{root: filepath.Clean(root), fs: fsys}, nil
}

// Root returns the absolute workspace root.
func (s *Store) Root() string {
	return s.root
}

// Resolve validates a caller-supplied relative path and returns its absolute
// location under the root. It is purely lexical and performs no I/O.
func (s *Store) Resolve(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", fmt.Errorf("%w: path is required", ErrInvalidPath)
	}
	if strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("%w: path contains NUL", ErrInvalidPath)
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`) || filepath.VolumeName(rel) != "" {
		return "", fmt.Errorf("%w: absolute paths are not allowed", ErrInvalidPath)
	}
	for _, seg := range strings.FieldsFunc(rel, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return "", fmt.Errorf("%w: parent segments are not allowed", ErrInvalidPath)
		}
	}

	abs := filepath.Join(s.root, rel)
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes the workspace", ErrInvalidPath, rel)
	}
	return abs, nil
}

// resolveFile is Resolve for operations that need a file, not the root itself.
func (s *Store) resolveFile(rel string) (string, error) {
	abs, err := s.Resolve(rel)
	if err != nil {
		return "", err
	}
	if abs == s.root {
		return "", fmt.Errorf("%w: path refers to the workspace root", ErrInvalidPath)
	}
	return abs, nil
}

func (s *Store) relative(abs string) string {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return filepath.Base(abs)
	}
	return filepath.ToSlash(rel)
}

// List returns the regular files directly under the root, sorted by name.
// Hidden files (including in-flight temp files) are skipped.
func (s *Store) List(_ context.Context) ([]domain.WorkspaceFile, error) {
	entries, err := s.fs.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list workspace: %w", err)
	}

	files := make([]domain.WorkspaceFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			slog.Debug("Skipping workspace entry", "name", e.Name(), "error", err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, domain.WorkspaceFile{
			Name:      e.Name(),
			Path:      e.Name(),
			Kind:      KindOf(e.Name()),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Read returns the content of the file at rel.
func (s *Store) Read(_ context.Context, rel string) (string, error) {
	abs, err := s.resolveFile(rel)
	if err != nil {
		return "", err
	}
	data, err := s.fs.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, s.relative(abs))
		}
		return "", fmt.Errorf("read %s: %w", s.relative(abs), err)
	}
	return string(data), nil
}

// Stat returns metadata for the file at rel.
func (s *Store) Stat(_ context.Context, rel string) (domain.WorkspaceFile, error) {
	abs, err := s.resolveFile(rel)
	if err != nil {
		return domain.WorkspaceFile{}, err
	}
	info, err := s.fs.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.WorkspaceFile{}, fmt.Errorf("%w: %s", ErrNotFound, s.relative(abs))
		}
		return domain.WorkspaceFile{}, fmt.Errorf("stat %s: %w", s.relative(abs), err)
	}
	return domain.WorkspaceFile{
		Name:      info.Name(),
		Path:      s.relative(abs),
		Kind:      KindOf(info.Name()),
		Size:      info.Size(),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Write replaces the file at rel with content, creating parent directories
// inside the workspace as needed. Concurrent writers to the same path each
// replace the whole file; the last rename wins.
func (s *Store) Write(_ context.Context, rel, content string) (time.Time, error) {
	abs, err := s.resolveFile(rel)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.fs.MkdirAll(filepath.Dir(abs), dirPerm); err != nil {
		return time.Time{}, fmt.Errorf("create parent of %s: %w", s.relative(abs), err)
	}
	if err := s.fs.WriteFile(abs, []byte(content), filePerm); err != nil {
		return time.Time{}, fmt.Errorf("write %s: %w", s.relative(abs), err)
	}
	savedAt := time.Now().UTC()
	slog.Debug("Workspace file written", "path", s.relative(abs), "bytes", len(content))
	return savedAt, nil
}

// Delete removes the file at rel.
func (s *Store) Delete(_ context.Context, rel string) error {
	abs, err := s.resolveFile(rel)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, s.relative(abs))
		}
		return fmt.Errorf("delete %s: %w", s.relative(abs), err)
	}
	slog.Debug("Workspace file deleted", "path", s.relative(abs))
	return nil
}
