// Package listing is the directory listing collaborator. It answers "what are
// the direct children of this folder" and is re-queried on demand; nothing
// here caches directory structure.
package listing

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is one child of a listed folder.
type Entry struct {
	Path  string
	IsDir bool
}

// Lister lists the direct children of a folder.
type Lister interface {
	List(ctx context.Context, dir string) ([]Entry, error)
}

// OS lists folders from the local filesystem. Hidden entries are skipped and
// results are sorted by name, directories first.
type OS struct{}

func (OS) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		isDir := entry.IsDir()
		if entry.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(dir, name)); err == nil {
				isDir = info.IsDir()
			}
		}
		out = append(out, Entry{Path: filepath.Join(dir, name), IsDir: isDir})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDir != out[j].IsDir {
			return out[i].IsDir
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// Walk visits root and every folder below it, depth first, calling fn with
// each folder and its children. Folders that cannot be read are skipped, and a
// folder reached again through a symlink is visited only once.
func Walk(ctx context.Context, lister Lister, root string, fn func(dir string, children []Entry) error) error {
	seen := make(map[string]struct{})
	var walk func(dir string) error
	walk = func(dir string) error {
		key := realPath(dir)
		if _, ok := seen[key]; ok {
			return nil
		}
		seen[key] = struct{}{}

		children, err := lister.List(ctx, dir)
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil
			}
			return err
		}
		if err := fn(dir, children); err != nil {
			return err
		}
		for _, child := range children {
			if !child.IsDir {
				continue
			}
			if err := walk(child.Path); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}

// realPath resolves symlinks in dir. Paths that do not exist on disk, as with
// in-memory listers, are compared cleaned.
func realPath(dir string) string {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return resolved
	}
	return filepath.Clean(dir)
}
