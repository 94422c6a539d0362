package blob

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FS implements Provider backed by a local vault directory. Content types
// are accepted for interface compatibility but not persisted; the local
// filesystem has no object metadata.
type FS struct {
	root string // absolute path to vault directory
}

// NewFS creates an FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("blob: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("blob: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("blob: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// safePath resolves a key against the vault root and rejects any result
// that escapes it (directory traversal).
func (f *FS) safePath(key string) (string, error) {
	if key == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("blob: absolute keys not allowed: %s", key)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("blob: resolve key: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("blob: key escapes vault root: %s", key)
	}
	return abs, nil
}

// Get returns the content at key, or nil when the key is absent.
func (f *FS) Get(key string) ([]byte, error) {
	abs, err := f.safePath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("blob: get %s: %w", key, err)
	}
	return data, nil
}

// Put writes content atomically: temp file, fsync, then rename into place.
func (f *FS) Put(key string, content []byte, _ string) error {
	abs, err := f.safePath(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("blob: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".vellum-tmp-*")
	if err != nil {
		return fmt.Errorf("blob: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("blob: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("blob: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("blob: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("blob: rename: %w", err)
	}
	success = true
	return nil
}

// Exists reports whether key holds an object.
func (f *FS) Exists(key string) (bool, error) {
	abs, err := f.safePath(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("blob: stat %s: %w", key, err)
	}
	return !info.IsDir(), nil
}

// List walks the vault and returns every key under prefix.
func (f *FS) List(prefix string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(f.root, p)
		if relErr != nil {
			return relErr
		}
		key := filepath.ToSlash(rel)
		if prefix == "" || strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("blob: list: %w", err)
	}
	return out, nil
}
