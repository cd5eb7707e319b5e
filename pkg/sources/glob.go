// Package sources enumerates the images a batch will convert.
package sources

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultPattern matches the files converted when no pattern is configured.
const DefaultPattern = "*.jpeg"

// Glob lists the entries of a single directory whose names match a shell
// glob pattern. It does not descend into subdirectories.
//
// A Glob is consumed by iterating it: the directory is read when iteration
// starts and a second iteration yields nothing.
type Glob struct {
	dir     string
	pattern string

	once sync.Once
}

// NewGlob validates pattern and returns an enumerator for dir. Only a
// malformed pattern is an error here; the directory is not touched until
// iteration.
func NewGlob(dir, pattern string) (*Glob, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if strings.ContainsRune(pattern, filepath.Separator) {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, filepath.ErrBadPattern)
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	return &Glob{dir: dir, pattern: pattern}, nil
}

// Pattern returns the full pattern being expanded, e.g. "data/*.jpeg".
func (g *Glob) Pattern() string {
	return filepath.Join(g.dir, g.pattern)
}

// All yields matching paths in lexical order of file name. Each element is
// either a path with a nil error or an empty path with the error that made
// the entry unreadable. A missing directory yields nothing.
func (g *Glob) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		first := false
		g.once.Do(func() { first = true })
		if !first {
			return
		}

		entries, err := os.ReadDir(g.dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return
			}
			// os.ReadDir returns the entries it managed to read alongside
			// the error, so report it and keep going with those.
			if !yield("", &EntryError{Path: g.dir, Err: err}) {
				return
			}
		}

		for _, entry := range entries {
			matched, _ := filepath.Match(g.pattern, entry.Name())
			if !matched {
				continue
			}
			path := filepath.Join(g.dir, entry.Name())
			if _, err := entry.Info(); err != nil {
				if !yield("", &EntryError{Path: path, Err: err}) {
					return
				}
				continue
			}
			if !yield(path, nil) {
				return
			}
		}
	}
}

// EntryError reports a directory entry that could not be read while
// expanding the pattern.
type EntryError struct {
	Path string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("attempting to read %s: %v", e.Path, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }
