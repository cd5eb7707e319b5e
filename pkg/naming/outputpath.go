// Package naming derives destination paths for converted images.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Strategy derives a destination path from a source path.
type Strategy interface {
	OutputPath(src string) string
}

// ExtensionStrategy replaces only the final extension of the file name, so
// directory names are never rewritten.
type ExtensionStrategy struct {
	Ext string // e.g. ".png"
}

// OutputPath implements Strategy.
func (s ExtensionStrategy) OutputPath(src string) string {
	return ReplaceExt(src, s.Ext)
}

// SubstringStrategy replaces the first literal occurrence of From anywhere in
// the path. This is the historical behaviour: a directory such as
// "a.jpeg.d/" is rewritten too.
type SubstringStrategy struct {
	From string // e.g. ".jpeg"
	To   string // e.g. ".png"
}

// OutputPath implements Strategy.
func (s SubstringStrategy) OutputPath(src string) string {
	return strings.Replace(src, s.From, s.To, 1)
}

// ReplaceExt swaps the trailing extension of path's base name for ext. A
// base name without an extension gets ext appended. Leading dots of hidden
// files are not treated as an extension separator.
func ReplaceExt(path, ext string) string {
	dir, base := filepath.Split(path)
	trimmed := strings.TrimLeft(base, ".")
	prefix := base[:len(base)-len(trimmed)]
	if i := strings.LastIndexByte(trimmed, '.'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return dir + prefix + trimmed + ext
}

// New returns the strategy registered under name ("extension" or
// "substring"). from and to are extensions with a leading dot.
func New(name, from, to string) (Strategy, error) {
	switch name {
	case "", "extension":
		return ExtensionStrategy{Ext: to}, nil
	case "substring":
		return SubstringStrategy{From: from, To: to}, nil
	default:
		return nil, fmt.Errorf("unknown naming strategy %q", name)
	}
}
