package sources

import "iter"

// Source enumerates candidate files for a batch. Each entry is either a path
// or an error describing an entry that could not be read.
type Source interface {
	All() iter.Seq2[string, error]
	Pattern() string
}

var _ Source = (*Glob)(nil)
