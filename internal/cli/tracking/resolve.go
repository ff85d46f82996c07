package tracking

import (
	"fmt"
	"strings"

	"github.com/julianstephens/stride/internal/cli"
	"github.com/julianstephens/stride/internal/storage"
)

// resolve picks the single item whose ID matches ref exactly, or whose ID
// prefix or case-insensitive name matches it.
func resolve[T any](kind, ref string, items []T, id, name func(T) string) (T, error) {
	var zero T
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return zero, fmt.Errorf("%s reference cannot be empty", kind)
	}

	var matches []T
	for _, it := range items {
		if id(it) == ref {
			return it, nil
		}
		if strings.HasPrefix(id(it), ref) || strings.EqualFold(name(it), ref) {
			matches = append(matches, it)
		}
	}

	switch len(matches) {
	case 0:
		return zero, fmt.Errorf("%s %q: %w", kind, ref, storage.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return zero, fmt.Errorf("%s %q matches %d items: %w", kind, ref, len(matches), cli.ErrAmbiguous)
	}
}
