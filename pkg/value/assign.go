package value

import (
	"fmt"
	"strings"
)

// Assign sets val at a dotted path inside m, creating intermediate maps. An
// existing non-map node along the path is replaced.
func Assign(m map[string]any, path string, val any) error {
	if m == nil {
		return fmt.Errorf("cannot assign '%s' into a nil map", path)
	}
	if path == "" {
		return ErrEmptyPath
	}

	key, rest, nested := strings.Cut(path, SplitToken)
	if !nested {
		m[key] = val
		return nil
	}

	child, ok := m[key].(map[string]any)
	if !ok {
		child = map[string]any{}
		m[key] = child
	}
	return Assign(child, rest, val)
}

// Fetch reads a dotted path from a plain map built by Assign.
func Fetch(m map[string]any, path string) (any, bool) {
	key, rest, nested := strings.Cut(path, SplitToken)
	val, ok := m[key]
	if !ok {
		return nil, false
	}
	if !nested {
		return val, true
	}
	child, ok := val.(map[string]any)
	if !ok {
		return nil, false
	}
	return Fetch(child, rest)
}
