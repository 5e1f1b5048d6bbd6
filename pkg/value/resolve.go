package value

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
)

const (
	SplitToken     = "."
	IndexOpenChar  = "["
	IndexCloseChar = "]"
	ExpressionChar = "$"

	// LanguageKey marks language-scoped entries in a sequence.
	LanguageKey = "lang"
)

var (
	ErrNotFound         = errors.New("path not found")
	ErrMalformedIndex   = errors.New("malformed index key")
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	ErrNullSegment      = errors.New("null value along path")
	ErrEmptyPath        = errors.New("empty path")
)

type resolveOptions struct {
	language string
}

type ResolveOption func(*resolveOptions)

// WithLanguage narrows sequences of language-scoped entries (mappings with a
// "lang" key) to entries of the given language before indexing into them.
func WithLanguage(code string) ResolveOption {
	return func(o *resolveOptions) {
		o.language = strings.ToLower(code)
	}
}

// Resolve walks path through v. Reaching null anywhere along the path, the
// leaf included, fails with ErrNullSegment. An empty string resolves.
func Resolve(v Value, path string, opts ...ResolveOption) (Value, error) {
	options := resolveOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if path == "" {
		return Absent(), ErrEmptyPath
	}
	if strings.HasPrefix(path, ExpressionChar) {
		return resolveExpression(v, path)
	}

	segments, err := splitPath(path)
	if err != nil {
		return Absent(), err
	}

	current := v
	for i, segment := range segments {
		if current.IsNull() {
			return Absent(), fmt.Errorf("%w at '%s'", ErrNullSegment, strings.Join(segments[:i], SplitToken))
		}

		current, err = step(current, segment, options)
		if err != nil {
			return Absent(), fmt.Errorf("%w: '%s'", err, path)
		}
	}

	if current.IsNull() {
		return Absent(), fmt.Errorf("%w at '%s'", ErrNullSegment, path)
	}
	return current, nil
}

// ResolveFirst tries each path in order and returns the first that resolves,
// along with the path that matched.
func ResolveFirst(v Value, paths []string, opts ...ResolveOption) (Value, string, bool) {
	for _, path := range paths {
		resolved, err := Resolve(v, path, opts...)
		if err == nil {
			return resolved, path, true
		}
	}
	return Absent(), "", false
}

// Lookup is Resolve without the error.
func Lookup(v Value, path string, opts ...ResolveOption) Value {
	resolved, err := Resolve(v, path, opts...)
	if err != nil {
		return Absent()
	}
	return resolved
}

func step(current Value, segment string, options resolveOptions) (Value, error) {
	switch current.Kind() {
	case KindMapping:
		child := current.Get(segment)
		if child.IsAbsent() {
			return Absent(), fmt.Errorf("%w: key '%s'", ErrNotFound, segment)
		}
		return child, nil
	case KindSequence:
		index, err := strconv.Atoi(segment)
		if err != nil {
			return Absent(), fmt.Errorf("%w: '%s' is not an index", ErrNotFound, segment)
		}
		items := filterLanguage(current.Items(), options.language)
		if index < 0 || index >= len(items) {
			return Absent(), fmt.Errorf("%w: %d", ErrIndexOutOfBounds, index)
		}
		return items[index], nil
	}
	return Absent(), fmt.Errorf("%w: cannot descend into %s at '%s'", ErrNotFound, current.Kind(), segment)
}

func filterLanguage(items []Value, language string) []Value {
	if language == "" {
		return items
	}

	filtered := make([]Value, 0, len(items))
	scoped := false
	for _, item := range items {
		lang := item.Get(LanguageKey)
		if lang.IsAbsent() {
			continue
		}
		scoped = true
		if strings.EqualFold(lang.Str(), language) {
			filtered = append(filtered, item)
		}
	}

	if !scoped {
		return items
	}
	return filtered
}

// splitPath turns "a.b[0].c" into ["a", "b", "0", "c"].
func splitPath(path string) ([]string, error) {
	parts := strings.Split(path, SplitToken)
	segments := make([]string, 0, len(parts))

	for _, part := range parts {
		key, indexes, err := parseIndexes(part)
		if err != nil {
			return nil, err
		}
		if key != "" {
			segments = append(segments, key)
		}
		segments = append(segments, indexes...)
	}

	if len(segments) == 0 {
		return nil, ErrEmptyPath
	}
	return segments, nil
}

func parseIndexes(part string) (string, []string, error) {
	open := strings.Index(part, IndexOpenChar)
	if open == -1 {
		if strings.Contains(part, IndexCloseChar) {
			return "", nil, fmt.Errorf("%w: '%s'", ErrMalformedIndex, part)
		}
		return part, nil, nil
	}

	key := part[:open]
	rest := part[open:]
	var indexes []string
	for rest != "" {
		if !strings.HasPrefix(rest, IndexOpenChar) {
			return "", nil, fmt.Errorf("%w: '%s'", ErrMalformedIndex, part)
		}
		end := strings.Index(rest, IndexCloseChar)
		if end == -1 {
			return "", nil, fmt.Errorf("%w: '%s'", ErrMalformedIndex, part)
		}
		index := rest[1:end]
		if _, err := strconv.Atoi(index); err != nil {
			return "", nil, fmt.Errorf("%w: '%s'", ErrMalformedIndex, part)
		}
		indexes = append(indexes, index)
		rest = rest[end+1:]
	}

	return key, indexes, nil
}

func resolveExpression(v Value, path string) (Value, error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return Absent(), fmt.Errorf("invalid expression '%s': %w", path, err)
	}

	results := expr.Get(v.Native())
	if len(results) == 0 || results[0] == nil {
		return Absent(), fmt.Errorf("%w: '%s'", ErrNotFound, path)
	}
	return From(results[0]), nil
}
