package buildcache

import (
	"fmt"
	"strings"
)

// SplitInput splits a raw input value into a path spec.
//
// Values are separated by newlines or commas. Surrounding whitespace is
// trimmed, empty values are dropped, and only the first occurrence of a
// repeated value is kept.
func SplitInput(s string) PathSpec {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == ','
	})
	seen := make(map[string]struct{}, len(fields))
	spec := make(PathSpec, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		spec = append(spec, f)
	}
	return spec
}

// ResolvePathSpec returns saved when it is non-empty and otherwise the split
// input. It returns ErrMissingInput when both are empty and required is set.
func ResolvePathSpec(saved PathSpec, input string, required bool) (PathSpec, error) {
	if len(saved) > 0 {
		return saved, nil
	}
	spec := SplitInput(input)
	if len(spec) == 0 && required {
		return nil, fmt.Errorf("%w: path", ErrMissingInput)
	}
	return spec, nil
}

// ResolveKey applies the same precedence as ResolvePathSpec to the cache key.
// The key is used exactly as given.
func ResolveKey(saved, input string, required bool) (string, error) {
	if saved != "" {
		return saved, nil
	}
	if input == "" && required {
		return "", fmt.Errorf("%w: key", ErrMissingInput)
	}
	return input, nil
}
