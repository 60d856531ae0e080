// Package glob expands cache path patterns into concrete filesystem paths.
//
// Patterns follow moby/patternmatcher syntax: '*', '?', and '[...]' match
// within one path element, '**' matches any number of elements, and a leading
// '!' excludes paths matched by earlier patterns. A leading '~' refers to the
// home directory.
//
// Expansion is literal: a pattern that matches a directory yields the
// directory itself, not its descendants. Descendants of a matched directory
// are not reported separately. A pattern ending in a bare '**' yields the
// directory it starts from unless exclusions are present, in which case the
// remaining descendants are reported instead.
package glob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/moby/patternmatcher"
)

// Expand returns the sorted, de-duplicated paths matched by patterns.
//
// Relative patterns are resolved against the working directory and yield
// relative paths; absolute patterns yield absolute paths. Symbolic links are
// reported but not followed.
func Expand(ctx context.Context, patterns []string) ([]string, error) {
	cleaned, err := normalize(patterns)
	if err != nil {
		return nil, err
	}
	if len(cleaned) == 0 {
		return nil, nil
	}

	pm, err := patternmatcher.New(cleaned)
	if err != nil {
		return nil, fmt.Errorf("parse patterns: %w", err)
	}

	e := &expander{pm: pm, limit: depthLimit(cleaned), found: make(map[string]struct{})}
	for _, p := range cleaned {
		if strings.HasPrefix(p, "!") {
			e.excludes = true
		}
	}
	for _, p := range cleaned {
		if strings.HasPrefix(p, "!") {
			continue
		}
		if err := e.expand(ctx, p); err != nil {
			return nil, err
		}
	}

	out := make([]string, 0, len(e.found))
	for p := range e.found {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

// normalize trims patterns, expands '~', and cleans each path while keeping
// the exclusion marker.
func normalize(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		exclude := strings.HasPrefix(p, "!")
		p = strings.TrimPrefix(p, "!")
		var err error
		p, err = expandHome(p)
		if err != nil {
			return nil, err
		}
		p = filepath.Clean(p)
		if exclude {
			p = "!" + p
		}
		out = append(out, p)
	}
	return out, nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, "~"+string(filepath.Separator)) {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", p, err)
	}
	return filepath.Join(home, p[1:]), nil
}

// depthLimit returns the deepest element count any pattern can match, or -1
// when a '**' pattern makes the depth unbounded.
func depthLimit(patterns []string) int {
	limit := 0
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			continue
		}
		if strings.Contains(p, "**") {
			return -1
		}
		limit = max(limit, depth(p))
	}
	return limit
}

func depth(p string) int {
	return len(strings.Split(p, string(filepath.Separator)))
}

// hasMeta reports whether s contains pattern syntax.
func hasMeta(s string) bool {
	magic := `*?[`
	if filepath.Separator != '\\' {
		magic += `\`
	}
	return strings.ContainsAny(s, magic)
}

// root returns the longest leading run of literal path elements in p.
func root(p string) string {
	sep := string(filepath.Separator)
	elems := strings.Split(p, sep)
	i := 0
	for i < len(elems) && !hasMeta(elems[i]) {
		i++
	}
	switch {
	case i == 0:
		return "."
	case i == 1 && elems[0] == "":
		return sep
	default:
		return strings.Join(elems[:i], sep)
	}
}

type expander struct {
	pm       *patternmatcher.PatternMatcher
	limit    int
	excludes bool
	found    map[string]struct{}
}

func (e *expander) matches(path string) (bool, error) {
	ok, err := e.pm.MatchesOrParentMatches(path)
	if err != nil {
		return false, fmt.Errorf("match %s: %w", path, err)
	}
	return ok, nil
}

// expand adds the matches of a single include pattern.
func (e *expander) expand(ctx context.Context, pattern string) error {
	if !hasMeta(pattern) {
		if _, err := os.Lstat(pattern); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("stat %s: %w", pattern, err)
		}
		ok, err := e.matches(pattern)
		if err != nil {
			return err
		}
		if ok {
			e.found[pattern] = struct{}{}
		}
		return nil
	}

	start := root(pattern)
	if start != "." && !e.excludes && pattern == filepath.Join(start, "**") {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("expand %s: %w", pattern, err)
		}
		info, err := os.Lstat(start)
		switch {
		case err == nil && info.IsDir():
			e.found[start] = struct{}{}
			return nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("stat %s: %w", start, err)
		}
	}

	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == start && errors.Is(walkErr, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == start {
			return nil
		}

		ok, err := e.matches(path)
		if err != nil {
			return err
		}
		if ok {
			e.found[path] = struct{}{}
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() && e.limit >= 0 && depth(path) >= e.limit {
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("expand %s: %w", pattern, err)
	}
	return nil
}
