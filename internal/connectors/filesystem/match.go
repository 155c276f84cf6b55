package filesystem

import (
	"path"
	"strings"
)

// included reports whether a file name matches any include pattern. No
// patterns means everything is included.
func included(patterns []string, name string) bool {
	if len(patterns) == 0 {
		return true
	}
	name = strings.ToLower(name)
	for _, p := range patterns {
		if ok, _ := path.Match(strings.ToLower(p), name); ok {
			return true
		}
	}
	return false
}

// excluded reports whether a slash-separated path relative to the scope root
// matches an exclude pattern. Patterns without a slash match any single
// path segment; "dir/**" also matches the directory itself.
func excluded(patterns []string, rel string, isDir bool) bool {
	rel = strings.ToLower(rel)
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimPrefix(p, "/"))
		if !strings.Contains(p, "/") {
			if matchAnySegment(p, rel) {
				return true
			}
			continue
		}
		if matchGlob(p, rel) {
			return true
		}
		if isDir && strings.HasSuffix(p, "/**") && matchGlob(strings.TrimSuffix(p, "/**"), rel) {
			return true
		}
	}
	return false
}

func matchAnySegment(pattern, rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if ok, _ := path.Match(pattern, seg); ok {
			return true
		}
	}
	return false
}

// matchGlob matches a slash-separated path against a pattern where a "**"
// segment stands for zero or more path segments.
func matchGlob(pattern, name string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(name, "/"))
}

func matchSegments(pattern, name []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			for i := 0; i <= len(name); i++ {
				if matchSegments(rest, name[i:]) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 {
			return false
		}
		if ok, _ := path.Match(pattern[0], name[0]); !ok {
			return false
		}
		pattern, name = pattern[1:], name[1:]
	}
	return len(name) == 0
}
