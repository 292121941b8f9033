package pipeline

import (
	"path"
	"strings"
)

// matchesGlob reports whether filePath is selected by the include and
// exclude patterns. An empty include list selects every file. Exclusions
// are checked first.
//
// filePath should be slash separated and relative to the project root.
// Patterns support "*" and "?" within a segment and "**" across segments.
// A pattern without a slash matches the file's base name.
func matchesGlob(filePath string, include, exclude []string) bool {
	for _, pattern := range exclude {
		if globMatch(filePath, pattern) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pattern := range include {
		if globMatch(filePath, pattern) {
			return true
		}
	}
	return false
}

func globMatch(filePath, pattern string) bool {
	pattern = strings.TrimPrefix(pattern, "./")
	if !strings.Contains(pattern, "/") {
		matched, _ := path.Match(pattern, path.Base(filePath))
		return matched
	}
	return matchSegments(strings.Split(filePath, "/"), strings.Split(pattern, "/"))
}

// matchSegments matches path segments against pattern segments, letting a
// "**" segment consume zero or more path segments.
func matchSegments(segs, pats []string) bool {
	for len(pats) > 0 {
		if pats[0] == "**" {
			rest := pats[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(segs); i++ {
				if matchSegments(segs[i:], rest) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if matched, _ := path.Match(pats[0], segs[0]); !matched {
			return false
		}
		segs, pats = segs[1:], pats[1:]
	}
	return len(segs) == 0
}
