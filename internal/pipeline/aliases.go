package pipeline

import (
	"path"
	"sort"
	"strings"
)

// aliasResolver rewrites tsconfig "paths" aliases in emitted JavaScript
// into relative specifiers, so the output runs under plain node.
//
// Matching follows the toolchain's module resolution: exact keys first,
// then the wildcard key with the longest prefix, ties going to the longest
// suffix. Targets are tried in order.
type aliasResolver struct {
	baseDir string // directory alias targets are relative to
	rootDir string
	outDir  string
	exact   map[string][]string
	wild    []wildcardAlias
}

type wildcardAlias struct {
	prefix, suffix string
	targets        []string
}

func newAliasResolver(baseDir, rootDir, outDir string, paths map[string][]string) *aliasResolver {
	r := &aliasResolver{
		baseDir: baseDir,
		rootDir: rootDir,
		outDir:  outDir,
		exact:   make(map[string][]string),
	}
	for key, targets := range paths {
		star := strings.IndexByte(key, '*')
		if star < 0 {
			r.exact[key] = targets
			continue
		}
		r.wild = append(r.wild, wildcardAlias{prefix: key[:star], suffix: key[star+1:], targets: targets})
	}
	sort.Slice(r.wild, func(i, j int) bool {
		a, b := r.wild[i], r.wild[j]
		if len(a.prefix) != len(b.prefix) {
			return len(a.prefix) > len(b.prefix)
		}
		return len(a.suffix) > len(b.suffix)
	})
	return r
}

func (r *aliasResolver) empty() bool {
	return r == nil || (len(r.exact) == 0 && len(r.wild) == 0)
}

// importMarkers precede a module specifier in emitted code.
var importMarkers = []string{`require("`, `require('`, `from "`, `from '`, `import("`, `import('`}

// rewrite returns text with every aliased specifier replaced. outFile is
// the absolute path the text is written to.
func (r *aliasResolver) rewrite(text, outFile string) string {
	if r.empty() {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = r.rewriteLine(line, outFile)
	}
	return strings.Join(lines, "\n")
}

func (r *aliasResolver) rewriteLine(line, outFile string) string {
	for _, marker := range importMarkers {
		from := 0
		for {
			idx := strings.Index(line[from:], marker)
			if idx < 0 {
				break
			}
			start := from + idx + len(marker)
			end := strings.IndexByte(line[start:], marker[len(marker)-1])
			if end < 0 {
				break
			}
			end += start
			spec := line[start:end]
			if resolved, ok := r.resolve(spec, outFile); ok {
				line = line[:start] + resolved + line[end:]
				end = start + len(resolved)
			}
			from = end + 1
		}
	}
	return line
}

func (r *aliasResolver) resolve(spec, outFile string) (string, bool) {
	if strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") {
		return "", false
	}
	if targets, ok := r.exact[spec]; ok {
		for _, target := range targets {
			if rel, ok := r.relative(target, outFile); ok {
				return rel, true
			}
		}
	}
	for _, w := range r.wild {
		if len(spec) < len(w.prefix)+len(w.suffix) || !strings.HasPrefix(spec, w.prefix) || !strings.HasSuffix(spec, w.suffix) {
			continue
		}
		matched := spec[len(w.prefix) : len(spec)-len(w.suffix)]
		for _, target := range w.targets {
			if rel, ok := r.relative(strings.Replace(target, "*", matched, 1), outFile); ok {
				return rel, true
			}
		}
		return "", false
	}
	return "", false
}

// relative maps an alias target to its output location and returns it as a
// specifier relative to outFile.
func (r *aliasResolver) relative(target, outFile string) (string, bool) {
	src := path.Join(r.baseDir, target)
	out := src
	if r.outDir != "" {
		out = path.Join(r.outDir, path.Base(src))
		if rel, ok := within(r.rootDir, src); ok {
			out = path.Join(r.outDir, rel)
		}
	}
	rel, ok := relPath(path.Dir(outFile), stripTSExtension(out))
	if !ok {
		return "", false
	}
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel, true
}

func stripTSExtension(p string) string {
	for _, ext := range []string{".d.ts", ".ts", ".tsx", ".mts", ".cts"} {
		if strings.HasSuffix(p, ext) {
			return strings.TrimSuffix(p, ext)
		}
	}
	return p
}

// within returns p relative to dir when p lies inside dir.
func within(dir, p string) (string, bool) {
	if dir == "" {
		return "", false
	}
	rel, ok := relPath(dir, p)
	if !ok || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// relPath is filepath.Rel for slash-separated absolute paths.
func relPath(from, to string) (string, bool) {
	if !isAbs(from) || !isAbs(to) {
		return "", false
	}
	fs := splitPath(from)
	ts := splitPath(to)
	i := 0
	for i < len(fs) && i < len(ts) && fs[i] == ts[i] {
		i++
	}
	parts := make([]string, 0, len(fs)-i+len(ts)-i)
	for range fs[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, ts[i:]...)
	if len(parts) == 0 {
		return ".", true
	}
	return strings.Join(parts, "/"), true
}

// isAbs accepts rooted paths and the "c:/" drive form the toolchain
// normalizes Windows paths to.
func isAbs(p string) bool {
	return path.IsAbs(p) || (len(p) >= 3 && p[1] == ':' && p[2] == '/')
}

func splitPath(p string) []string {
	p = strings.Trim(path.Clean(p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// inferRootDir returns the deepest directory containing every file, or ""
// when the files only share the filesystem root.
func inferRootDir(fileNames []string) string {
	if len(fileNames) == 0 {
		return ""
	}
	common := splitPath(path.Dir(fileNames[0]))
	for _, f := range fileNames[1:] {
		dir := splitPath(path.Dir(f))
		n := 0
		for n < len(common) && n < len(dir) && common[n] == dir[n] {
			n++
		}
		common = common[:n]
	}
	if len(common) == 0 || (len(common) == 1 && strings.HasSuffix(common[0], ":")) {
		return ""
	}
	root := strings.Join(common, "/")
	if !strings.HasSuffix(common[0], ":") {
		root = "/" + root
	}
	return root
}
