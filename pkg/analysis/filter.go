package analysis

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultInclude matches every Java source file
var DefaultInclude = []string{"**/*.java"}

// DefaultIgnore skips build output and tool directories
var DefaultIgnore = []string{"**/build/**", "**/target/**", "**/out/**", "**/node_modules/**"}

type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// PathFilter decides which files take part in a workspace and which of
// them may be written.
type PathFilter struct {
	include  []compiledPattern
	ignore   []compiledPattern
	readonly []compiledPattern
}

// NewPathFilter compiles the three pattern lists. Empty include falls back
// to DefaultInclude.
func NewPathFilter(include, ignore, readonly []string) (*PathFilter, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}
	pf := &PathFilter{}
	var err error
	if pf.include, err = compilePatterns(include); err != nil {
		return nil, err
	}
	if pf.ignore, err = compilePatterns(ignore); err != nil {
		return nil, err
	}
	if pf.readonly, err = compilePatterns(readonly); err != nil {
		return nil, err
	}
	return pf, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
		out = append(out, compiledPattern{pattern: pattern, glob: g})
	}
	return out, nil
}

// Accept reports whether relPath (slash separated, relative to the root)
// is a source file of the workspace.
func (pf *PathFilter) Accept(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	if pf.SkipDir(relPath) {
		return false
	}
	return matchesAny(relPath, pf.include)
}

// SkipDir reports whether a directory, or a file inside it, is ignored
func (pf *PathFilter) SkipDir(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	if relPath == "." || relPath == "" {
		return false
	}
	for _, seg := range strings.Split(relPath, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return true
		}
	}
	// a leading slash lets "**/build/**" match "build/..." at the root
	for _, p := range []string{relPath, "/" + relPath} {
		if matchesAny(p, pf.ignore) || matchesAny(p+"/**", pf.ignore) {
			return true
		}
	}
	return false
}

// ReadOnly reports whether relPath matches a read-only pattern
func (pf *PathFilter) ReadOnly(relPath string) bool {
	return matchesAny(filepath.ToSlash(relPath), pf.readonly)
}

func matchesAny(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// "**/*.java" should also match "A.java" at the root
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if strings.HasPrefix(cp.pattern, "**/") {
				if g, err := glob.Compile(strings.TrimPrefix(cp.pattern, "**/"), '/'); err == nil && g.Match(path) {
					return true
				}
			}
		}
	}
	return false
}
