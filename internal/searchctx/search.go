// Package searchctx is the Engine's Search/Context collaborator (spec
// §6): searchRelevantFiles(query) -> paths, assembleContext(paths,
// tokenBudget) -> string.
//
// Grounded on the teacher's internal/project file-listing conventions
// and its existing dependency on bmatcuk/doublestar/v4 for wildcard
// pattern matching (internal/agent/agent.go uses it for tool-enablement
// glob patterns; this package reuses it for file search globs).
package searchctx

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// charsPerToken is a conservative estimate used to convert a token budget
// into a byte budget without pulling in a full tokenizer — the context
// assembly step only needs an approximate cap, not exact token counts
// (those come from the LLM collaborator's own usage accounting).
const charsPerToken = 4

// FileSystem abstracts workspace traversal so tests don't need a real
// directory tree.
type FileSystem interface {
	// Walk visits every regular file under root, relative-pathed.
	Walk(root string, fn func(relPath string) error) error
	ReadFile(path string) ([]byte, error)
}

// DirFileSystem is a FileSystem backed by a real directory.
type DirFileSystem struct {
	Root string
}

func NewDirFileSystem(root string) *DirFileSystem { return &DirFileSystem{Root: root} }

func (d *DirFileSystem) Walk(root string, fn func(relPath string) error) error {
	base := filepath.Join(d.Root, root)
	return filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel))
	})
}

func (d *DirFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.Root, filepath.FromSlash(path)))
}

// Searcher implements the Search/Context collaborator.
type Searcher struct {
	fs FileSystem
}

// New returns a Searcher over fs.
func New(fs FileSystem) *Searcher {
	return &Searcher{fs: fs}
}

// SearchRelevantFiles returns workspace-relative paths matching query,
// which may be a doublestar glob ("**/*.go") or a bare substring to
// match against path components (falling back to a glob of
// "**/*query*").
func (s *Searcher) SearchRelevantFiles(query string) ([]string, error) {
	pattern := query
	if !strings.ContainsAny(query, "*?[{") {
		pattern = fmt.Sprintf("**/*%s*", query)
	}

	var matches []string
	err := s.fs.Walk(".", func(relPath string) error {
		ok, err := doublestar.Match(pattern, relPath)
		if err != nil {
			return err
		}
		if ok {
			matches = append(matches, relPath)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searchctx: walk failed: %w", err)
	}

	sort.Strings(matches)
	return matches, nil
}

// AssembleContext reads paths in order and concatenates their content
// (each preceded by a path header) until tokenBudget (approximated via
// charsPerToken) would be exceeded, then stops — later paths are simply
// omitted rather than truncated mid-file, so the context the LLM sees is
// always a set of whole files.
func (s *Searcher) AssembleContext(paths []string, tokenBudget int) (string, error) {
	budget := tokenBudget * charsPerToken
	var b strings.Builder
	used := 0

	for _, p := range paths {
		content, err := s.fs.ReadFile(p)
		if err != nil {
			continue // unreadable/missing file: skip rather than fail the whole assembly
		}
		section := fmt.Sprintf("--- %s ---\n%s\n\n", p, string(content))
		if used+len(section) > budget && used > 0 {
			break
		}
		b.WriteString(section)
		used += len(section)
	}

	return b.String(), nil
}
