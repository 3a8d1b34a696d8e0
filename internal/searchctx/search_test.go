package searchctx

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memFS struct {
	files map[string]string
}

func (m *memFS) Walk(root string, fn func(relPath string) error) error {
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func (m *memFS) ReadFile(path string) ([]byte, error) {
	c, ok := m.files[path]
	if !ok {
		return nil, assert.AnError
	}
	return []byte(c), nil
}

func TestSearchRelevantFiles_GlobPattern(t *testing.T) {
	fs := &memFS{files: map[string]string{
		"internal/foo.go":      "package internal",
		"internal/foo_test.go": "package internal",
		"cmd/main.go":          "package main",
	}}
	s := New(fs)

	matches, err := s.SearchRelevantFiles("**/*.go")
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestSearchRelevantFiles_SubstringQuery(t *testing.T) {
	fs := &memFS{files: map[string]string{
		"internal/handler.go": "x",
		"internal/router.go":  "x",
	}}
	s := New(fs)

	matches, err := s.SearchRelevantFiles("handler")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "internal/handler.go", matches[0])
}

func TestAssembleContext_StopsAtBudget(t *testing.T) {
	fs := &memFS{files: map[string]string{
		"a.go": strings.Repeat("a", 100),
		"b.go": strings.Repeat("b", 100),
	}}
	s := New(fs)

	// Budget in tokens; charsPerToken=4, so ~20 tokens covers one file's
	// header+content comfortably but not two.
	out, err := s.AssembleContext([]string{"a.go", "b.go"}, 20)
	require.NoError(t, err)
	assert.Contains(t, out, "a.go")
	assert.NotContains(t, out, "b.go")
}

func TestAssembleContext_AlwaysIncludesAtLeastOneFile(t *testing.T) {
	fs := &memFS{files: map[string]string{"a.go": strings.Repeat("a", 10000)}}
	s := New(fs)

	out, err := s.AssembleContext([]string{"a.go"}, 1)
	require.NoError(t, err)
	assert.Contains(t, out, "a.go")
}

func TestAssembleContext_SkipsUnreadableFiles(t *testing.T) {
	fs := &memFS{files: map[string]string{"a.go": "present"}}
	s := New(fs)

	out, err := s.AssembleContext([]string{"missing.go", "a.go"}, 1000)
	require.NoError(t, err)
	assert.Contains(t, out, "present")
	assert.NotContains(t, out, "missing.go")
}
