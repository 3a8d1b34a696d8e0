package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgepilot/agentcore/internal/domain"
	"github.com/forgepilot/agentcore/internal/patch"
)

type memWorkspace struct {
	files map[string][]byte
}

func newMemWorkspace() *memWorkspace { return &memWorkspace{files: map[string][]byte{}} }

func (m *memWorkspace) ReadFile(path string) ([]byte, bool, error) {
	c, ok := m.files[path]
	if !ok {
		return nil, false, nil
	}
	return c, true, nil
}

func (m *memWorkspace) WriteFile(path string, content []byte) error {
	m.files[path] = content
	return nil
}

func (m *memWorkspace) DeleteFile(path string) error {
	delete(m.files, path)
	return nil
}

func newExecutor(ws *memWorkspace) *Executor {
	return New(patch.New(ws), ws, ".")
}

func TestExecute_Create(t *testing.T) {
	ws := newMemWorkspace()
	e := newExecutor(ws)

	result, err := e.Execute(context.Background(), &domain.FileOperation{
		Type: domain.OpCreate, Path: "a.txt", Content: "hello",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "a.txt")
	assert.Equal(t, []byte("hello"), ws.files["a.txt"])
}

func TestExecute_Delete(t *testing.T) {
	ws := newMemWorkspace()
	ws.files["a.txt"] = []byte("x")
	e := newExecutor(ws)

	result, err := e.Execute(context.Background(), &domain.FileOperation{
		Type: domain.OpDelete, Path: "a.txt",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "deleted")
	_, exists, _ := ws.ReadFile("a.txt")
	assert.False(t, exists)
}

func TestExecute_SearchReplace(t *testing.T) {
	ws := newMemWorkspace()
	ws.files["a.txt"] = []byte("line one\nline two\n")
	e := newExecutor(ws)

	result, err := e.Execute(context.Background(), &domain.FileOperation{
		Type: domain.OpEdit, Path: "a.txt", Search: "line one", Replace: "line ONE",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "updated")
	assert.Equal(t, "line ONE\nline two\n", string(ws.files["a.txt"]))
}

func TestExecute_SearchNotFoundPropagatesError(t *testing.T) {
	ws := newMemWorkspace()
	ws.files["a.txt"] = []byte("line one\n")
	e := newExecutor(ws)

	_, err := e.Execute(context.Background(), &domain.FileOperation{
		Type: domain.OpEdit, Path: "a.txt", Search: "nonexistent", Replace: "x",
	})
	assert.Error(t, err)
}

func TestReadFile_Exists(t *testing.T) {
	ws := newMemWorkspace()
	ws.files["a.txt"] = []byte("content here")
	e := newExecutor(ws)

	content, err := e.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "content here", content)
}

func TestReadFile_Missing(t *testing.T) {
	ws := newMemWorkspace()
	e := newExecutor(ws)

	_, err := e.ReadFile("missing.txt")
	assert.Error(t, err)
}

func TestExecute_RunCommand(t *testing.T) {
	ws := newMemWorkspace()
	e := newExecutor(ws)

	result, err := e.Execute(context.Background(), &domain.FileOperation{
		Type: domain.OpRun, Command: "echo hello",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "hello")
}

func TestExecute_RunCommandFailureReturnsOutputAndError(t *testing.T) {
	ws := newMemWorkspace()
	e := newExecutor(ws)

	result, err := e.Execute(context.Background(), &domain.FileOperation{
		Type: domain.OpRun, Command: "echo oops && exit 1",
	})
	assert.Error(t, err)
	assert.Contains(t, result, "oops")
}

func TestExecute_RunCommandEmptyIsError(t *testing.T) {
	ws := newMemWorkspace()
	e := newExecutor(ws)

	_, err := e.Execute(context.Background(), &domain.FileOperation{Type: domain.OpRun, Command: ""})
	assert.Error(t, err)
}

func TestExecute_RunCommandOutputTruncation(t *testing.T) {
	ws := newMemWorkspace()
	e := newExecutor(ws)

	result, err := e.Execute(context.Background(), &domain.FileOperation{
		Type:    domain.OpRun,
		Command: `python3 -c "print('x'*40000)" 2>/dev/null || yes x | head -c 40000`,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result), MaxOutputLength+len("\n... (output truncated)"))
}
