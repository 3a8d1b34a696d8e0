package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgepilot/agentcore/internal/domain"
)

func writeWorkspaceFile(t *testing.T, workspaceDir, rel, content string) {
	t.Helper()
	full := filepath.Join(workspaceDir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func TestCreateAndRestore_RoundTrip(t *testing.T) {
	workspaceDir := t.TempDir()
	baseDir := t.TempDir()
	writeWorkspaceFile(t, workspaceDir, "a.txt", "original content")
	writeWorkspaceFile(t, workspaceDir, "sub/b.txt", "nested content")

	plan := &domain.Plan{Steps: []*domain.PlanStep{{ID: "step-1", Description: "do a thing"}}}

	s := New(baseDir, workspaceDir)
	id, err := s.Create(plan)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	// Mutate the workspace after the snapshot.
	writeWorkspaceFile(t, workspaceDir, "a.txt", "mutated content")
	require.NoError(t, os.Remove(filepath.Join(workspaceDir, "sub", "b.txt")))

	restoredPlan, err := s.Restore(id)
	require.NoError(t, err)
	require.Len(t, restoredPlan.Steps, 1)
	assert.Equal(t, "step-1", restoredPlan.Steps[0].ID)

	restoredA, err := os.ReadFile(filepath.Join(workspaceDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "original content", string(restoredA))

	restoredB, err := os.ReadFile(filepath.Join(workspaceDir, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "nested content", string(restoredB))
}

func TestRestore_UnknownIDFails(t *testing.T) {
	s := New(t.TempDir(), t.TempDir())
	_, err := s.Restore("nonexistent")
	assert.Error(t, err)
}

func TestList_OrdersByCreation(t *testing.T) {
	workspaceDir := t.TempDir()
	writeWorkspaceFile(t, workspaceDir, "a.txt", "x")
	s := New(t.TempDir(), workspaceDir)

	id1, err := s.Create(&domain.Plan{})
	require.NoError(t, err)
	id2, err := s.Create(&domain.Plan{})
	require.NoError(t, err)

	ids, err := s.List()
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Contains(t, ids, id1)
	assert.Contains(t, ids, id2)
	assert.Equal(t, []string{id1, id2}, ids)
}

func TestList_EmptyWhenNoBaseDirYet(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "does-not-exist-yet"), t.TempDir())
	ids, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, ids)
}
