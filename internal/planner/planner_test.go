package planner

import (
	"context"
	"testing"

	"github.com/forgepilot/agentcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan_Basic(t *testing.T) {
	p := New()
	plan := p.ParsePlan("- [ ] Add the handler\n- [ ] Wire it into the router\n- [x] Already done step\n")

	require.Len(t, plan.Steps, 3)
	assert.Equal(t, "step-0", plan.Steps[0].ID)
	assert.Equal(t, "Add the handler", plan.Steps[0].Description)
	assert.Equal(t, domain.StepPending, plan.Steps[0].Status)
	assert.Equal(t, domain.StepDone, plan.Steps[2].Status)
}

func TestParsePlan_NoChecklistItems(t *testing.T) {
	p := New()
	plan := p.ParsePlan("Just some prose with no checklist at all.")
	assert.Empty(t, plan.Steps)
}

func TestParsePlan_DependsHint(t *testing.T) {
	p := New()
	plan := p.ParsePlan("- [ ] First step\n- [ ] Second step [depends: step-0]\n- [ ] Third step [depends: 0, 1]\n")

	require.Len(t, plan.Steps, 3)
	assert.Equal(t, "Second step", plan.Steps[1].Description)
	assert.Equal(t, []string{"step-0"}, plan.Steps[1].DependsOn)
	assert.Equal(t, []string{"step-0", "step-1"}, plan.Steps[2].DependsOn)
}

func TestParsePlan_IgnoresNonChecklistLines(t *testing.T) {
	p := New()
	plan := p.ParsePlan("# Plan\n\nSome intro text.\n\n- [ ] Real item\n\nTrailing notes.\n")
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "Real item", plan.Steps[0].Description)
}

func TestParsePlan_StepIDsAreUnique(t *testing.T) {
	p := New()
	plan := p.ParsePlan("- [ ] a\n- [ ] b\n- [ ] c\n- [ ] d\n")
	seen := map[string]bool{}
	for _, s := range plan.Steps {
		assert.False(t, seen[s.ID], "duplicate id %s", s.ID)
		seen[s.ID] = true
	}
}

type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func TestReplan_ParsesResponse(t *testing.T) {
	p := New()
	old := &domain.Plan{Steps: []*domain.PlanStep{
		{ID: "step-0", Description: "Broken step", Status: domain.StepFailed},
	}}
	completer := &fakeCompleter{response: "- [ ] Retry with a safer approach\n- [ ] Verify the fix\n"}

	revised, err := p.Replan(context.Background(), completer, old, "step-0 failed: file not found")
	require.NoError(t, err)
	require.Len(t, revised.Steps, 2)
	assert.Equal(t, "Retry with a safer approach", revised.Steps[0].Description)
}

func TestReplanPrompt_IncludesFailureContextAndExistingSteps(t *testing.T) {
	old := &domain.Plan{Steps: []*domain.PlanStep{
		{ID: "step-0", Description: "Already finished", Status: domain.StepDone},
		{ID: "step-1", Description: "Still pending", Status: domain.StepPending},
	}}
	prompt := ReplanPrompt(old, "compile error in foo.go")

	assert.Contains(t, prompt, "Already finished")
	assert.Contains(t, prompt, "Still pending")
	assert.Contains(t, prompt, "compile error in foo.go")
	assert.Contains(t, prompt, "[x] Already finished")
	assert.Contains(t, prompt, "[ ] Still pending")
}
